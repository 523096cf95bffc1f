// Package config provides centralized configuration management for the
// research toolkit. It loads configuration from environment variables and
// an optional YAML file, validates it, and exposes a type-safe API for
// accessing configuration values from the CLI and the internal packages.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority, prefix TARIFA_)
//	2. A config.yaml file found in a well-known location
//	3. Default values (lowest priority)
//
// # Environment Variables
//
//	TARIFA_SERVER_PORT=8081
//	TARIFA_LOGGING_LEVEL=info
//	TARIFA_BACKTEST_TRANSACTION_COST_BPS=10
//
// The market-data API key is not read under the TARIFA_ prefix: it comes
// only from FMP_API_KEY.
//
// # Path Management
//
// The Paths type centralizes all file system paths relative to the
// executable location:
//
//	paths, _ := config.GetPaths()
//	reportPath := paths.GetReportPath("backtest_momentum.csv")
package config
