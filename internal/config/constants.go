package config

import "time"

// Application-wide constants.
const (
	AppName    = "tarifa"
	AppVersion = "0.1.0"

	DefaultHTTPTimeout = 30 * time.Second

	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultReportsDir = "data/reports"
	DefaultCacheDir   = "data/cache"

	DataCacheDuration   = 15 * time.Minute
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"

	APIBasePath     = "/api/v1"
	HealthEndpoint  = "/healthz"
	MetricsEndpoint = "/metrics"
	ProgressEndpoint = "/progress"
)
