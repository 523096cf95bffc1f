// Package shared provides common utilities and test helpers used across the
// toolkit. It serves as a central location for shared functionality that
// doesn't belong to any specific domain or architectural layer.
//
// # Structure
//
// The package is organized into the following components:
//
// - testutil: slog test helpers (a record-capturing handler and log assertions)
//
// # Usage Guidelines
//
// This package should only contain:
//
// 1. Test utilities used by multiple packages
// 2. Generic helper functions with no domain-specific logic
// 3. Common constants or types used across packages
//
// It should NOT contain:
//
// 1. Business logic or domain-specific code
// 2. External dependencies beyond standard library
// 3. Circular dependencies with other internal packages
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- BufferedSlogHandler, an slog.Handler that keeps records in memory
//	- NewTestLogger, which pairs an *slog.Logger with such a handler
//	- AssertLogContains, AssertLogAttr and AssertNoErrors
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    logger.Info("loaded panel")
//	    testutil.AssertLogContains(t, handler, slog.LevelInfo, "loaded panel")
//	}
//
// # Performance
//
// All utilities in this package are designed to have minimal overhead
// and should not impact production performance when used correctly.
package shared