package exporter

import (
	"fmt"
	"strings"
)

// formatFloat formats a float64 value for CSV output rounded to 6 decimal
// places, with trailing zeros (and a trailing decimal point) removed
func formatFloat(f float64) string {
	// Round with %.6f, then trim so values like 13.400000 appear as 13.4
	// and 100.000000 appears as 100
	s := fmt.Sprintf("%.6f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}