package panel

import "time"

// prolepticEpochShift is the day count the original source used to align
// days-since-proleptic-Gregorian-era 0001-01-01 with the Unix epoch
// 1970-01-01: 1970-01-01 is proleptic day 719163.
const prolepticEpochShift = 719163

// DateFromProlepticDays converts an integer day counter (days since the
// proleptic Gregorian era, day 1 = 0001-01-01) into a UTC, day-truncated
// time.Time. Used at ingestion boundaries where a source delivers this
// encoding instead of a calendar date string.
func DateFromProlepticDays(days int) time.Time {
	unixDays := days - prolepticEpochShift
	return time.Unix(int64(unixDays)*86400, 0).UTC()
}

// ToProlepticDays is the inverse of DateFromProlepticDays.
func ToProlepticDays(d time.Time) int {
	unixDays := d.UTC().Truncate(24 * time.Hour).Unix() / 86400
	return int(unixDays) + prolepticEpochShift
}
