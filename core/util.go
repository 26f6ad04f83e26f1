package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

var NowFunc = func() time.Time { return time.Now().UTC() } // mockable

// Now returns the current UTC time truncated to microseconds, the precision Postgres keeps.
func Now() time.Time {
	return NowFunc().Truncate(time.Microsecond)
}
