package rules

import (
	"strings"
)

// Seconds per unit suffix. A year is always 365 days.
const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
	secondsPerWeek   = 604800
	secondsPerYear   = 31536000
)

// ExpandTime converts an interval expression such as "30s", "2m" or "1d" to
// seconds. The leading integer is parsed leniently; a trailing digit means the
// whole value is already in seconds. Values that parse to zero or less yield 0,
// and an unknown suffix yields the bare number.
func ExpandTime(val string) int {
	if val == "" {
		return 0
	}

	n := Atoi(val)
	if n <= 0 {
		return 0
	}

	c := val[len(val)-1]
	if c >= '0' && c <= '9' {
		return n
	}

	switch c {
	case 's', 'S':
		return n
	case 'm', 'M':
		return n * secondsPerMinute
	case 'h', 'H':
		return n * secondsPerHour
	case 'd', 'D':
		return n * secondsPerDay
	case 'w', 'W':
		return n * secondsPerWeek
	case 'y', 'Y':
		return n * secondsPerYear
	}

	return n
}

// Atoi parses the leading decimal integer of s: optional whitespace, an
// optional sign, then digits. Anything after the digits is ignored and a
// string with no digits yields 0. Values outside the int32 range saturate.
func Atoi(s string) int {
	s = strings.TrimLeft(s, " \t\n\v\f\r")

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	const limit = 1<<31 - 1
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		if n <= limit {
			n = n*10 + int(c-'0')
		}
	}
	if n > limit {
		n = limit
	}

	if neg {
		return -n
	}
	return n
}

// Truthy reports whether a marker value enables a flag: a nonzero leading
// integer or a value starting with 'y'.
func Truthy(val string) bool {
	if val == "" {
		return false
	}
	return Atoi(val) != 0 || val[0] == 'y'
}
