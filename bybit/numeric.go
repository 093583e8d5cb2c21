package bybit

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	errNotScalar = errors.New("not a string or number")
	errNotFinite = errors.New("not a finite number")
	errFraction  = errors.New("not a whole number of milliseconds")
	errOverflow  = errors.New("milliseconds out of int64 range")
)

// ParseNumeric converts a JSON value that arrives either as a string
// ("101.5") or as a number (101.5) into a float64. NaN and infinities are
// rejected.
func ParseNumeric(raw json.RawMessage) (float64, error) {
	s, err := scalarText(raw)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

// ParseMillis converts a JSON string or number holding epoch milliseconds
// into an int64. A value with a fractional part is an error.
func ParseMillis(raw json.RawMessage) (int64, error) {
	s, err := scalarText(raw)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}

	// numbers such as 1.7e12 or 1700000000000.0
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	if f != math.Trunc(f) {
		return 0, errFraction
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, errOverflow
	}
	return int64(f), nil
}

// scalarText unquotes a JSON string or returns the literal text of a JSON
// number.
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errNotScalar
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case c == '-' || (c >= '0' && c <= '9'):
		return string(raw), nil
	}
	return "", errNotScalar
}
