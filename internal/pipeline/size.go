package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnknownUnit is returned by ParseSize for a unit it does not know.
	ErrUnknownUnit = errors.New("pipeline: unknown size unit")

	// ErrNegativeSize is returned by ParseSize for a negative value.
	ErrNegativeSize = errors.New("pipeline: negative size")

	// ErrInvalidSize is returned by ParseSize when the value is not a number.
	ErrInvalidSize = errors.New("pipeline: invalid size value")
)

// unitBytes maps a normalized unit to its binary multiple.
var unitBytes = map[string]float64{
	"":      1,
	"b":     1,
	"byte":  1,
	"bytes": 1,
	"kb":    1 << 10,
	"kib":   1 << 10,
	"k":     1 << 10,
	"mb":    1 << 20,
	"mib":   1 << 20,
	"m":     1 << 20,
	"gb":    1 << 30,
	"gib":   1 << 30,
	"g":     1 << 30,
	"tb":    1 << 40,
	"tib":   1 << 40,
	"t":     1 << 40,
}

// ParseSize converts a size such as ("1,234.5", "MB") to bytes.
// Thousands separators are ignored and units use binary multiples, so
// 1 KB is 1024 bytes. An unknown unit is an error, never a default.
func ParseSize(value, unit string) (int64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	v = strings.NewReplacer(" ", "", "\u00a0", "").Replace(v)
	if v == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSize)
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNegativeSize, value)
	}
	mult, ok := unitBytes[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	bytes := n * mult
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q %q overflows", ErrInvalidSize, value, unit)
	}
	return int64(bytes), nil
}

// ParseSizeString splits a combined string such as "700.5 MB" or "1,024KB"
// and parses it with ParseSize.
func ParseSizeString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != ',' && r != '-' && r != ' ' && r != '\u00a0'
	})
	if i < 0 {
		return ParseSize(s, "")
	}
	return ParseSize(s[:i], s[i:])
}
