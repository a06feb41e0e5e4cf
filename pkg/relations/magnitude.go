package relations

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Suffix table for magnitude strings. The source data mixes conventional K/M
// with G for billions, in either case; both cases of every suffix map to one
// canonical scale:
//
//	k/K = 1e3, m/M = 1e6, g/G (and b/B) = 1e9, t/T = 1e12
var suffixScale = map[string]float64{
	"":  1,
	"k": 1e3,
	"m": 1e6,
	"g": 1e9,
	"b": 1e9,
	"t": 1e12,
}

// ParseMagnitude converts a magnitude string such as "1.96 g", "5.6M" or
// "1234" into its numeric value. Parsing is case-insensitive and tolerates
// whitespace between number and suffix.
func ParseMagnitude(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty magnitude string")
	}

	suffix := ""
	numPart := trimmed
	last := trimmed[len(trimmed)-1]
	if last < '0' || last > '9' {
		suffix = strings.ToLower(string(last))
		numPart = strings.TrimSpace(trimmed[:len(trimmed)-1])
	}

	scale, ok := suffixScale[suffix]
	if !ok {
		return 0, fmt.Errorf("unknown magnitude suffix %q in %q", suffix, s)
	}

	numPart = strings.ReplaceAll(numPart, ",", "")
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid magnitude %q: %w", s, err)
	}

	return n * scale, nil
}

// FormatMagnitude turns a count into a compact human-readable string:
//
//	1234       -> "1.23 K"
//	5600000    -> "5.6 M"
//	2150000000 -> "2.15 G"
func FormatMagnitude(value int64) string {
	units := []string{"", "K", "M", "G", "T"}
	n := float64(value)
	idx := 0
	for math.Abs(n) >= 1000 && idx < len(units)-1 {
		n /= 1000
		idx++
	}

	if idx == 0 {
		return strconv.FormatInt(value, 10)
	}

	rounded := math.Round(n*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + units[idx]
}
