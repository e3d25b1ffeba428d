package exporter

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat renders a statistic with at most four decimals and no
// trailing zeros. NaN renders as "nan".
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// formatList renders names as [a, b, c]
func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// formatPairs renders ordered key/value pairs as {k: v, ...}
func formatPairs(keys, values []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + values[i]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
