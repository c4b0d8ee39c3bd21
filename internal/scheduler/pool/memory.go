package pool

import (
	"strconv"
	"strings"
)

// ParseMemoryBytes parses a resource-quantity string into bytes. It
// accepts the binary suffixes Ki/Mi/Gi (powers of 1024) and the decimal
// suffixes K/M/G (powers of 1000); a bare number is taken as bytes.
// Parse failures return 0.
func ParseMemoryBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	type suffix struct {
		text string
		mult int64
	}
	// Longest suffixes first so "Gi" isn't shadowed by a bare "G" check.
	suffixes := []suffix{
		{"Ki", 1024},
		{"Mi", 1024 * 1024},
		{"Gi", 1024 * 1024 * 1024},
		{"K", 1000},
		{"M", 1000 * 1000},
		{"G", 1000 * 1000 * 1000},
	}

	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf.text) {
			numPart := strings.TrimSuffix(s, suf.text)
			val, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0
			}
			return int64(val * float64(suf.mult))
		}
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(val)
}

// ParseCPU parses a CPU quantity string (e.g. "1", "0.5") into a float.
// Parse failures return 0.
func ParseCPU(s string) float64 {
	s = strings.TrimSpace(s)
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}
