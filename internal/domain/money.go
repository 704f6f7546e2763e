package domain

import (
	"strconv"
	"strings"
)

// ParseMoney converts a currency-formatted proposal value such as
// "R$ 1.500,00", "1500.00" or "1,500.00" into a float64 amount.
// Unparseable input yields 0 and ok=false. All adapters use this one
// function for value-range filtering so the three backends agree on
// which rows a range matches.
func ParseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "r$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Keep digits, separators and sign only.
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot:
		// Brazilian format: dot groups thousands, comma is decimal.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot > lastComma:
		// US format: comma groups thousands.
		s = strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		// Dots only. "1.234.567" and the Brazilian "1.500" use dots as
		// grouping separators; a trailing group of any other width is a
		// decimal part ("1500.00", "1.5").
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
