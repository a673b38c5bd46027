package helpers

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a fresh row/table identity.
func GenerateUUID() string {
	return uuid.New().String()
}

// StripQuotes removes one matching pair of surrounding quotes.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ToNumber coerces an arbitrary field value to a float64. Missing or
// non-numeric values come back as 0 so cell math never fails an edit.
func ToNumber(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		cleaned := strings.TrimSpace(v)
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		if cleaned == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f
		}
		return 0
	default:
		return 0
	}
}

// RoundTo rounds v half away from zero to the given number of decimal places.
// A negative precision is treated as 0.
func RoundTo(v float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	factor := math.Pow(10, float64(precision))
	return math.Round(v*factor) / factor
}

// FormatNumber renders v with exactly precision decimal places.
func FormatNumber(v float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}
