package compare

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var rxKeepNums = regexp.MustCompile(`[^\d\.\-]`)

// ParseNumber reads amounts the way ledgers write them: "1 234,50",
// "1,234.50", "(12.00)", "€ 99". A comma is a decimal separator unless a
// period follows it.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.NewReplacer(" ", "", "\u00A0", "", "\u202F", "", "\u2009", "", "\t", "").Replace(s)
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = rxKeepNums.ReplaceAllString(s, "")
	if s == "" || s == "-" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// Price compares magnitudes: 1 / (1 + |log10 a - log10 b|). Unparseable
// values score 0, non-positive ones only match when equal.
func Price(a, b string) float64 {
	x, okA := ParseNumber(a)
	y, okB := ParseNumber(b)
	if !okA || !okB {
		return 0
	}
	if x <= 0 || y <= 0 {
		if x == y {
			return 1
		}
		return 0
	}
	return 1 / (1 + math.Abs(math.Log10(x)-math.Log10(y)))
}
