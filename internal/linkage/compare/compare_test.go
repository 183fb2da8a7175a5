package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-linkage/internal/linkage/model"
)

func TestAffineGap(t *testing.T) {
	assert.Equal(t, 1.0, AffineGap("acme corp", "acme corp"))
	assert.Equal(t, 0.0, AffineGap("", "acme"))
	assert.InDelta(t, 0.75, AffineGap("acme corp", "acme corporation"), 1e-12)
	assert.InDelta(t, 0.75, AffineGap("acme corporation", "acme corp"), 1e-12)
	assert.Equal(t, 0.0, AffineGap("abc", "xyz"))

	near := AffineGap("acme corp", "acme corporation")
	far := AffineGap("acme corp", "unrelated llc")
	assert.Greater(t, near, far)
}

func TestAffineGap_Distance(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 0},
		{"abc", "", 2},      // one gap of three: 1 + 0.5 + 0.5
		{"abc", "abd", 1},   // one substitution
		{"abcd", "ad", 1.5}, // one gap of two
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, affineGapDistance([]rune(tt.a), []rune(tt.b)), 1e-12)
		})
	}
}

func TestDamerau(t *testing.T) {
	assert.Equal(t, 1, damerauLevenshtein("acme", "amce"))
	assert.Equal(t, 3, damerauLevenshtein("kitten", "sitting"))
	assert.Equal(t, 1.0, Damerau("", ""))
	assert.Equal(t, 0.0, Damerau("", "x"))
	assert.InDelta(t, 0.75, Damerau("acme", "amce"), 1e-12)
}

func TestFuzzy_IgnoresWordOrder(t *testing.T) {
	assert.Equal(t, 1.0, Fuzzy("corp acme", "acme corp"))
	assert.Less(t, Damerau("corp acme", "acme corp"), 1.0)
}

func TestJaroWinkler(t *testing.T) {
	assert.InDelta(t, 0.9444, Jaro("martha", "marhta"), 1e-4)
	assert.InDelta(t, 0.9611, JaroWinkler("martha", "marhta"), 1e-4)
	assert.InDelta(t, 0.8133, JaroWinkler("dixon", "dicksonx"), 1e-4)
	assert.Equal(t, 0.0, JaroWinkler("", "abc"))
	assert.Equal(t, 1.0, JaroWinkler("same", "same"))
}

func TestCosine(t *testing.T) {
	assert.Equal(t, 1.0, Cosine("", ""))
	assert.Equal(t, 0.0, Cosine("acme", ""))
	assert.InDelta(t, 1.0, Cosine("ltd acme", "acme ltd"), 1e-12)
	assert.InDelta(t, 0.5, Cosine("acme ltd", "acme corp"), 1e-12)
	assert.Equal(t, 0.0, Cosine("alpha", "beta"))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1 234,50", 1234.5, true},
		{"1,234.50", 1234.5, true},
		{"197 ,00", 197, true},
		{"(12.00)", -12, true},
		{"€ 99", 99, true},
		{" 2 345,6", 2345.6, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPrice(t *testing.T) {
	assert.Equal(t, 1.0, Price("100", "100,00"))
	assert.InDelta(t, 0.5, Price("10", "100"), 1e-12)
	assert.Equal(t, 0.0, Price("abc", "100"))
	assert.Equal(t, 1.0, Price("0", "0.00"))
	assert.Equal(t, 0.0, Price("0", "5"))
}

func TestFor(t *testing.T) {
	for _, k := range []model.Kind{model.KindString, model.KindShortString, model.KindFuzzy, model.KindText, model.KindExact, model.KindPrice} {
		fn, err := For(k)
		require.NoError(t, err, k)
		assert.Equal(t, 1.0, fn("42", "42"), k)
	}
	_, err := For("Soundex")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestComparators_StayInRange(t *testing.T) {
	words := []string{"", "a", "acme", "acme corp", "acme corporation", "unrelated llc", "zzz zzz zzz", "12.5"}
	for k, fn := range registry {
		for _, a := range words {
			for _, b := range words {
				s := fn(a, b)
				assert.GreaterOrEqual(t, s, 0.0, "%s(%q,%q)", k, a, b)
				assert.LessOrEqual(t, s, 1.0, "%s(%q,%q)", k, a, b)
				assert.Equal(t, s, fn(a, b), "%s must be deterministic", k)
			}
		}
	}
}
