// Package compare holds the per-field similarity functions. Every function
// returns a value in [0,1], 1 meaning identical, and depends only on its
// arguments so that feature vectors are reproducible.
package compare

import (
	"fmt"
	"sort"
	"strings"

	"record-linkage/internal/linkage/model"
)

type Func func(a, b string) float64

var registry = map[model.Kind]Func{
	model.KindString:      AffineGap,
	model.KindShortString: JaroWinkler,
	model.KindFuzzy:       Fuzzy,
	model.KindText:        Cosine,
	model.KindExact:       Exact,
	model.KindPrice:       Price,
}

// For returns the comparator of kind k.
func For(k model.Kind) (Func, error) {
	fn, ok := registry[k]
	if !ok {
		return nil, model.NewError(model.ErrConfiguration, "compare", "", fmt.Errorf("unknown comparator type %q", k))
	}
	return fn, nil
}

func Exact(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

// tokenSort orders words alphabetically: "corp acme" == "acme corp".
func tokenSort(s string) string {
	if s == "" {
		return s
	}
	t := strings.Fields(s)
	sort.Strings(t)
	return strings.Join(t, " ")
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
