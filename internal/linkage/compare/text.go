package compare

import (
	"math"
	"sort"
	"strings"
)

// Cosine compares bags of words. Tokens are visited in sorted order so the
// floating point sums do not depend on map iteration.
func Cosine(a, b string) float64 {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	fa := make(map[string]int, len(ta))
	fb := make(map[string]int, len(tb))
	for _, t := range ta {
		fa[t]++
	}
	for _, t := range tb {
		fb[t]++
	}

	all := make([]string, 0, len(fa)+len(fb))
	for t := range fa {
		all = append(all, t)
	}
	for t := range fb {
		if _, ok := fa[t]; !ok {
			all = append(all, t)
		}
	}
	sort.Strings(all)

	var dot, na, nb float64
	for _, t := range all {
		x, y := float64(fa[t]), float64(fb[t])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
