package training

import (
	"math/rand/v2"
	"sort"

	"record-linkage/internal/linkage/model"
)

// SamplePairs draws up to n of candidates uniformly (reservoir sampling)
// and returns them in their original order.
func SamplePairs(candidates []model.Pair, n int, rng *rand.Rand) []model.Pair {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= n {
		out := make([]model.Pair, len(candidates))
		copy(out, candidates)
		return out
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := n; i < len(candidates); i++ {
		if j := rng.IntN(i + 1); j < n {
			idx[j] = i
		}
	}
	sort.Ints(idx)
	out := make([]model.Pair, n)
	for i, k := range idx {
		out[i] = candidates[k]
	}
	return out
}

// RandomPairs draws up to n distinct pairs uniformly from a × b, or from
// unordered pairs of a when dedupe is set. Almost all of them are
// non-matches, which is what predicate learning uses them for.
func RandomPairs(a, b []string, n int, dedupe bool, rng *rand.Rand) []model.Pair {
	if dedupe {
		b = a
		if len(a) < 2 {
			return nil
		}
	}
	if n <= 0 || len(a) == 0 || len(b) == 0 {
		return nil
	}
	limit := len(a) * len(b)
	if dedupe {
		limit = len(a) * (len(a) - 1) / 2
	}
	n = min(n, limit)

	seen := make(map[string]struct{}, n)
	out := make([]model.Pair, 0, n)
	for tries := 0; len(out) < n && tries < 4*n; tries++ {
		i, j := rng.IntN(len(a)), rng.IntN(len(b))
		p := model.Pair{A: a[i], B: b[j]}
		if dedupe {
			if i == j {
				continue
			}
			p = p.Ordered()
		}
		if _, ok := seen[p.Key()]; ok {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
