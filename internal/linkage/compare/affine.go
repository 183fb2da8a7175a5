package compare

import "math"

// Gap costs: opening a gap costs as much as a substitution, extending it
// half as much, so "acme corp" vs "acme corporation" is one cheap gap.
const (
	substCost = 1.0
	gapOpen   = 1.0
	gapExtend = 0.5
)

// affineGapDistance is Gotoh's alignment distance. m holds alignments ending
// in a (mis)match, x ending in a deletion from a, y in an insertion of b.
func affineGapDistance(a, b []rune) float64 {
	n, w := len(a), len(b)
	inf := math.Inf(1)

	m := make([]float64, w+1)
	x := make([]float64, w+1)
	y := make([]float64, w+1)
	pm := make([]float64, w+1)
	px := make([]float64, w+1)
	py := make([]float64, w+1)

	pm[0], px[0], py[0] = 0, inf, inf
	for j := 1; j <= w; j++ {
		pm[j], px[j] = inf, inf
		py[j] = gapOpen + gapExtend*float64(j-1)
	}

	for i := 1; i <= n; i++ {
		m[0], y[0] = inf, inf
		x[0] = gapOpen + gapExtend*float64(i-1)
		for j := 1; j <= w; j++ {
			cost := 0.0
			if a[i-1] != b[j-1] {
				cost = substCost
			}
			m[j] = min(pm[j-1], px[j-1], py[j-1]) + cost
			x[j] = min(pm[j]+gapOpen, px[j]+gapExtend, py[j]+gapOpen)
			y[j] = min(m[j-1]+gapOpen, y[j-1]+gapExtend, x[j-1]+gapOpen)
		}
		pm, m = m, pm
		px, x = x, px
		py, y = y, py
	}
	return min(pm[w], px[w], py[w])
}

// AffineGap turns the alignment distance into a similarity by dividing by the
// longer length. Long shared prefixes with a trailing abbreviation score high.
func AffineGap(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	d := affineGapDistance(ra, rb)
	return clamp01(1 - d/float64(max(len(ra), len(rb))))
}
