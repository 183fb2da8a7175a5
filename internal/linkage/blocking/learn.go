package blocking

import "record-linkage/internal/linkage/model"

// Example is a pair of records with both sides at hand.
type Example struct {
	A, B model.Record
}

// LearnOptions bound the rules predicate learning may pick.
type LearnOptions struct {
	// MaxCoverage is the largest share of non-matching pairs a rule may put
	// into common blocks. Rules above it drift towards the cross product.
	MaxCoverage float64
	MaxRules    int
}

func DefaultLearnOptions() LearnOptions {
	return LearnOptions{MaxCoverage: 0.1, MaxRules: 6}
}

// Learn picks rules from candidates by greedy weighted set cover: each round
// takes the rule covering the most still-uncovered matches per unit of
// coverage of non-matches. Non-matches are the labeled distinct pairs plus
// random pairs of the sample. The second return value is the number of
// matches the chosen rules cover.
func Learn(candidates []Rule, matches, nonMatches []Example, opt LearnOptions) ([]Rule, int) {
	if len(matches) == 0 || len(candidates) == 0 {
		return nil, 0
	}
	if opt.MaxRules <= 0 {
		opt.MaxRules = len(candidates)
	}

	type stat struct {
		rule   Rule
		covers []bool
		cost   float64
	}
	stats := make([]stat, 0, len(candidates))
	for _, r := range candidates {
		st := stat{rule: r, covers: make([]bool, len(matches))}
		for i, m := range matches {
			st.covers[i] = r.Covers(m.A, m.B)
		}
		if len(nonMatches) > 0 {
			hit := 0
			for _, n := range nonMatches {
				if r.Covers(n.A, n.B) {
					hit++
				}
			}
			st.cost = float64(hit) / float64(len(nonMatches))
		}
		if st.cost > opt.MaxCoverage {
			continue
		}
		stats = append(stats, st)
	}

	eps := 1.0
	if len(nonMatches) > 0 {
		eps = 1 / float64(len(nonMatches))
	}

	covered := make([]bool, len(matches))
	nCovered := 0
	var chosen []Rule
	used := make([]bool, len(stats))
	for len(chosen) < opt.MaxRules {
		best, bestGain, bestScore := -1, 0, 0.0
		for i, st := range stats {
			if used[i] {
				continue
			}
			gain := 0
			for j, c := range st.covers {
				if c && !covered[j] {
					gain++
				}
			}
			if gain == 0 {
				continue
			}
			score := float64(gain) / (st.cost + eps)
			if best < 0 || score > bestScore || (score == bestScore && st.cost < stats[best].cost) {
				best, bestGain, bestScore = i, gain, score
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		chosen = append(chosen, stats[best].rule)
		for j, c := range stats[best].covers {
			if c && !covered[j] {
				covered[j] = true
			}
		}
		nCovered += bestGain
	}
	return chosen, nCovered
}
