package scoring

import (
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"record-linkage/internal/linkage/blocking"
	"record-linkage/internal/linkage/model"
)

// Score returns the match probability of (a, b). Without a model there is
// no probability to give.
func Score(a, b model.Record, m *Model) (float64, error) {
	if m == nil || m.feat == nil {
		return 0, model.NewError(model.ErrNoModel, "scoring", "", nil)
	}
	return m.Prob(a, b), nil
}

// Lookup resolves a record id of one side of a pair.
type Lookup func(id string) (model.Record, bool)

// Scorer scores candidate pairs in parallel shards.
type Scorer struct {
	workers int
	log     zerolog.Logger
}

func NewScorer(workers int, log zerolog.Logger) *Scorer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scorer{workers: workers, log: log}
}

// ScoreAll scores pairs, looking A ids up in a and B ids up in b. The
// result keeps the order of pairs. Pairs whose records cannot be found are
// dropped.
func (s *Scorer) ScoreAll(pairs []model.Pair, a, b Lookup, m *Model) ([]model.ScoredPair, error) {
	if m == nil || m.feat == nil {
		return nil, model.NewError(model.ErrNoModel, "scoring", "", nil)
	}
	shards := blocking.Shards(len(pairs), s.workers)
	results := make([][]model.ScoredPair, len(shards))

	var wg sync.WaitGroup
	for i, sh := range shards {
		wg.Add(1)
		go func(i, lo, hi int) {
			defer wg.Done()
			out := make([]model.ScoredPair, 0, hi-lo)
			for _, p := range pairs[lo:hi] {
				ra, okA := a(p.A)
				rb, okB := b(p.B)
				if !okA || !okB {
					continue
				}
				out = append(out, model.ScoredPair{Pair: p, Prob: m.Prob(ra, rb)})
			}
			results[i] = out
		}(i, sh[0], sh[1])
	}
	wg.Wait()

	scored := make([]model.ScoredPair, 0, len(pairs))
	for _, r := range results {
		scored = append(scored, r...)
	}
	if dropped := len(pairs) - len(scored); dropped > 0 {
		s.log.Warn().Int("dropped", dropped).Msg("pairs reference unknown records")
	}
	s.log.Debug().Int("pairs", len(scored)).Msg("scored")
	return scored, nil
}
