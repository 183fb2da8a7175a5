package blocking

import (
	"runtime"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"record-linkage/internal/linkage/model"
)

// Blocker produces candidate pairs from an inverted index of blocking keys,
// so only records sharing at least one key are ever paired.
type Blocker struct {
	rules   []Rule
	workers int
	log     zerolog.Logger
}

type Option func(*Blocker)

func WithWorkers(n int) Option {
	return func(b *Blocker) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Blocker) { b.log = l }
}

func New(rules []Rule, opts ...Option) (*Blocker, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	b := &Blocker{rules: rules, workers: runtime.NumCPU(), log: zerolog.Nop()}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

func (b *Blocker) Rules() []Rule { return b.rules }

// index maps "rule#key" to record ids in collection order.
type index map[string][]string

func (b *Blocker) recordKeys(r model.Record) []string {
	var out []string
	for i, rule := range b.rules {
		v, ok := r.Value(rule.Field)
		if !ok {
			continue
		}
		for _, k := range rule.Keys(v) {
			out = append(out, blockKey(i, k))
		}
	}
	return out
}

func blockKey(rule int, key string) string {
	return strconv.Itoa(rule) + "\x1f" + key
}

func (b *Blocker) buildIndex(c *model.Collection) index {
	idx := make(index)
	for _, id := range c.IDs() {
		r, _ := c.Get(id)
		for _, k := range b.recordKeys(r) {
			idx[k] = append(idx[k], id)
		}
	}
	return idx
}

// Link pairs records of a with records of bc. Output order is deterministic:
// a's records in collection order, each followed by its candidates in the
// order their blocks were visited.
func (b *Blocker) Link(a, bc *model.Collection) []model.Pair {
	idx := b.buildIndex(bc)
	pairs := b.sharded(a.IDs(), func(id string, out []model.Pair) []model.Pair {
		r, _ := a.Get(id)
		seen := make(map[string]struct{})
		for _, k := range b.recordKeys(r) {
			for _, other := range idx[k] {
				if _, ok := seen[other]; ok {
					continue
				}
				seen[other] = struct{}{}
				out = append(out, model.Pair{A: id, B: other})
			}
		}
		return out
	})
	b.log.Debug().
		Int("rules", len(b.rules)).
		Int("records_a", a.Len()).
		Int("records_b", bc.Len()).
		Int("candidates", len(pairs)).
		Msg("blocked")
	return pairs
}

// Dedupe pairs records of one collection with each other. Each unordered
// pair appears once, with ids in lexical order.
func (b *Blocker) Dedupe(c *model.Collection) []model.Pair {
	idx := b.buildIndex(c)
	ids := c.IDs()
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	pairs := b.sharded(ids, func(id string, out []model.Pair) []model.Pair {
		r, _ := c.Get(id)
		seen := make(map[string]struct{})
		for _, k := range b.recordKeys(r) {
			for _, other := range idx[k] {
				if pos[other] <= pos[id] {
					continue
				}
				if _, ok := seen[other]; ok {
					continue
				}
				seen[other] = struct{}{}
				out = append(out, model.Pair{A: id, B: other}.Ordered())
			}
		}
		return out
	})
	b.log.Debug().
		Int("rules", len(b.rules)).
		Int("records", c.Len()).
		Int("candidates", len(pairs)).
		Msg("blocked")
	return pairs
}

// sharded splits ids into contiguous shards, runs fn over each shard in its
// own goroutine and concatenates the results in shard order.
func (b *Blocker) sharded(ids []string, fn func(id string, out []model.Pair) []model.Pair) []model.Pair {
	shards := Shards(len(ids), b.workers)
	results := make([][]model.Pair, len(shards))

	var wg sync.WaitGroup
	for s, sh := range shards {
		wg.Add(1)
		go func(s int, lo, hi int) {
			defer wg.Done()
			var out []model.Pair
			for _, id := range ids[lo:hi] {
				out = fn(id, out)
			}
			results[s] = out
		}(s, sh[0], sh[1])
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	pairs := make([]model.Pair, 0, total)
	for _, r := range results {
		pairs = append(pairs, r...)
	}
	return pairs
}

// Shards cuts [0,n) into at most workers contiguous [lo,hi) ranges.
func Shards(n, workers int) [][2]int {
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
