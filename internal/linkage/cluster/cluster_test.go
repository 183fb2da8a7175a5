package cluster

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-linkage/internal/linkage/model"
	"record-linkage/internal/linkage/scoring"
)

func sp(a, b string, p float64) model.ScoredPair {
	return model.ScoredPair{Pair: model.Pair{A: a, B: b}, Prob: p}
}

var modes = []model.Mode{model.ModeOneToOne, model.ModeManyToOne, model.ModeDedupe}

func TestBuild_AcmeScenario(t *testing.T) {
	a := model.NewCollection("a", model.SourceA)
	require.NoError(t, a.Add(model.Record{ID: "a0", Fields: map[string]string{"sss": "acme corp"}}))
	b := model.NewCollection("b", model.SourceB)
	require.NoError(t, b.Add(model.Record{ID: "b0", Fields: map[string]string{"sss": "acme corporation"}}))
	require.NoError(t, b.Add(model.Record{ID: "b1", Fields: map[string]string{"sss": "unrelated llc"}}))

	m, err := scoring.Restore(model.DefaultFields(), []float64{12}, -6)
	require.NoError(t, err)

	var scored []model.ScoredPair
	for _, idb := range b.IDs() {
		ra, _ := a.Get("a0")
		rb, _ := b.Get(idb)
		p, err := scoring.Score(ra, rb, m)
		require.NoError(t, err)
		scored = append(scored, sp("a0", idb, p))
	}

	clusters, err := Build(scored, Options{Threshold: 0.5, Mode: model.ModeOneToOne})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, 0, clusters[0].ID)
	assert.Equal(t, []model.RecordRef{refA("a0"), refB("b0")}, clusters[0].Members)
	assert.Equal(t, scored[0].Prob, clusters[0].Score)

	as := Assign(clusters, true, b, a)
	require.Len(t, as, 3)
	assert.Equal(t, refB("b1"), as[2].Ref)
	assert.Equal(t, 1, as[2].ClusterID)
	assert.Nil(t, as[2].Score)

	assert.Len(t, Assign(clusters, false, b, a), 2)
}

func TestBuild_ZeroThresholdStillFilters(t *testing.T) {
	scored := []model.ScoredPair{sp("a0", "b0", 0.01), sp("a1", "b1", 0)}
	for _, mode := range modes {
		clusters, err := Build(scored, Options{Threshold: 0, Mode: mode})
		require.NoError(t, err)
		require.Len(t, clusters, 1, mode)
		assert.Equal(t, 0.01, clusters[0].Score)
	}
	assert.True(t, Keep(0.01, 0))
	assert.False(t, Keep(0, 0))
	assert.True(t, Keep(0.5, 0.5))
	assert.False(t, Keep(0.49, 0.5))
}

func TestBuild_OneToOneTakesBestFirst(t *testing.T) {
	scored := []model.ScoredPair{
		sp("a0", "b0", 0.7),
		sp("a0", "b1", 0.9),
		sp("a1", "b1", 0.8),
		sp("a1", "b0", 0.6),
	}
	clusters, err := Build(scored, Options{Threshold: 0.5, Mode: model.ModeOneToOne})
	require.NoError(t, err)
	assert.Equal(t, []model.Cluster{
		{ID: 0, Members: []model.RecordRef{refA("a0"), refB("b1")}, Score: 0.9},
		{ID: 1, Members: []model.RecordRef{refA("a1"), refB("b0")}, Score: 0.6},
	}, clusters)
}

func TestBuild_ManyToOne(t *testing.T) {
	scored := []model.ScoredPair{
		sp("a0", "b0", 0.9),
		sp("a1", "b0", 0.7),
		sp("a1", "b1", 0.6),
		sp("a2", "b1", 0.8),
	}
	clusters, err := Build(scored, Options{Threshold: 0.5, Mode: model.ModeManyToOne})
	require.NoError(t, err)
	assert.Equal(t, []model.Cluster{
		{ID: 0, Members: []model.RecordRef{refB("b0"), refA("a0"), refA("a1")}, Score: 0.7},
		{ID: 1, Members: []model.RecordRef{refB("b1"), refA("a2")}, Score: 0.8},
	}, clusters)
}

func TestBuild_DedupeComponents(t *testing.T) {
	scored := []model.ScoredPair{
		sp("c0", "c1", 0.9),
		sp("c3", "c4", 0.95),
		sp("c1", "c2", 0.6),
		sp("c2", "c5", 0.1),
	}
	clusters, err := Build(scored, Options{Threshold: 0.5, Mode: model.ModeDedupe})
	require.NoError(t, err)
	assert.Equal(t, []model.Cluster{
		{ID: 0, Members: []model.RecordRef{refA("c0"), refA("c1"), refA("c2")}, Score: 0.6},
		{ID: 1, Members: []model.RecordRef{refA("c3"), refA("c4")}, Score: 0.95},
	}, clusters)
}

func TestBuild_UnknownMode(t *testing.T) {
	_, err := Build(nil, Options{Mode: "star"})
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func randomScored(rng *rand.Rand, nA, nB, edges int) []model.ScoredPair {
	seen := map[model.Pair]bool{}
	var out []model.ScoredPair
	for len(out) < edges {
		p := model.Pair{A: fmt.Sprintf("a%d", rng.IntN(nA)), B: fmt.Sprintf("b%d", rng.IntN(nB))}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, model.ScoredPair{Pair: p, Prob: float64(rng.IntN(101)) / 100})
	}
	return out
}

// coMembers lists every pair of records sharing a cluster.
func coMembers(clusters []model.Cluster) map[[2]model.RecordRef]bool {
	out := map[[2]model.RecordRef]bool{}
	for _, c := range clusters {
		for i, x := range c.Members {
			for _, y := range c.Members[i+1:] {
				out[[2]model.RecordRef{x, y}] = true
				out[[2]model.RecordRef{y, x}] = true
			}
		}
	}
	return out
}

func TestBuild_LowerThresholdKeepsHigherMatches(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 20; round++ {
		scored := randomScored(rng, 15, 15, 60)
		for _, mode := range modes {
			low, err := Build(scored, Options{Threshold: 0.3, Mode: mode})
			require.NoError(t, err)
			high, err := Build(scored, Options{Threshold: 0.7, Mode: mode})
			require.NoError(t, err)

			lowPairs := coMembers(low)
			for p := range coMembers(high) {
				assert.True(t, lowPairs[p], "mode %s: %v lost when lowering the threshold", mode, p)
			}
		}
	}
}

func TestBuild_StrictModeNeverJoinsOneSourceTwice(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for round := 0; round < 20; round++ {
		scored := randomScored(rng, 10, 10, 50)
		clusters, err := Build(scored, Options{Threshold: 0.2, Mode: model.ModeOneToOne})
		require.NoError(t, err)

		seen := map[model.RecordRef]bool{}
		for i, c := range clusters {
			assert.Equal(t, i, c.ID)
			require.Len(t, c.Members, 2)
			assert.NotEqual(t, c.Members[0].Source, c.Members[1].Source)
			for _, m := range c.Members {
				assert.False(t, seen[m], "%s in two clusters", m)
				seen[m] = true
			}
		}
	}
}

func TestBuild_ManyToOneEachARecordOnce(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	scored := randomScored(rng, 12, 4, 40)
	clusters, err := Build(scored, Options{Threshold: 0.2, Mode: model.ModeManyToOne})
	require.NoError(t, err)

	seen := map[model.RecordRef]bool{}
	for _, c := range clusters {
		assert.Equal(t, model.SourceB, c.Members[0].Source)
		for _, m := range c.Members {
			assert.False(t, seen[m])
			seen[m] = true
		}
		for _, m := range c.Members[1:] {
			assert.Equal(t, model.SourceA, m.Source)
		}
	}
}

func TestAssign_FreshIdsFollowClusters(t *testing.T) {
	a := model.NewCollection("a", model.SourceA)
	for _, id := range []string{"a0", "a1", "a2"} {
		require.NoError(t, a.Add(model.Record{ID: id}))
	}
	b := model.NewCollection("b", model.SourceB)
	for _, id := range []string{"b0", "b1"} {
		require.NoError(t, b.Add(model.Record{ID: id}))
	}
	clusters := []model.Cluster{
		{ID: 0, Members: []model.RecordRef{refA("a1"), refB("b0")}, Score: 0.8},
	}

	as := Assign(clusters, true, b, a)
	var got []string
	for _, x := range as {
		got = append(got, fmt.Sprintf("%s=%d", x.Ref, x.ClusterID))
	}
	assert.Equal(t, []string{"A:a1=0", "B:b0=0", "B:b1=1", "A:a0=2", "A:a2=3"}, got)
	assert.Equal(t, 0.8, *as[0].Score)
}
