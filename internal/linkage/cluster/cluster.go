// Package cluster turns scored pairs into disjoint clusters.
//
// A cluster's score is the minimum probability among the edges that formed
// it. Cluster ids are dense from 0 in the order clusters are discovered.
package cluster

import (
	"fmt"
	"math"
	"sort"

	"record-linkage/internal/linkage/model"
)

type Options struct {
	Threshold float64
	Mode      model.Mode
}

// Keep reports whether an edge with probability p survives threshold t.
// A zero probability never survives, so t = 0 keeps every pair that got
// any probability at all.
func Keep(p, t float64) bool { return p > 0 && p >= t }

// Build clusters scored. In one-to-one and many-to-one modes pair A ids
// come from collection A and B ids from collection B; in dedupe mode both
// come from one collection.
func Build(scored []model.ScoredPair, opt Options) ([]model.Cluster, error) {
	edges := make([]model.ScoredPair, 0, len(scored))
	for _, sp := range scored {
		if Keep(sp.Prob, opt.Threshold) {
			edges = append(edges, sp)
		}
	}
	switch opt.Mode {
	case model.ModeOneToOne, "":
		return oneToOne(edges), nil
	case model.ModeManyToOne:
		return manyToOne(edges), nil
	case model.ModeDedupe:
		return components(edges), nil
	}
	return nil, model.NewError(model.ErrConfiguration, "cluster", "", fmt.Errorf("unknown link mode %q", opt.Mode))
}

func refA(id string) model.RecordRef { return model.RecordRef{Source: model.SourceA, ID: id} }
func refB(id string) model.RecordRef { return model.RecordRef{Source: model.SourceB, ID: id} }

// byProbDesc orders edges best first; equal probabilities keep input order.
func byProbDesc(edges []model.ScoredPair) []model.ScoredPair {
	out := make([]model.ScoredPair, len(edges))
	copy(out, edges)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Prob > out[j].Prob })
	return out
}

// oneToOne merges best-first and skips any edge touching a record that is
// already linked, so no record ends up in two clusters and every cluster
// holds one record of each collection.
func oneToOne(edges []model.ScoredPair) []model.Cluster {
	usedA := make(map[string]bool)
	usedB := make(map[string]bool)
	var out []model.Cluster
	for _, e := range byProbDesc(edges) {
		if usedA[e.A] || usedB[e.B] {
			continue
		}
		usedA[e.A], usedB[e.B] = true, true
		out = append(out, model.Cluster{
			ID:      len(out),
			Members: []model.RecordRef{refA(e.A), refB(e.B)},
			Score:   e.Prob,
		})
	}
	return out
}

// manyToOne attaches each A record to its best B record. A B record may
// collect several A records.
func manyToOne(edges []model.ScoredPair) []model.Cluster {
	assigned := make(map[string]bool)
	byB := make(map[string]int)
	var out []model.Cluster
	for _, e := range byProbDesc(edges) {
		if assigned[e.A] {
			continue
		}
		assigned[e.A] = true
		i, ok := byB[e.B]
		if !ok {
			i = len(out)
			byB[e.B] = i
			out = append(out, model.Cluster{ID: i, Members: []model.RecordRef{refB(e.B)}, Score: e.Prob})
		}
		c := &out[i]
		c.Members = append(c.Members, refA(e.A))
		c.Score = math.Min(c.Score, e.Prob)
	}
	return out
}

// components is plain connected components over the surviving edges,
// visited in input order.
func components(edges []model.ScoredPair) []model.Cluster {
	d := newDSU()
	for _, e := range edges {
		d.union(d.findOrCreate(e.A), d.findOrCreate(e.B))
	}

	byRoot := make(map[int]int)
	member := make(map[string]bool)
	var out []model.Cluster
	for _, e := range edges {
		root := d.find(d.labels[e.A])
		i, ok := byRoot[root]
		if !ok {
			i = len(out)
			byRoot[root] = i
			out = append(out, model.Cluster{ID: i, Score: e.Prob})
		}
		c := &out[i]
		for _, id := range [2]string{e.A, e.B} {
			if !member[id] {
				member[id] = true
				c.Members = append(c.Members, refA(id))
			}
		}
		c.Score = math.Min(c.Score, e.Prob)
	}
	return out
}
