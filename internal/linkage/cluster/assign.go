package cluster

import "record-linkage/internal/linkage/model"

// Assign flattens clusters into one assignment per clustered record. With
// complete set, records of collections that are in no cluster follow as
// singletons with fresh ids after the last cluster and no score, in the
// order the collections are given.
func Assign(clusters []model.Cluster, complete bool, collections ...*model.Collection) []model.Assignment {
	var out []model.Assignment
	seen := make(map[model.RecordRef]bool)
	next := 0
	for _, c := range clusters {
		score := c.Score
		for _, m := range c.Members {
			seen[m] = true
			out = append(out, model.Assignment{Ref: m, ClusterID: c.ID, Score: &score})
		}
		next = max(next, c.ID+1)
	}
	if !complete {
		return out
	}
	for _, col := range collections {
		for _, id := range col.IDs() {
			ref := model.RecordRef{Source: col.Source, ID: id}
			if seen[ref] {
				continue
			}
			seen[ref] = true
			out = append(out, model.Assignment{Ref: ref, ClusterID: next})
			next++
		}
	}
	return out
}
