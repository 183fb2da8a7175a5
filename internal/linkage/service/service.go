// Package service runs the linkage pipeline end to end.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"record-linkage/internal/linkage/blocking"
	"record-linkage/internal/linkage/cluster"
	"record-linkage/internal/linkage/model"
	"record-linkage/internal/linkage/preprocess"
	"record-linkage/internal/linkage/scoring"
	"record-linkage/internal/linkage/training"
	"record-linkage/internal/metrics"
)

type Config struct {
	Mode      model.Mode
	Threshold float64
	// Complete gives every unmatched record its own cluster id in the
	// assignments.
	Complete bool
	Workers  int
	Training training.Config
}

// Linker links two collections, or deduplicates one, with a persisted or
// freshly trained model.
type Linker struct {
	cfg     Config
	fields  []model.FieldSpec
	labeler training.Labeler
	log     zerolog.Logger
}

func New(cfg Config, fields []model.FieldSpec, labeler training.Labeler, log zerolog.Logger) (*Linker, error) {
	if err := model.ValidateFields(fields); err != nil {
		return nil, err
	}
	mode, err := model.ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, model.NewError(model.ErrConfiguration, "config", "", fmt.Errorf("threshold %v outside [0,1]", cfg.Threshold))
	}
	if cfg.Training.Workers == 0 {
		cfg.Training.Workers = cfg.Workers
	}
	return &Linker{cfg: cfg, fields: fields, labeler: labeler, log: log}, nil
}

type Result struct {
	Mode        model.Mode         `json:"mode"`
	Threshold   float64            `json:"threshold"`
	Clusters    []model.Cluster    `json:"clusters"`
	Assignments []model.Assignment `json:"assignments"`
	Candidates  int                `json:"candidates"`
	Matches     int                `json:"matches"`
	Trained     bool               `json:"trained"` // false when the settings file was used
	Elapsed     time.Duration      `json:"elapsed"`
}

// Run links a (the procurement ledger) with b (the supplier master). In
// dedupe mode b may be nil; when given, its records join a's.
func (l *Linker) Run(ctx context.Context, a, b *model.Collection) (*Result, error) {
	res, err := l.run(ctx, a, b)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RunsTotal.WithLabelValues(string(l.cfg.Mode), status).Inc()
	return res, err
}

func (l *Linker) run(ctx context.Context, a, b *model.Collection) (*Result, error) {
	started := time.Now()
	log := l.log.With().Str("run", uuid.NewString()).Logger()
	dedupe := l.cfg.Mode == model.ModeDedupe
	if dedupe {
		merged, err := Merge(a, b)
		if err != nil {
			return nil, err
		}
		a, b = merged, merged
	} else if b == nil {
		return nil, model.NewError(model.ErrConfiguration, "link", "", fmt.Errorf("mode %s needs two collections", l.cfg.Mode))
	}

	trainer := training.New(l.cfg.Training, l.fields, l.labeler, log)
	settings, found, err := trainer.Load()
	if err != nil {
		return nil, err
	}
	fields := l.fields
	if found {
		fields = settings.Model.Fields
	}

	phase := time.Now()
	pre := preprocess.New(fields)
	pre.Apply(a)
	if !dedupe {
		pre.Apply(b)
	}
	observe("preprocess", phase)

	if !found {
		phase = time.Now()
		settings, err = trainer.Fresh(ctx, a, b, dedupe)
		if err != nil {
			return nil, err
		}
		observe("training", phase)
	}

	phase = time.Now()
	bl, err := blocking.New(settings.Rules, blocking.WithWorkers(l.cfg.Workers), blocking.WithLogger(log))
	if err != nil {
		return nil, err
	}
	var pairs []model.Pair
	if dedupe {
		pairs = bl.Dedupe(a)
	} else {
		pairs = bl.Link(a, b)
	}
	metrics.CandidatePairs.Observe(float64(len(pairs)))
	observe("blocking", phase)
	log.Debug().Str("rules", fmt.Sprint(bl.Rules())).Int("candidates", len(pairs)).Msg("blocking done")

	phase = time.Now()
	scored, err := scoring.NewScorer(l.cfg.Workers, log).ScoreAll(pairs, a.Get, b.Get, settings.Model)
	if err != nil {
		return nil, err
	}
	observe("scoring", phase)

	phase = time.Now()
	clusters, err := cluster.Build(scored, cluster.Options{Threshold: l.cfg.Threshold, Mode: l.cfg.Mode})
	if err != nil {
		return nil, err
	}
	matches := 0
	for _, sp := range scored {
		if cluster.Keep(sp.Prob, l.cfg.Threshold) {
			matches++
		}
	}
	var assignments []model.Assignment
	if dedupe {
		assignments = cluster.Assign(clusters, l.cfg.Complete, a)
	} else {
		assignments = cluster.Assign(clusters, l.cfg.Complete, b, a)
	}
	observe("clustering", phase)
	metrics.MatchesTotal.Add(float64(matches))
	metrics.ClustersTotal.WithLabelValues(string(l.cfg.Mode)).Add(float64(len(clusters)))

	res := &Result{
		Mode:        l.cfg.Mode,
		Threshold:   l.cfg.Threshold,
		Clusters:    clusters,
		Assignments: assignments,
		Candidates:  len(pairs),
		Matches:     matches,
		Trained:     !found,
		Elapsed:     time.Since(started),
	}
	log.Info().
		Str("mode", string(l.cfg.Mode)).
		Int("records_a", a.Len()).
		Int("records_b", b.Len()).
		Int("candidates", res.Candidates).
		Int("matches", res.Matches).
		Int("clusters", len(clusters)).
		Dur("elapsed", res.Elapsed).
		Msg("linkage done")
	return res, nil
}

func observe(phase string, since time.Time) {
	metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(since).Seconds())
}

// Merge joins collections for dedupe mode. Ids must stay unique across
// them; nil collections are skipped.
func Merge(cs ...*model.Collection) (*model.Collection, error) {
	var out *model.Collection
	for _, c := range cs {
		if c == nil {
			continue
		}
		if out == nil {
			out = model.NewCollection(c.Name, model.SourceA)
		}
		for _, id := range c.IDs() {
			r, _ := c.Get(id)
			if err := out.Add(r); err != nil {
				return nil, err
			}
		}
	}
	if out == nil {
		return nil, model.NewError(model.ErrConfiguration, "link", "", fmt.Errorf("no records to deduplicate"))
	}
	return out, nil
}
