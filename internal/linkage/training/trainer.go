// Package training owns the classifier lifecycle: it either loads persisted
// settings or samples candidate pairs, asks a labeler about the most
// uncertain ones, fits the classifier, learns blocking rules and persists
// the result.
package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"record-linkage/internal/linkage/blocking"
	"record-linkage/internal/linkage/model"
	"record-linkage/internal/linkage/scoring"
)

type State int

const (
	Unseeded State = iota
	Sampling
	Labeling
	Trained
	Persisted
)

func (s State) String() string {
	switch s {
	case Unseeded:
		return "unseeded"
	case Sampling:
		return "sampling"
	case Labeling:
		return "labeling"
	case Trained:
		return "trained"
	case Persisted:
		return "persisted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Labeler answers one pair at a time. Any error ends the session as
// ErrLabelingAborted.
type Labeler interface {
	NextDecision(ctx context.Context, pair model.Pair, fields []model.FieldView) (model.Decision, error)
}

type Config struct {
	SettingsPath string
	TrainingPath string
	SampleSize   int
	Seed         uint64
	Workers      int
	// ReadOnly forbids training; a missing settings file is ErrNoModel.
	ReadOnly bool
	Learn    blocking.LearnOptions
	Fit      scoring.FitOptions
}

type Trainer struct {
	cfg     Config
	fields  []model.FieldSpec
	labeler Labeler
	log     zerolog.Logger

	state    State
	a, b     *model.Collection
	dedupe   bool
	set      *TrainingSet
	sample   []model.Pair
	random   []model.Pair
	settings *Settings
}

// New returns a trainer in the Unseeded state. labeler may be nil, in
// which case training uses the stored labels only.
func New(cfg Config, fields []model.FieldSpec, labeler Labeler, log zerolog.Logger) *Trainer {
	if cfg.Learn == (blocking.LearnOptions{}) {
		cfg.Learn = blocking.DefaultLearnOptions()
	}
	if cfg.Fit == (scoring.FitOptions{}) {
		cfg.Fit = scoring.DefaultFitOptions()
	}
	return &Trainer{cfg: cfg, fields: fields, labeler: labeler, log: log}
}

func (t *Trainer) State() State { return t.state }

// TrainingSet is nil until sampling has loaded it.
func (t *Trainer) TrainingSet() *TrainingSet { return t.set }

// Load is the entry condition of the state machine: an existing settings
// file moves the trainer straight to Persisted.
func (t *Trainer) Load() (*Settings, bool, error) {
	if err := t.expect("load", Unseeded); err != nil {
		return nil, false, err
	}
	s, found, err := LoadSettings(t.cfg.SettingsPath)
	if err != nil || !found {
		return nil, false, err
	}
	t.warnOnFieldDrift(s.Model.Fields)
	t.settings = s
	t.state = Persisted
	t.log.Info().Str("path", t.cfg.SettingsPath).Int("rules", len(s.Rules)).Msg("loaded settings")
	return s, true, nil
}

// Fresh trains from scratch over a and b (b is ignored in dedupe mode),
// walking Sampling, Labeling, Trained and Persisted in turn.
func (t *Trainer) Fresh(ctx context.Context, a, b *model.Collection, dedupe bool) (*Settings, error) {
	if t.cfg.ReadOnly {
		return nil, model.NewError(model.ErrNoModel, "training", t.cfg.SettingsPath, errors.New("settings file not found"))
	}
	if err := t.Sample(a, b, dedupe); err != nil {
		return nil, err
	}
	if err := t.Label(ctx); err != nil {
		return nil, err
	}
	if _, err := t.Train(); err != nil {
		return nil, err
	}
	if err := t.Persist(); err != nil {
		return nil, err
	}
	return t.settings, nil
}

// Resolve loads the persisted settings or, when there are none, trains
// fresh ones.
func (t *Trainer) Resolve(ctx context.Context, a, b *model.Collection, dedupe bool) (*Settings, error) {
	s, found, err := t.Load()
	if err != nil {
		return nil, err
	}
	if found {
		return s, nil
	}
	return t.Fresh(ctx, a, b, dedupe)
}

func (t *Trainer) expect(op string, states ...State) error {
	for _, s := range states {
		if t.state == s {
			return nil
		}
	}
	return fmt.Errorf("training: cannot %s in state %s", op, t.state)
}

// Sample loads the stored labels and draws the pairs to ask about: a
// bounded sample of candidates blocked with the default rules, plus as many
// random pairs for predicate learning.
func (t *Trainer) Sample(a, b *model.Collection, dedupe bool) error {
	if err := t.expect("sample", Unseeded); err != nil {
		return err
	}
	t.state = Sampling
	started := time.Now()

	set, err := LoadTrainingSet(t.cfg.TrainingPath)
	if err != nil {
		return err
	}
	t.set = set
	if dedupe {
		b = a
	}
	t.a, t.b, t.dedupe = a, b, dedupe

	bl, err := blocking.New(blocking.DefaultRules(t.fields), blocking.WithWorkers(t.cfg.Workers), blocking.WithLogger(t.log))
	if err != nil {
		return err
	}
	var candidates []model.Pair
	if dedupe {
		candidates = bl.Dedupe(a)
	} else {
		candidates = bl.Link(a, b)
	}

	rng := newRand(t.cfg.Seed)
	t.sample = SamplePairs(candidates, t.cfg.SampleSize, rng)
	t.random = RandomPairs(a.IDs(), b.IDs(), t.cfg.SampleSize, dedupe, rng)

	m, d, u := set.Counts()
	t.log.Info().
		Int("candidates", len(candidates)).
		Int("sample", len(t.sample)).
		Int("random", len(t.random)).
		Int("stored_match", m).
		Int("stored_distinct", d).
		Int("stored_unsure", u).
		Dur("elapsed", time.Since(started)).
		Msg("sampled")
	return nil
}

// Label asks the labeler about the sampled pair the current model is least
// sure of, refitting after every answer, until the labeler says finish or
// no unlabeled pair is left. Pairs already in the training set are never
// asked again.
func (t *Trainer) Label(ctx context.Context) error {
	if err := t.expect("label", Sampling, Labeling); err != nil {
		return err
	}
	t.state = Labeling
	if t.labeler == nil {
		return nil
	}

	current, err := t.fitOrPrior()
	if err != nil {
		return err
	}
	scorer := scoring.NewScorer(t.cfg.Workers, t.log)
	asked := 0
	for {
		if err := ctx.Err(); err != nil {
			return model.NewError(model.ErrLabelingAborted, "labeling", "", err)
		}
		pair, ok, err := t.mostUncertain(scorer, current)
		if err != nil {
			return err
		}
		if !ok {
			t.logLabelingEnd(asked, "no unlabeled pairs left")
			return nil
		}
		ra, _ := t.a.Get(pair.A)
		rb, _ := t.b.Get(pair.B)

		d, err := t.labeler.NextDecision(ctx, pair, current.Featurizer().Render(ra, rb))
		if err != nil {
			if errors.Is(err, model.ErrLabelingAborted) {
				return err
			}
			return model.NewError(model.ErrLabelingAborted, "labeling", "", err)
		}
		if d == model.DecisionFinish {
			t.logLabelingEnd(asked, "labeling finished")
			return nil
		}
		label, ok := d.Label()
		if !ok {
			return model.NewError(model.ErrLabelingAborted, "labeling", "", fmt.Errorf("unknown decision %q", d))
		}
		asked++
		t.set.Add(LabeledPair{A: pair.A, B: pair.B, Label: label, FieldsA: ra.Fields, FieldsB: rb.Fields})
		if label == model.LabelUnsure {
			continue
		}
		if m, err := t.fit(); err == nil {
			current = m
		} else if !errors.Is(err, model.ErrInsufficientTrainingData) {
			return err
		}
	}
}

// sessionCounter is implemented by labelers that keep their own tally,
// such as the console.
type sessionCounter interface {
	Counts() (matches, distincts, unsure int)
}

func (t *Trainer) logLabelingEnd(asked int, msg string) {
	ev := t.log.Info().Int("asked", asked)
	if c, ok := t.labeler.(sessionCounter); ok {
		m, d, u := c.Counts()
		ev = ev.Int("session_match", m).Int("session_distinct", d).Int("session_unsure", u)
	}
	ev.Msg(msg)
}

// mostUncertain returns the unlabeled sample pair whose probability is
// closest to 0.5. Ties go to the earlier pair.
func (t *Trainer) mostUncertain(scorer *scoring.Scorer, m *scoring.Model) (model.Pair, bool, error) {
	open := make([]model.Pair, 0, len(t.sample))
	for _, p := range t.sample {
		if !t.set.Has(p) {
			open = append(open, p)
		}
	}
	if len(open) == 0 {
		return model.Pair{}, false, nil
	}
	scored, err := scorer.ScoreAll(open, t.a.Get, t.b.Get, m)
	if err != nil {
		return model.Pair{}, false, err
	}
	best, bestDist := -1, math.Inf(1)
	for i, sp := range scored {
		if d := math.Abs(sp.Prob - 0.5); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return model.Pair{}, false, nil
	}
	return scored[best].Pair, true, nil
}

func (t *Trainer) fitOrPrior() (*scoring.Model, error) {
	m, err := t.fit()
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, model.ErrInsufficientTrainingData) {
		return nil, err
	}
	return scoring.Prior(t.fields)
}

func (t *Trainer) fit() (*scoring.Model, error) {
	m, err := scoring.NewModel(t.fields)
	if err != nil {
		return nil, err
	}
	matches, distincts := t.set.Examples()
	feat := m.Featurizer()
	x := make([][]float64, 0, len(matches)+len(distincts))
	y := make([]bool, 0, cap(x))
	for _, e := range matches {
		x = append(x, feat.Vector(e.A, e.B))
		y = append(y, true)
	}
	for _, e := range distincts {
		x = append(x, feat.Vector(e.A, e.B))
		y = append(y, false)
	}
	if err := m.Fit(x, y, t.cfg.Fit); err != nil {
		return nil, err
	}
	return m, nil
}

// Train fits the classifier on the training set and learns the blocking
// rules from its matches. Without at least one match and one distinct label
// it fails with ErrInsufficientTrainingData.
func (t *Trainer) Train() (*Settings, error) {
	if err := t.expect("train", Labeling); err != nil {
		return nil, err
	}
	started := time.Now()
	m, err := t.fit()
	if err != nil {
		return nil, err
	}

	matches, distincts := t.set.Examples()
	nonMatches := distincts
	for _, p := range t.random {
		if t.set.Has(p) {
			continue
		}
		ra, okA := t.a.Get(p.A)
		rb, okB := t.b.Get(p.B)
		if okA && okB {
			nonMatches = append(nonMatches, blocking.Example{A: ra, B: rb})
		}
	}
	rules, covered := blocking.Learn(blocking.CandidateRules(t.fields), matches, nonMatches, t.cfg.Learn)
	if len(rules) == 0 {
		rules = blocking.DefaultRules(t.fields)
		t.log.Warn().Msg("no blocking rule learned, using default rules")
	}

	t.settings = &Settings{Model: m, Rules: rules}
	t.state = Trained

	ev := t.log.Info().
		Int("matches", len(matches)).
		Int("distincts", len(distincts)).
		Int("covered", covered).
		Float64("bias", m.Bias).
		Dur("elapsed", time.Since(started))
	for i, name := range m.Featurizer().Names() {
		ev = ev.Float64("w_"+name, m.Weights[i])
	}
	ev.Strs("rules", ruleNames(rules)).Msg("trained")
	return t.settings, nil
}

func ruleNames(rules []blocking.Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.String()
	}
	return out
}

// Persist appends the new labels to the training file and writes the
// settings file.
func (t *Trainer) Persist() error {
	if err := t.expect("persist", Trained); err != nil {
		return err
	}
	n, err := t.set.Append(t.cfg.TrainingPath)
	if err != nil {
		return err
	}
	if err := SaveSettings(t.cfg.SettingsPath, t.settings); err != nil {
		return err
	}
	t.state = Persisted
	t.log.Info().
		Int("labels_written", n).
		Str("training", t.cfg.TrainingPath).
		Str("settings", t.cfg.SettingsPath).
		Msg("persisted")
	return nil
}

func (t *Trainer) warnOnFieldDrift(stored []model.FieldSpec) {
	if len(stored) != len(t.fields) {
		t.log.Warn().Msg("settings file was trained on other fields, using its fields")
		return
	}
	for i := range stored {
		if stored[i].Name != t.fields[i].Name || stored[i].Kind != t.fields[i].Kind {
			t.log.Warn().Msg("settings file was trained on other fields, using its fields")
			return
		}
	}
}
