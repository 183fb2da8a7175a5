package model

import (
	"fmt"
	"strings"
)

// Source identifies which of the two collections a record came from.
type Source int

const (
	SourceA Source = iota // procurement ledger (unmatched rows)
	SourceB               // supplier master table
)

func (s Source) String() string {
	switch s {
	case SourceA:
		return "A"
	case SourceB:
		return "B"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Record is one row of a collection. A field absent from Fields is null.
type Record struct {
	ID     string
	Source Source
	Fields map[string]string // comparison values, cleaned in place by the preprocessor
	Raw    map[string]string // untouched input row, echoed by output sinks
}

// Value returns the cleaned value of field and whether it is non-null.
func (r Record) Value(field string) (string, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Ref is the (source, id) identity of a record.
func (r Record) Ref() RecordRef { return RecordRef{Source: r.Source, ID: r.ID} }

// RecordRef identifies a record across both collections.
type RecordRef struct {
	Source Source `json:"source"`
	ID     string `json:"id"`
}

func (r RecordRef) String() string { return r.Source.String() + ":" + r.ID }

// Collection is the set of records of one source. Iteration follows
// insertion order so that runs are reproducible.
type Collection struct {
	Name    string
	Source  Source
	order   []string
	records map[string]Record
}

func NewCollection(name string, src Source) *Collection {
	return &Collection{Name: name, Source: src, records: make(map[string]Record)}
}

// Add inserts r, stamping the collection's source on it. Ids must be unique.
func (c *Collection) Add(r Record) error {
	if r.ID == "" {
		return NewError(ErrConfiguration, "source", c.Name, fmt.Errorf("record without id"))
	}
	if _, ok := c.records[r.ID]; ok {
		return NewError(ErrConfiguration, "source", c.Name, fmt.Errorf("duplicate record id %q", r.ID))
	}
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Source = c.Source
	c.records[r.ID] = r
	c.order = append(c.order, r.ID)
	return nil
}

func (c *Collection) Get(id string) (Record, bool) {
	r, ok := c.records[id]
	return r, ok
}

// IDs returns record ids in insertion order.
func (c *Collection) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Collection) Len() int { return len(c.order) }

// Pair is a candidate pair. In link modes A belongs to collection A and B to
// collection B; in dedupe mode both come from the same collection and A < B.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Key is the identity used to deduplicate pairs and labels.
func (p Pair) Key() string { return p.A + "\x1f" + p.B }

func (p Pair) String() string { return "(" + p.A + ", " + p.B + ")" }

// Ordered returns p with A <= B, used when both ids share one collection.
func (p Pair) Ordered() Pair {
	if p.B < p.A {
		return Pair{A: p.B, B: p.A}
	}
	return p
}

// ScoredPair is a candidate pair with its match probability.
type ScoredPair struct {
	Pair
	Prob float64 `json:"prob"`
}

// Label is a judgement about a candidate pair.
type Label string

const (
	LabelMatch    Label = "match"
	LabelDistinct Label = "distinct"
	LabelUnsure   Label = "unsure"
)

func ParseLabel(s string) (Label, error) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case LabelMatch:
		return LabelMatch, nil
	case LabelDistinct:
		return LabelDistinct, nil
	case LabelUnsure:
		return LabelUnsure, nil
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// Decision is what a labeling collaborator answers for one pair.
type Decision string

const (
	DecisionMatch    Decision = "match"
	DecisionDistinct Decision = "distinct"
	DecisionUnsure   Decision = "unsure"
	DecisionFinish   Decision = "finish"
)

// Label converts a decision into a label; finish has none.
func (d Decision) Label() (Label, bool) {
	switch d {
	case DecisionMatch:
		return LabelMatch, true
	case DecisionDistinct:
		return LabelDistinct, true
	case DecisionUnsure:
		return LabelUnsure, true
	}
	return "", false
}

// Mode selects the cluster formation constraint.
type Mode string

const (
	ModeOneToOne  Mode = "one-to-one"  // strict record linkage
	ModeManyToOne Mode = "many-to-one" // each A record joins at most one B record
	ModeDedupe    Mode = "dedupe"      // connected components, many-to-many
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOneToOne, ModeManyToOne, ModeDedupe:
		return m, nil
	case "":
		return ModeOneToOne, nil
	}
	return "", NewError(ErrConfiguration, "config", "", fmt.Errorf("unknown link mode %q", s))
}

// Cluster is a group of records judged to denote one supplier.
type Cluster struct {
	ID      int         `json:"cluster_id"`
	Members []RecordRef `json:"members"`
	Score   float64     `json:"score"` // minimum edge probability inside the cluster
}

// Assignment places a single record in the output. Score is nil for records
// that matched nothing and received a fresh singleton id.
type Assignment struct {
	Ref       RecordRef `json:"ref"`
	ClusterID int       `json:"cluster_id"`
	Score     *float64  `json:"score,omitempty"`
}

// FieldView is one configured field of a pair as shown to a labeler.
type FieldView struct {
	Field string
	A     string
	B     string
}
