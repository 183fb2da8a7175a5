package training

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"record-linkage/internal/linkage/blocking"
	"record-linkage/internal/linkage/model"
)

// LabeledPair is one line of the training file. Field values are stored
// with the label so the pair can be refitted without the source rows.
type LabeledPair struct {
	A       string            `json:"a"`
	B       string            `json:"b"`
	Label   model.Label       `json:"label"`
	FieldsA map[string]string `json:"fields_a,omitempty"`
	FieldsB map[string]string `json:"fields_b,omitempty"`
}

func (l LabeledPair) Pair() model.Pair { return model.Pair{A: l.A, B: l.B} }

func (l LabeledPair) Example() blocking.Example {
	return blocking.Example{
		A: model.Record{ID: l.A, Source: model.SourceA, Fields: l.FieldsA},
		B: model.Record{ID: l.B, Source: model.SourceB, Fields: l.FieldsB},
	}
}

// TrainingSet is the append-only label store, deduplicated by pair.
type TrainingSet struct {
	entries []LabeledPair
	index   map[string]int
	onDisk  int
}

func NewTrainingSet() *TrainingSet {
	return &TrainingSet{index: make(map[string]int)}
}

// LoadTrainingSet reads a JSON-lines training file. A missing file is an
// empty set; a line that does not parse is ErrPersistedStateCorrupt.
func LoadTrainingSet(path string) (*TrainingSet, error) {
	s := NewTrainingSet()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open training file %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var lp LabeledPair
		if err := json.Unmarshal(raw, &lp); err != nil {
			return nil, model.NewError(model.ErrPersistedStateCorrupt, "training", path, fmt.Errorf("line %d: %w", line, err))
		}
		lbl, err := model.ParseLabel(string(lp.Label))
		if err != nil || lp.A == "" || lp.B == "" {
			return nil, model.NewError(model.ErrPersistedStateCorrupt, "training", path, fmt.Errorf("line %d: bad entry", line))
		}
		lp.Label = lbl
		s.Add(lp)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read training file %s", path)
	}
	s.onDisk = len(s.entries)
	return s, nil
}

// Add stores l unless its pair is already labeled. The first label wins.
func (s *TrainingSet) Add(l LabeledPair) bool {
	k := l.Pair().Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.entries)
	s.entries = append(s.entries, l)
	return true
}

func (s *TrainingSet) Has(p model.Pair) bool {
	_, ok := s.index[p.Key()]
	return ok
}

func (s *TrainingSet) Len() int { return len(s.entries) }

func (s *TrainingSet) Counts() (match, distinct, unsure int) {
	for _, e := range s.entries {
		switch e.Label {
		case model.LabelMatch:
			match++
		case model.LabelDistinct:
			distinct++
		default:
			unsure++
		}
	}
	return
}

// Examples splits the set into labeled matches and distinct pairs. Unsure
// labels are kept in the file but never used for fitting.
func (s *TrainingSet) Examples() (matches, distincts []blocking.Example) {
	for _, e := range s.entries {
		switch e.Label {
		case model.LabelMatch:
			matches = append(matches, e.Example())
		case model.LabelDistinct:
			distincts = append(distincts, e.Example())
		}
	}
	return
}

// Append writes the labels added since the set was loaded to the end of
// path, creating it when needed. It returns the number of lines written.
func (s *TrainingSet) Append(path string) (int, error) {
	pending := s.entries[s.onDisk:]
	if len(pending) == 0 {
		return 0, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, errors.Wrapf(err, "open training file %s", path)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range pending {
		if err := enc.Encode(e); err != nil {
			f.Close()
			return 0, errors.Wrapf(err, "write training file %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return 0, errors.Wrapf(err, "write training file %s", path)
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrapf(err, "close training file %s", path)
	}
	s.onDisk = len(s.entries)
	return len(pending), nil
}
