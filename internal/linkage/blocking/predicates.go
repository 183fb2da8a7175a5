package blocking

import (
	"fmt"
	"sort"
	"strings"

	"record-linkage/internal/linkage/model"
)

// PredicateKind names a cheap key function over one field value.
type PredicateKind string

const (
	PredWhole        PredicateKind = "whole"         // the full value
	PredToken        PredicateKind = "token"         // each word
	PredNGram        PredicateKind = "ngram"         // each n-gram of the space-padded value
	PredPrefix       PredicateKind = "prefix"        // first n runes
	PredSortedPrefix PredicateKind = "sorted-prefix" // first n runes after sorting the words
)

// Rule applies one predicate to one field. Two records share a block under a
// rule when their key sets intersect.
type Rule struct {
	Field string        `json:"field"`
	Kind  PredicateKind `json:"kind"`
	N     int           `json:"n,omitempty"`
}

func (r Rule) String() string {
	if r.N > 0 {
		return fmt.Sprintf("%s%d(%s)", r.Kind, r.N, r.Field)
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Field)
}

func (r Rule) Validate() error {
	switch r.Kind {
	case PredWhole, PredToken:
	case PredNGram, PredPrefix, PredSortedPrefix:
		if r.N <= 0 {
			return model.NewError(model.ErrConfiguration, "blocking", "", fmt.Errorf("rule %s needs n > 0", r))
		}
	default:
		return model.NewError(model.ErrConfiguration, "blocking", "", fmt.Errorf("unknown predicate %q", r.Kind))
	}
	if r.Field == "" {
		return model.NewError(model.ErrConfiguration, "blocking", "", fmt.Errorf("rule %s has no field", r))
	}
	return nil
}

// Keys returns the distinct blocking keys of value, sorted. A null or empty
// value has no keys and therefore blocks with nothing.
func (r Rule) Keys(value string) []string {
	if value == "" {
		return nil
	}
	var keys []string
	switch r.Kind {
	case PredWhole:
		return []string{value}
	case PredToken:
		keys = strings.Fields(value)
	case PredNGram:
		keys = ngrams(value, r.N)
	case PredPrefix:
		return []string{runePrefix(value, r.N)}
	case PredSortedPrefix:
		return []string{runePrefix(tokenSort(value), r.N)}
	}
	return uniqueSorted(keys)
}

// Covers reports whether x and y share a block under r.
func (r Rule) Covers(x, y model.Record) bool {
	vx, okX := x.Value(r.Field)
	vy, okY := y.Value(r.Field)
	if !okX || !okY {
		return false
	}
	ky := r.Keys(vy)
	for _, k := range r.Keys(vx) {
		i := sort.SearchStrings(ky, k)
		if i < len(ky) && ky[i] == k {
			return true
		}
	}
	return false
}

// ngrams pads s with a space on both sides so that word starts and ends
// get their own grams. Strings shorter than n yield the padded string.
func ngrams(s string, n int) []string {
	r := []rune(" " + s + " ")
	if len(r) <= n {
		return []string{string(r)}
	}
	out := make([]string, 0, len(r)-n+1)
	for i := 0; i+n <= len(r); i++ {
		out = append(out, string(r[i:i+n]))
	}
	return out
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tokenSort(s string) string {
	t := strings.Fields(s)
	sort.Strings(t)
	return strings.Join(t, " ")
}

func uniqueSorted(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	out := keys[:1]
	for _, k := range keys[1:] {
		if k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}

// CandidateRules is the pool predicate learning chooses from. Text fields
// get every predicate type; numeric and exact fields block on the whole
// value only.
func CandidateRules(fields []model.FieldSpec) []Rule {
	var out []Rule
	for _, f := range fields {
		if f.Kind == model.KindPrice || f.Kind == model.KindExact {
			out = append(out, Rule{Field: f.Name, Kind: PredWhole})
			continue
		}
		out = append(out,
			Rule{Field: f.Name, Kind: PredWhole},
			Rule{Field: f.Name, Kind: PredToken},
			Rule{Field: f.Name, Kind: PredNGram, N: 3},
			Rule{Field: f.Name, Kind: PredNGram, N: 5},
			Rule{Field: f.Name, Kind: PredPrefix, N: 3},
			Rule{Field: f.Name, Kind: PredPrefix, N: 6},
			Rule{Field: f.Name, Kind: PredSortedPrefix, N: 4},
		)
	}
	return out
}

// DefaultRules is used when there are no labeled matches to learn from:
// shared word or same sorted prefix on every text field.
func DefaultRules(fields []model.FieldSpec) []Rule {
	var out []Rule
	for _, f := range fields {
		if !f.Kind.Textual() || f.Kind == model.KindExact {
			out = append(out, Rule{Field: f.Name, Kind: PredWhole})
			continue
		}
		out = append(out,
			Rule{Field: f.Name, Kind: PredToken},
			Rule{Field: f.Name, Kind: PredSortedPrefix, N: 4},
		)
	}
	return out
}
