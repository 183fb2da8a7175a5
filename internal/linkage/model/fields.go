package model

import "fmt"

// Kind names a comparator. The set is closed; anything else is rejected
// when the field configuration is loaded.
type Kind string

const (
	KindString      Kind = "String"      // normalized affine-gap distance
	KindShortString Kind = "ShortString" // Jaro-Winkler
	KindFuzzy       Kind = "Fuzzy"       // Damerau-Levenshtein, best of raw and token-sorted
	KindText        Kind = "Text"        // cosine over token counts
	KindExact       Kind = "Exact"
	KindPrice       Kind = "Price" // numeric, bypasses text preprocessing
)

var kinds = map[Kind]bool{
	KindString: true, KindShortString: true, KindFuzzy: true,
	KindText: true, KindExact: true, KindPrice: true,
}

// Textual reports whether values of this kind go through the text
// preprocessor.
func (k Kind) Textual() bool { return k != KindPrice }

const (
	DefaultStrip = `-',`
	DefaultSplit = "/:"
)

// FieldSpec configures one compared field.
type FieldSpec struct {
	Name       string  `yaml:"field" json:"field"`
	Column     string  `yaml:"column,omitempty" json:"column,omitempty"` // input column, "a|b" lists alternatives; empty means Name
	Kind       Kind    `yaml:"type" json:"type"`
	HasMissing bool    `yaml:"has_missing,omitempty" json:"has_missing,omitempty"`
	Strip      *string `yaml:"strip,omitempty" json:"strip,omitempty"` // deleted characters, nil means DefaultStrip
	Split      *string `yaml:"split,omitempty" json:"split,omitempty"` // characters turned into a space, nil means DefaultSplit
}

func (f FieldSpec) SourceColumn() string {
	if f.Column == "" {
		return f.Name
	}
	return f.Column
}

func (f FieldSpec) StripChars() string {
	if f.Strip == nil {
		return DefaultStrip
	}
	return *f.Strip
}

func (f FieldSpec) SplitChars() string {
	if f.Split == nil {
		return DefaultSplit
	}
	return *f.Split
}

// DefaultFields is the supplier name column compared as a plain string.
func DefaultFields() []FieldSpec {
	return []FieldSpec{{Name: "sss", Kind: KindString}}
}

// ValidateFields rejects empty, duplicated or unknown field specs.
func ValidateFields(fields []FieldSpec) error {
	if len(fields) == 0 {
		return NewError(ErrConfiguration, "fields", "", fmt.Errorf("no fields configured"))
	}
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return NewError(ErrConfiguration, "fields", "", fmt.Errorf("field #%d has no name", i))
		}
		if seen[f.Name] {
			return NewError(ErrConfiguration, "fields", "", fmt.Errorf("field %q configured twice", f.Name))
		}
		seen[f.Name] = true
		if !kinds[f.Kind] {
			return NewError(ErrConfiguration, "fields", "", fmt.Errorf("field %q: unknown comparator type %q", f.Name, f.Kind))
		}
	}
	return nil
}
