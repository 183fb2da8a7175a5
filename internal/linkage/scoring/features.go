// Package scoring turns candidate pairs into match probabilities: a
// featurizer compares the configured fields and a logistic model combines
// the comparisons.
package scoring

import (
	"record-linkage/internal/linkage/compare"
	"record-linkage/internal/linkage/model"
)

// Featurizer builds the fixed-length feature vector of a pair: one
// similarity per field, followed by a missing indicator for fields that
// ask for one.
type Featurizer struct {
	fields []model.FieldSpec
	funcs  []compare.Func
	width  int
}

func NewFeaturizer(fields []model.FieldSpec) (*Featurizer, error) {
	if err := model.ValidateFields(fields); err != nil {
		return nil, err
	}
	f := &Featurizer{fields: fields, funcs: make([]compare.Func, len(fields))}
	for i, fs := range fields {
		fn, err := compare.For(fs.Kind)
		if err != nil {
			return nil, err
		}
		f.funcs[i] = fn
		f.width++
		if fs.HasMissing {
			f.width++
		}
	}
	return f, nil
}

// Len is the feature vector length.
func (f *Featurizer) Len() int { return f.width }

// Names labels each vector position, used in logs.
func (f *Featurizer) Names() []string {
	out := make([]string, 0, f.width)
	for _, fs := range f.fields {
		out = append(out, fs.Name)
		if fs.HasMissing {
			out = append(out, fs.Name+":missing")
		}
	}
	return out
}

// Vector compares a and b. A null on either side scores 0; with
// has_missing the indicator that follows is 1.
func (f *Featurizer) Vector(a, b model.Record) []float64 {
	out := make([]float64, 0, f.width)
	for i, fs := range f.fields {
		va, okA := a.Value(fs.Name)
		vb, okB := b.Value(fs.Name)
		missing := !okA || !okB
		if missing {
			out = append(out, 0)
		} else {
			out = append(out, f.funcs[i](va, vb))
		}
		if fs.HasMissing {
			if missing {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// Render lists the configured fields of a and b side by side. Nulls are
// shown as empty strings.
func (f *Featurizer) Render(a, b model.Record) []model.FieldView {
	out := make([]model.FieldView, len(f.fields))
	for i, fs := range f.fields {
		va, _ := a.Value(fs.Name)
		vb, _ := b.Value(fs.Name)
		out[i] = model.FieldView{Field: fs.Name, A: va, B: vb}
	}
	return out
}
