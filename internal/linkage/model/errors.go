package model

import (
	"errors"
	"strings"
)

var (
	ErrConfiguration            = errors.New("configuration error")
	ErrInsufficientTrainingData = errors.New("insufficient training data")
	ErrPersistedStateCorrupt    = errors.New("persisted state corrupt")
	ErrLabelingAborted          = errors.New("labeling aborted")
	ErrNoModel                  = errors.New("no trained model")
)

// Error ties one of the sentinel kinds above to the phase and file that
// produced it. errors.Is matches both the kind and the wrapped cause.
type Error struct {
	Kind  error
	Phase string
	Path  string
	Err   error
}

func NewError(kind error, phase, path string, err error) *Error {
	return &Error{Kind: kind, Phase: phase, Path: path, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Phase != "" {
		b.WriteString(e.Phase)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
