package labeler

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-linkage/internal/linkage/model"
)

var fields = []model.FieldView{{Field: "sss", A: "acme corp", B: "acme corporation"}}

func TestConsole_Answers(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("y\nmaybe\nn\nu\nf\n"), &out)
	ctx := context.Background()
	pair := model.Pair{A: "a0", B: "b0"}

	var got []model.Decision
	for i := 0; i < 4; i++ {
		d, err := c.NextDecision(ctx, pair, fields)
		require.NoError(t, err)
		got = append(got, d)
	}
	assert.Equal(t, []model.Decision{
		model.DecisionMatch, model.DecisionDistinct, model.DecisionUnsure, model.DecisionFinish,
	}, got)

	m, d, u := c.Counts()
	assert.Equal(t, [3]int{1, 1, 1}, [3]int{m, d, u})
	assert.Contains(t, out.String(), "sss : acme corp\n")
	assert.Contains(t, out.String(), "sss : acme corporation\n")
	assert.Contains(t, out.String(), "Please answer y, n, u or f")
}

func TestConsole_LastLineWithoutNewline(t *testing.T) {
	c := NewConsole(strings.NewReader("y"), &bytes.Buffer{})
	d, err := c.NextDecision(context.Background(), model.Pair{A: "a", B: "b"}, fields)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionMatch, d)
}

func TestConsole_EOFAborts(t *testing.T) {
	c := NewConsole(strings.NewReader("y\n"), &bytes.Buffer{})
	_, err := c.NextDecision(context.Background(), model.Pair{A: "a", B: "b"}, fields)
	require.NoError(t, err)

	_, err = c.NextDecision(context.Background(), model.Pair{A: "a", B: "c"}, fields)
	assert.ErrorIs(t, err, model.ErrLabelingAborted)
}

func TestConsole_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsole(strings.NewReader("y\n"), &bytes.Buffer{})
	_, err := c.NextDecision(ctx, model.Pair{A: "a", B: "b"}, fields)
	assert.ErrorIs(t, err, model.ErrLabelingAborted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScript(t *testing.T) {
	s := NewScript(model.DecisionMatch, model.DecisionFinish)
	ctx := context.Background()

	d, err := s.NextDecision(ctx, model.Pair{A: "a0", B: "b0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionMatch, d)
	d, err = s.NextDecision(ctx, model.Pair{A: "a1", B: "b1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionFinish, d)

	_, err = s.NextDecision(ctx, model.Pair{A: "a2", B: "b2"}, nil)
	assert.ErrorIs(t, err, model.ErrLabelingAborted)
	assert.Equal(t, []model.Pair{{A: "a0", B: "b0"}, {A: "a1", B: "b1"}}, s.Asked())
}

func TestOracle(t *testing.T) {
	o := &Oracle{Same: func(f []model.FieldView) bool { return f[0].A == f[0].B }, Limit: 2}
	ctx := context.Background()

	d, _ := o.NextDecision(ctx, model.Pair{}, []model.FieldView{{A: "x", B: "x"}})
	assert.Equal(t, model.DecisionMatch, d)
	d, _ = o.NextDecision(ctx, model.Pair{}, []model.FieldView{{A: "x", B: "y"}})
	assert.Equal(t, model.DecisionDistinct, d)
	d, _ = o.NextDecision(ctx, model.Pair{}, []model.FieldView{{A: "x", B: "x"}})
	assert.Equal(t, model.DecisionFinish, d)
}

func TestFunc(t *testing.T) {
	var f Func = func(context.Context, model.Pair, []model.FieldView) (model.Decision, error) {
		return model.DecisionUnsure, nil
	}
	d, err := f.NextDecision(context.Background(), model.Pair{}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionUnsure, d)
}
