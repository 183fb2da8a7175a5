package labeler

import (
	"context"
	"errors"

	"record-linkage/internal/linkage/model"
)

// Func adapts a plain function to the labeler interface.
type Func func(ctx context.Context, pair model.Pair, fields []model.FieldView) (model.Decision, error)

func (f Func) NextDecision(ctx context.Context, pair model.Pair, fields []model.FieldView) (model.Decision, error) {
	return f(ctx, pair, fields)
}

// Script replays a fixed list of decisions. Running past the end is a
// disconnect.
type Script struct {
	decisions []model.Decision
	asked     []model.Pair
}

func NewScript(decisions ...model.Decision) *Script {
	return &Script{decisions: decisions}
}

func (s *Script) NextDecision(_ context.Context, pair model.Pair, _ []model.FieldView) (model.Decision, error) {
	if len(s.asked) >= len(s.decisions) {
		return "", model.NewError(model.ErrLabelingAborted, "labeling", "", errors.New("script exhausted"))
	}
	d := s.decisions[len(s.asked)]
	s.asked = append(s.asked, pair)
	return d, nil
}

// Asked lists the pairs seen so far, in order.
func (s *Script) Asked() []model.Pair { return s.asked }

// Oracle answers from a truth function over the rendered fields and says
// finish after limit answers.
type Oracle struct {
	Same  func(fields []model.FieldView) bool
	Limit int

	answered int
}

func (o *Oracle) NextDecision(_ context.Context, _ model.Pair, fields []model.FieldView) (model.Decision, error) {
	if o.Limit > 0 && o.answered >= o.Limit {
		return model.DecisionFinish, nil
	}
	o.answered++
	if o.Same(fields) {
		return model.DecisionMatch, nil
	}
	return model.DecisionDistinct, nil
}
