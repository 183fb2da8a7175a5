// Package labeler provides the collaborators that answer the trainer's
// match questions: an interactive console and scripted sources for tests
// and replays.
package labeler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"record-linkage/internal/linkage/model"
)

// Console asks on out and reads answers from in, one line per answer.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	matches, distincts, unsure int
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) NextDecision(ctx context.Context, pair model.Pair, fields []model.FieldView) (model.Decision, error) {
	c.show(pair, fields)
	for {
		if err := ctx.Err(); err != nil {
			return "", model.NewError(model.ErrLabelingAborted, "labeling", "", err)
		}
		fmt.Fprint(c.out, "Do these records refer to the same thing?\n(y)es / (n)o / (u)nsure / (f)inished\n")

		line, err := c.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if err != nil && answer == "" {
			if err == io.EOF {
				return "", model.NewError(model.ErrLabelingAborted, "labeling", "", io.ErrUnexpectedEOF)
			}
			return "", model.NewError(model.ErrLabelingAborted, "labeling", "", err)
		}

		switch answer {
		case "y", "yes":
			c.matches++
			return model.DecisionMatch, nil
		case "n", "no":
			c.distincts++
			return model.DecisionDistinct, nil
		case "u", "unsure":
			c.unsure++
			return model.DecisionUnsure, nil
		case "f", "finished", "finish":
			fmt.Fprintln(c.out, "Finished labeling")
			return model.DecisionFinish, nil
		default:
			fmt.Fprintln(c.out, "Please answer y, n, u or f")
		}
	}
}

func (c *Console) show(pair model.Pair, fields []model.FieldView) {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Field))
	}
	fmt.Fprintln(c.out)
	for _, f := range fields {
		fmt.Fprintf(c.out, "%-*s : %s\n", width, f.Field, f.A)
	}
	fmt.Fprintln(c.out)
	for _, f := range fields {
		fmt.Fprintf(c.out, "%-*s : %s\n", width, f.Field, f.B)
	}
	fmt.Fprintf(c.out, "\n%s\n%d positive, %d negative, %d unsure\n", pair, c.matches, c.distincts, c.unsure)
}

// Counts reports the answers given in this session.
func (c *Console) Counts() (matches, distincts, unsure int) {
	return c.matches, c.distincts, c.unsure
}
