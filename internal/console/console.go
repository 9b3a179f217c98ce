package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const ruleWidth = 80

type lineResult struct {
	line string
	err  error
}

type Console struct {
	in    *bufio.Reader
	out   io.Writer
	green *color.Color
	red   *color.Color
	bold  *color.Color

	// pending is the read still in flight after a cancelled ReadLine.
	pending chan lineResult
}

func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:    bufio.NewReader(in),
		out:   out,
		green: color.New(color.FgGreen),
		red:   color.New(color.FgRed),
		bold:  color.New(color.Bold),
	}
}

// ReadLine prints prompt and returns the next input line without its line ending.
// Hitting EOF after partial input still returns that input. A cancelled ctx ends
// the wait with ctx.Err() even while the terminal is idle.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)

	if c.pending == nil {
		ch := make(chan lineResult, 1)
		go func() {
			line, err := c.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
		c.pending = ch
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-c.pending:
		c.pending = nil
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if res.err != nil {
			if errors.Is(res.err, io.EOF) && res.line != "" {
				return strings.TrimRight(res.line, "\r\n"), nil
			}
			return "", res.err
		}
		return strings.TrimRight(res.line, "\r\n"), nil
	}
}

func (c *Console) WaitForEnter(ctx context.Context, prompt string) error {
	_, err := c.ReadLine(ctx, prompt)
	return err
}

func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

func (c *Console) Rule(ch string) {
	fmt.Fprintln(c.out, strings.Repeat(ch, ruleWidth))
}

func (c *Console) Title(title string) {
	c.Rule("=")
	c.bold.Fprintln(c.out, title)
	c.Rule("=")
}

func (c *Console) QuestionBanner(question string, maxMark int) {
	fmt.Fprintln(c.out)
	c.Rule("=")
	c.bold.Fprintln(c.out, "NEW QUESTION:")
	fmt.Fprintf(c.out, "Question: %s\n", question)
	fmt.Fprintf(c.out, "Max Mark: %d\n", maxMark)
	c.Rule("=")
}

func (c *Console) AnswerBlock(index, total int, answer string) {
	fmt.Fprintf(c.out, "\n[%d/%d] Student Answer:\n", index, total)
	fmt.Fprintln(c.out, answer)
	c.Rule("-")
}

func (c *Console) Success(msg string) {
	c.green.Fprintf(c.out, "✓ %s\n\n", msg)
}

func (c *Console) Failure(msg string) {
	c.red.Fprintf(c.out, "✗ %s\n\n", msg)
}
