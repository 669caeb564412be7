package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"hush/internal/hush"
)

const (
	prompt             = "hush> "
	continuationPrompt = "....> "
	replFilename       = "<repl>"
)

// repl reads statements interactively. Declarations persist between
// inputs, and a statement that is not yet complete continues on the next
// line.
func (a *app) repl(e *hush.Evaluator, historyFile string) int {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	var input strings.Builder
	for {
		p := prompt
		if input.Len() > 0 {
			p = continuationPrompt
		}
		text, err := line.Prompt(p)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			input.Reset()
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(a.stdout)
			return StatusOK
		case err != nil:
			fmt.Fprintf(a.stderr, "%s %v\n", a.red.Sprint("Error:"), err)
			return StatusInvocation
		}

		input.WriteString(text)
		input.WriteString("\n")
		source := input.String()
		if strings.TrimSpace(source) == "" {
			input.Reset()
			continue
		}
		if needsMoreInput(source) {
			continue
		}
		input.Reset()
		line.AppendHistory(strings.TrimSpace(source))

		v, err := e.Execute(source, replFilename)
		var exit *hush.ExitError
		if errors.As(err, &exit) {
			return exit.Code
		}
		if err != nil {
			a.report(err)
			continue
		}
		if _, isNil := v.(hush.Nil); !isNil {
			fmt.Fprintln(a.stdout, hush.Inspect(v))
		}
	}
}

// needsMoreInput reports whether source failed to parse only because it
// ended too early.
func needsMoreInput(source string) bool {
	_, err := hush.Parse(source, replFilename)
	var d *hush.Diagnostic
	if !errors.As(err, &d) {
		return false
	}
	return strings.HasSuffix(d.Msg, "got 'end of file'") || strings.HasPrefix(d.Msg, "unterminated")
}
