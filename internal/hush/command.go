package hush

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	statusSpawnFailure = 0x7F
	statusSignalBase   = 0xFF
)

type execRedirect struct {
	kind     RedirectKind
	fd       int
	targetFd int
	target   string
}

func (r execRedirect) String() string {
	fd := ""
	if r.fd == 2 {
		fd = "2"
	}
	if r.targetFd >= 0 {
		return fmt.Sprintf("%s%s%d", fd, r.kind, r.targetFd)
	}
	return fmt.Sprintf("%s%s %q", fd, r.kind, r.target)
}

type execStage struct {
	argv      []string
	redirects []execRedirect
	allowFail bool
	pos       Pos
}

type execCommand struct {
	builtin string
	stages  []*execStage
}

// execBlock is a command block with every argument already expanded, so it
// can run without touching the evaluator's frames.
type execBlock struct {
	kind     BlockKind
	commands []*execCommand
	pos      Pos
}

func (e *Evaluator) evalCommandBlock(f *frame, b *CommandBlock) (Value, error) {
	blk, err := e.buildBlock(f, b)
	if err != nil {
		return nil, err
	}
	if b.Kind == AsyncBlock {
		return e.startAsync(blk), nil
	}
	return e.runBlock(blk, e.stdin)
}

func (e *Evaluator) buildBlock(f *frame, b *CommandBlock) (*execBlock, error) {
	blk := &execBlock{kind: b.Kind, pos: b.Pos()}
	for _, cmd := range b.Commands {
		ec := &execCommand{builtin: cmd.Builtin}
		for _, stage := range cmd.Stages {
			es, err := e.buildStage(f, stage)
			if err != nil {
				return nil, err
			}
			ec.stages = append(ec.stages, es)
		}
		blk.commands = append(blk.commands, ec)
	}
	return blk, nil
}

func (e *Evaluator) buildStage(f *frame, c *BasicCommand) (*execStage, error) {
	program, err := e.singleArgument(f, c.Program, "program", true)
	if err != nil {
		return nil, err
	}
	st := &execStage{argv: []string{program}, allowFail: c.AllowFail, pos: c.Pos()}

	for _, arg := range c.Args {
		words, err := e.expandArgument(f, arg, true)
		if err != nil {
			return nil, err
		}
		st.argv = append(st.argv, words...)
	}

	for _, r := range c.Redirects {
		er := execRedirect{kind: r.Kind, fd: r.Fd, targetFd: r.TargetFd}
		if r.Target != nil {
			er.target, err = e.singleArgument(f, r.Target, "redirection target", r.Kind != RedirectLiteral)
			if err != nil {
				return nil, err
			}
		}
		st.redirects = append(st.redirects, er)
	}
	return st, nil
}

func (e *Evaluator) singleArgument(f *frame, arg *Argument, what string, glob bool) (string, error) {
	words, err := e.expandArgument(f, arg, glob)
	if err != nil {
		return "", err
	}
	if len(words) != 1 {
		return "", panicf(arg.Pos(), "%s must expand to exactly one argument, got %d", what, len(words))
	}
	return words[0], nil
}

// expandArgument turns one argument into zero or more words. Substituted
// values are never globbed; unquoted literal text is.
func (e *Evaluator) expandArgument(f *frame, arg *Argument, glob bool) ([]string, error) {
	var (
		words   = []string{""}
		pattern strings.Builder
		literal = true
		meta    = false
	)
	for _, u := range arg.Units {
		var parts []string
		switch u.Kind {
		case ArgText:
			parts = []string{u.Text}
			if u.Quoted {
				pattern.WriteString(escapeGlob(u.Text))
			} else {
				pattern.WriteString(u.Text)
				meta = meta || hasGlobMeta(u.Text)
			}
		case ArgHome:
			home := homeDir()
			parts = []string{home}
			pattern.WriteString(escapeGlob(home))
		case ArgVar:
			literal = false
			var src Expr = &SelfExpr{node: node{u.Pos}}
			if u.Var != nil {
				src = u.Var
			}
			v, err := e.eval(f, src)
			if err != nil {
				return nil, err
			}
			if parts, err = expandValue(v, u.Pos); err != nil {
				return nil, err
			}
		}
		words = product(words, parts)
	}

	if glob && literal && meta {
		matches, err := Glob(e.fs, pattern.String())
		if err != nil {
			return nil, panicf(arg.Pos(), "invalid glob pattern '%s': %s", unescapeGlob(pattern.String()), err)
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}
	return words, nil
}

func expandValue(v Value, pos Pos) ([]string, error) {
	switch x := v.(type) {
	case Nil:
		return []string{""}, nil
	case *Array:
		var out []string
		for _, item := range x.Items {
			words, err := expandValue(item, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, words...)
		}
		return out, nil
	case *Dict, *Function, *Error:
		return nil, panicf(pos, "unsupported argument type (%s: %s)", Inspect(v), TypeOf(v))
	}
	return []string{ToString(v)}, nil
}

func product(prefixes, parts []string) []string {
	out := make([]string, 0, len(prefixes)*len(parts))
	for _, p := range prefixes {
		for _, s := range parts {
			out = append(out, p+s)
		}
	}
	return out
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}

// sink is the file descriptor handed to commands for one output stream.
// When the destination is not a file, a pipe is drained into it.
type sink struct {
	w    *os.File
	pipe bool
}

func newSink(g *errgroup.Group, dst io.Writer) (*sink, error) {
	if f, ok := dst.(*os.File); ok {
		return &sink{w: f}, nil
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	g.Go(func() error {
		defer r.Close()
		_, err := io.Copy(dst, r)
		return err
	})
	return &sink{w: w, pipe: true}, nil
}

func (s *sink) Close() error {
	if s.pipe {
		return s.w.Close()
	}
	return nil
}

func commandError(status int, pos Pos) *Error {
	ctx := NewDict().
		SetString("status", Int(status)).
		SetString("pos", String(FormatPos(pos)))
	return NewError("command returned non-zero", ctx)
}

// runBlock executes every command in order, stopping at the first failure
// not marked with `?`.
func (e *Evaluator) runBlock(blk *execBlock, stdin io.Reader) (Value, error) {
	var (
		g              errgroup.Group
		stdout, stderr bytes.Buffer
		outDst, errDst = e.stdout, e.stderr
	)
	if blk.kind == CaptureBlock {
		outDst, errDst = &stdout, &stderr
	}

	out, err := newSink(&g, outDst)
	if err != nil {
		return nil, panicf(blk.pos, "failed to create pipe: %s", err)
	}
	errOut, err := newSink(&g, errDst)
	if err != nil {
		out.Close()
		g.Wait()
		return nil, panicf(blk.pos, "failed to create pipe: %s", err)
	}

	var failures []Value
	for _, cmd := range blk.commands {
		var statuses []int
		if cmd.builtin != "" {
			statuses = []int{e.runBuiltin(cmd.builtin, cmd.stages[0].argv[1:], errOut.w)}
		} else {
			statuses = e.runPipeline(cmd.stages, stdin, out.w, errOut.w)
		}

		abort := false
		for i, status := range statuses {
			if status == 0 {
				continue
			}
			failures = append(failures, commandError(status, cmd.stages[i].pos))
			abort = abort || !cmd.stages[i].allowFail
		}
		if abort {
			break
		}
	}

	out.Close()
	errOut.Close()
	if err := g.Wait(); err != nil {
		e.log.Printf("draining command output: %v", err)
	}

	switch len(failures) {
	case 0:
	case 1:
		return failures[0], nil
	default:
		return NewError("some commands failed", NewArray(failures...)), nil
	}

	if blk.kind == CaptureBlock {
		return NewDict().
			SetString("stdout", String(stdout.String())).
			SetString("stderr", String(stderr.String())), nil
	}
	return Nil{}, nil
}

func (e *Evaluator) runBuiltin(name string, args []string, stderr io.Writer) int {
	switch name {
	case "cd":
		var dir string
		switch len(args) {
		case 0:
			dir = homeDir()
		case 1:
			dir = args[0]
		default:
			fmt.Fprintln(stderr, "cd: too many arguments")
			return 1
		}
		if err := os.Chdir(dir); err != nil {
			fmt.Fprintf(stderr, "cd: %v\n", err)
			return 1
		}
		e.log.Printf("cd %s", dir)
		return 0
	}
	fmt.Fprintf(stderr, "%s: unknown built-in command\n", name)
	return 1
}

// runPipeline starts every stage, chaining stdout to the next stage's
// stdin, and waits for all of them. A stage that fails to start does not
// stop the others; its readers see end of file.
func (e *Evaluator) runPipeline(stages []*execStage, stdin io.Reader, stdout, stderr *os.File) []int {
	var (
		statuses = make([]int, len(stages))
		cmds     = make([]*exec.Cmd, len(stages))
		opened   []io.Closer
		prevRead *os.File
	)

	for i, st := range stages {
		c := exec.Command(st.argv[0], st.argv[1:]...)
		c.Stdout = stdout
		c.Stderr = stderr
		if i == 0 {
			c.Stdin = stdin
		} else if prevRead != nil {
			c.Stdin = prevRead
		}

		var nextRead, pipeWrite *os.File
		if i < len(stages)-1 {
			r, w, err := os.Pipe()
			if err != nil {
				fmt.Fprintf(stderr, "hush: failed to create pipe: %v\n", err)
				statuses[i] = statusSpawnFailure
			} else {
				c.Stdout = w
				nextRead, pipeWrite = r, w
			}
		}

		if statuses[i] == 0 {
			if err := e.applyRedirects(c, st.redirects, &opened); err != nil {
				fmt.Fprintf(stderr, "hush: %v\n", err)
				statuses[i] = 1
			}
		}

		if statuses[i] == 0 {
			e.log.Printf("spawn %q %v", st.argv, st.redirects)
			if err := c.Start(); err != nil {
				fmt.Fprintf(stderr, "hush: %s: %v\n", st.argv[0], err)
				statuses[i] = statusSpawnFailure
			} else {
				cmds[i] = c
			}
		}

		// The children hold their own copies of the pipe ends.
		if prevRead != nil {
			prevRead.Close()
		}
		if pipeWrite != nil {
			pipeWrite.Close()
		}
		prevRead = nextRead
	}
	if prevRead != nil {
		prevRead.Close()
	}

	for i, c := range cmds {
		if c == nil {
			continue
		}
		statuses[i] = exitStatus(c.Wait())
		e.log.Printf("%s exited with status %d", stages[i].argv[0], statuses[i])
	}
	for _, f := range opened {
		f.Close()
	}
	return statuses
}

func (e *Evaluator) applyRedirects(c *exec.Cmd, redirects []execRedirect, opened *[]io.Closer) error {
	for _, r := range redirects {
		switch r.kind {
		case RedirectOutput, RedirectAppend:
			var w io.Writer
			if r.targetFd >= 0 {
				if r.targetFd == 2 {
					w = c.Stderr
				} else {
					w = c.Stdout
				}
			} else {
				flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
				if r.kind == RedirectAppend {
					flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
				}
				f, err := e.fs.OpenFile(r.target, flags, 0o644)
				if err != nil {
					return err
				}
				*opened = append(*opened, f)
				w = f
			}
			if r.fd == 2 {
				c.Stderr = w
			} else {
				c.Stdout = w
			}

		case RedirectInput:
			f, err := e.fs.Open(r.target)
			if err != nil {
				return err
			}
			*opened = append(*opened, f)
			c.Stdin = f

		case RedirectLiteral:
			c.Stdin = strings.NewReader(r.target + "\n")
		}
	}
	return nil
}

// job is a running async block. Its result is published once.
type job struct {
	done   chan struct{}
	result Value
	err    error
}

func (e *Evaluator) startAsync(blk *execBlock) Value {
	j := &job{done: make(chan struct{})}

	// Async blocks only share the terminal, never a buffered input.
	var stdin io.Reader
	if f, ok := e.stdin.(*os.File); ok {
		stdin = f
	}

	e.log.Printf("async block at %s started", FormatPos(blk.pos))
	go func() {
		defer close(j.done)
		j.result, j.err = e.runBlock(blk, stdin)
	}()

	join := NewNative("join", 0, func(c *Call) (Value, error) {
		<-j.done
		e.log.Printf("async block at %s joined", FormatPos(blk.pos))
		return j.result, j.err
	})
	return NewDict().SetString("join", join)
}
