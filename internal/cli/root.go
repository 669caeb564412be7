package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"hush/internal/hush"
)

// Exit statuses other than the one requested by std.exit.
const (
	StatusOK           = 0
	StatusInvocation   = 1
	StatusStaticErrors = 2
	StatusPanic        = 127
)

type options struct {
	check   bool
	ast     bool
	tokens  bool
	program string
	config  string
	debug   bool
}

// app is one invocation of the command line.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs
	getenv func(string) string

	opts   options
	status int
	red    *color.Color
}

// Execute runs hush with the process arguments and exits with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// Run executes the command line and returns the exit status.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		fs:     afero.NewOsFs(),
		getenv: os.Getenv,
		red:    color.New(color.FgRed, color.Bold),
	}
	return a.execute(args)
}

func (a *app) execute(args []string) int {
	cmd := a.command()
	// cobra falls back to os.Args when given nil.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(a.stderr, "%s %v\n", a.red.Sprint("Error:"), err)
		return StatusInvocation
	}
	return a.status
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hush [script] [args...]",
		Short: "Run a hush script",
		Long: `hush is a shell scripting language with real data types.

Without a script, the program is read from standard input, or an
interactive session is started when standard input is a terminal.
Arguments after the script are available through std.args().`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(args)
		},
	}

	// Everything after the script path belongs to the script.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&a.opts.check, "check", false, "report static errors without running")
	cmd.Flags().BoolVar(&a.opts.ast, "ast", false, "print the resolved syntax tree without running")
	cmd.Flags().BoolVar(&a.opts.tokens, "tokens", false, "print the token stream without running")
	cmd.Flags().StringVarP(&a.opts.program, "program", "c", "", "run the given source text")
	cmd.Flags().StringVar(&a.opts.config, "config", "", "config file (default $XDG_CONFIG_HOME/hush/config.yaml)")
	cmd.Flags().BoolVar(&a.opts.debug, "debug", false, "log runtime events to stderr")
	return cmd
}

func (a *app) run(args []string) error {
	modes := 0
	for _, set := range []bool{a.opts.check, a.opts.ast, a.opts.tokens} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return errors.New("--check, --ast and --tokens cannot be combined")
	}

	cfg, err := LoadConfig(a.fs, a.opts.config, a.getenv)
	if err != nil {
		return err
	}
	if a.opts.debug {
		cfg.Debug = true
	}
	a.configureColor(cfg.Color)

	logger := log.New(io.Discard, "[hush] ", 0)
	if cfg.Debug {
		logger.SetOutput(a.stderr)
	}

	newEvaluator := func(scriptArgs []string) *hush.Evaluator {
		return hush.NewEvaluator(
			hush.WithStdio(a.stdin, a.stdout, a.stderr),
			hush.WithArgs(scriptArgs),
			hush.WithFs(a.fs),
			hush.WithLogger(logger),
			hush.WithMaxCallDepth(cfg.MaxCallDepth),
		)
	}

	if a.opts.program == "" && len(args) == 0 && a.interactive() && modes == 0 {
		a.status = a.repl(newEvaluator(nil), expandHome(cfg.HistoryFile, a.getenv))
		return nil
	}

	source, filename, scriptArgs, err := a.source(args)
	if err != nil {
		return err
	}
	logger.Printf("loaded %s (%d bytes)", filename, len(source))

	switch {
	case a.opts.check:
		a.status = a.check(source, filename)
	case a.opts.ast:
		a.status = a.dumpAST(source, filename)
	case a.opts.tokens:
		a.status = a.dumpTokens(source, filename)
	default:
		_, err := newEvaluator(scriptArgs).Execute(source, filename)
		a.status = a.report(err)
	}
	return nil
}

// source returns the program text, its display name and the script
// arguments.
func (a *app) source(args []string) (string, string, []string, error) {
	if a.opts.program != "" {
		return a.opts.program, "<command line>", args, nil
	}
	if len(args) > 0 {
		data, err := afero.ReadFile(a.fs, args[0])
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to read script: %w", err)
		}
		return string(data), args[0], args[1:], nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read standard input: %w", err)
	}
	return string(data), "<stdin>", nil, nil
}

func (a *app) interactive() bool {
	f, ok := a.stdin.(*os.File)
	return ok && isTerminal(f)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) configureColor(mode string) {
	enabled := false
	switch mode {
	case "always":
		enabled = true
	case "auto":
		if f, ok := a.stderr.(*os.File); ok {
			enabled = isTerminal(f)
		}
	}
	if enabled {
		a.red.EnableColor()
	} else {
		a.red.DisableColor()
	}
}

func (a *app) printDiagnostics(diags hush.Diagnostics) {
	for _, d := range diags {
		fmt.Fprintf(a.stderr, "%s %s\n", a.red.Sprint("Error:"), d.Error())
	}
}

func (a *app) check(source, filename string) int {
	diags := hush.Check(source, filename)
	if len(diags) > 0 {
		a.printDiagnostics(diags)
		return StatusStaticErrors
	}
	return StatusOK
}

func (a *app) dumpAST(source, filename string) int {
	prog, err := hush.CompileStandalone(source, filename)
	if err != nil {
		return a.report(err)
	}
	if err := hush.Dump(a.stdout, prog); err != nil {
		return a.report(err)
	}
	return StatusOK
}

func (a *app) dumpTokens(source, filename string) int {
	tokens, err := hush.Tokenize(source, filename)
	if err != nil {
		return a.report(err)
	}
	for _, tok := range tokens {
		fmt.Fprintf(a.stdout, "%d:%d\t%s\n", tok.Pos.Line, tok.Pos.Column, tok)
	}
	return StatusOK
}

// report prints err, if any, and maps it to an exit status.
func (a *app) report(err error) int {
	if err == nil {
		return StatusOK
	}

	var exit *hush.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	if diags := hush.AsDiagnostics(err); diags != nil {
		a.printDiagnostics(diags)
		return StatusStaticErrors
	}
	var p *hush.Panic
	if errors.As(err, &p) {
		fmt.Fprintf(a.stderr, "%s%s\n", a.red.Sprint("Panic"), strings.TrimPrefix(p.Error(), "Panic"))
		return StatusPanic
	}

	fmt.Fprintf(a.stderr, "%s %v\n", a.red.Sprint("Error:"), err)
	return StatusInvocation
}
