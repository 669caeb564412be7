//go:build unix

package hush

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, s *session, source string) Value {
	t.Helper()
	v, err := s.run(t, source)
	require.NoError(t, err)
	return v
}

func requireError(t *testing.T, v Value) *Error {
	t.Helper()
	e, ok := v.(*Error)
	require.True(t, ok, "expected error value, got %s", Inspect(v))
	return e
}

func TestCommandCapture(t *testing.T) {
	s := newSession()
	v := run(t, s, `${ echo hello; sh -c "echo oops >&2" 2>1 }`)

	dict, ok := v.(*Dict)
	require.True(t, ok, Inspect(v))
	out, _ := dict.Get(String("stdout"))
	errOut, _ := dict.Get(String("stderr"))
	assert.Equal(t, String("hello\noops\n"), out)
	assert.Equal(t, String(""), errOut)
	assert.Empty(t, s.stdout.String())
}

func TestCommandSyncWritesThrough(t *testing.T) {
	s := newSession()
	v := run(t, s, `{ echo one; sh -c "echo two >&2" }`)
	assert.Equal(t, Nil{}, v)
	assert.Equal(t, "one\n", s.stdout.String())
	assert.Equal(t, "two\n", s.stderr.String())
}

func TestCommandArgumentExpansion(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "array spreads into arguments",
			source:   "let xs = [\"1 2\", 3, nil, 4.0]\n${ printf \"%s|\" $xs }.stdout",
			expected: "1 2|3||4.0|",
		},
		{
			name:     "empty array gives no arguments",
			source:   "let none = []\n${ printf \"[%s]\" $none }.stdout",
			expected: "[]",
		},
		{
			name:     "adjacent parts form a product",
			source:   "let xs = [\"a\", \"b\"]\n${ echo pre$xs\"-\"$xs }.stdout",
			expected: "prea-a prea-b preb-a preb-b\n",
		},
		{
			name:     "braced variable",
			source:   "let name = \"world\"\n${ echo \"hello ${name}!\" }.stdout",
			expected: "hello world!\n",
		},
		{
			name:     "values are never split",
			source:   "let s = \"a  b\"\n${ printf \"<%s>\" $s }.stdout",
			expected: "<a  b>",
		},
		{
			name:     "escapes",
			source:   `${ printf "%s|" a\ b \$x '\'' }.stdout`,
			expected: "a b|$x|'|",
		},
		{
			name:     "literal redirection",
			source:   `${ cat << "some text" }.stdout`,
			expected: "some text\n",
		},
		{
			name:     "pipeline",
			source:   `${ echo hello | tr a-z A-Z | cat }.stdout`,
			expected: "HELLO\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := run(t, newSession(), tt.source)
			assert.Equal(t, String(tt.expected), v)
		})
	}
}

func TestCommandFailure(t *testing.T) {
	v := run(t, newSession(), "{ false }")
	e := requireError(t, v)
	assert.Equal(t, "command returned non-zero", e.Description)

	ctx, ok := e.Context.(*Dict)
	require.True(t, ok)
	status, _ := ctx.Get(String("status"))
	pos, _ := ctx.Get(String("pos"))
	assert.Equal(t, Int(1), status)
	assert.Equal(t, String("test.hsh (line 1, column 3)"), pos)
}

func TestCommandFailureAborts(t *testing.T) {
	s := newSession()
	v := run(t, s, "{ echo first; false; echo never }")
	requireError(t, v)
	assert.Equal(t, "first\n", s.stdout.String())
}

func TestCommandAllowFailAggregates(t *testing.T) {
	s := newSession()
	v := run(t, s, "{ false ?; echo continued; false ?; true }")
	e := requireError(t, v)
	assert.Equal(t, "some commands failed", e.Description)
	failures, ok := e.Context.(*Array)
	require.True(t, ok)
	assert.Len(t, failures.Items, 2)
	assert.Equal(t, "continued\n", s.stdout.String())

	v = run(t, newSession(), "{ false ?; true }")
	e = requireError(t, v)
	assert.Equal(t, "command returned non-zero", e.Description)

	v = run(t, newSession(), "{ false ?; false; echo never }")
	e = requireError(t, v)
	assert.Equal(t, "some commands failed", e.Description)
}

func TestCommandPipelineStatuses(t *testing.T) {
	v := run(t, newSession(), "{ false | true }")
	e := requireError(t, v)
	status, _ := e.Context.(*Dict).Get(String("status"))
	assert.Equal(t, Int(1), status)

	v = run(t, newSession(), "{ sh -c \"exit 3\" | sh -c \"exit 4\" }")
	e = requireError(t, v)
	assert.Equal(t, "some commands failed", e.Description)
}

func TestCommandSpawnFailure(t *testing.T) {
	s := newSession()
	v := run(t, s, "{ hush-test-command-that-does-not-exist }")
	e := requireError(t, v)
	status, _ := e.Context.(*Dict).Get(String("status"))
	assert.Equal(t, Int(0x7F), status)
	assert.Contains(t, s.stderr.String(), "hush-test-command-that-does-not-exist")
}

func TestCommandSignalStatus(t *testing.T) {
	v := run(t, newSession(), `{ sh -c 'kill -9 $$' }`)
	e := requireError(t, v)
	status, _ := e.Context.(*Dict).Get(String("status"))
	assert.Equal(t, Int(0xFF+9), status)
}

func TestCommandRedirections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	s := newSession()
	run(t, s, "let path = \""+path+"\"")
	run(t, s, "{ echo first > $path; echo second >> $path }")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))

	v := run(t, s, "${ cat < $path }.stdout")
	assert.Equal(t, String("first\nsecond\n"), v)

	run(t, s, `{ sh -c "echo err >&2" 2> $path }`)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "err\n", string(data))
	assert.Empty(t, s.stderr.String())

	v = run(t, s, "{ cat < "+filepath.Join(dir, "missing")+" }")
	e := requireError(t, v)
	status, _ := e.Context.(*Dict).Get(String("status"))
	assert.Equal(t, Int(1), status)
}

func TestCommandGlobExpansion(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/data/b.txt", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/a.txt", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/c.log", nil, 0o644))

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"pattern expands sorted", `${ echo /data/*.txt }.stdout`, "/data/a.txt /data/b.txt\n"},
		{"no match passes through", `${ echo /data/*.none }.stdout`, "/data/*.none\n"},
		{"quoted pattern is literal", `${ echo "/data/*.txt" }.stdout`, "/data/*.txt\n"},
		{"escaped pattern is literal", `${ echo /data/\*.txt }.stdout`, "/data/*.txt\n"},
		{"substituted value is literal", "let p = \"/data/*\"\n${ echo $p }.stdout", "/data/*\n"},
		{"single character", `${ echo /data/%.log }.stdout`, "/data/c.log\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := run(t, newSession(WithFs(fs)), tt.source)
			assert.Equal(t, String(tt.expected), v)
		})
	}
}

func TestCommandExpansionPanics(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		message string
	}{
		{"dict argument", "let d = @[a: 1]\n{ echo $d }", "unsupported argument type (@[a: 1]: dict)"},
		{"empty program", "let none = []\n{ $none }", "program must expand to exactly one argument, got 0"},
		{"split redirect target", "let two = [\"a\", \"b\"]\n{ echo > $two }", "redirection target must expand to exactly one argument, got 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := evalPanic(t, tt.source)
			assert.Equal(t, tt.message, p.Msg)
		})
	}
}

func TestCommandAsyncJoin(t *testing.T) {
	s := newSession()
	v := run(t, s, `
let handle = &{ echo async }
let first = handle.join()
let second = handle.join()
first == second and first == nil`)
	assert.Equal(t, Bool(true), v)
	assert.Equal(t, "async\n", s.stdout.String())

	v = run(t, s, `
let failing = &{ false }
let a = failing.join()
let b = failing.join()
std.type(a) == "error" and a == b`)
	assert.Equal(t, Bool(true), v)
}

func TestCommandAsyncRunsConcurrently(t *testing.T) {
	v := run(t, newSession(), `
let slow = &{ sleep 0.2 }
let fast = ${ echo done }
let both = [fast.stdout, slow.join()]
both`)
	assert.True(t, Equal(NewArray(String("done\n"), Nil{}), v), Inspect(v))
}

func TestCommandCd(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	s := newSession()
	v := run(t, s, "let dir = \""+dir+"\"\n{ cd $dir }\nstd.cwd()")
	assert.Equal(t, String(dir), v)

	v = run(t, s, "{ cd /hush/does/not/exist }")
	e := requireError(t, v)
	status, _ := e.Context.(*Dict).Get(String("status"))
	assert.Equal(t, Int(1), status)
	assert.Contains(t, s.stderr.String(), "cd: ")

	v = run(t, s, "{ cd a b }")
	requireError(t, v)
	assert.Contains(t, s.stderr.String(), "cd: too many arguments")
}

func TestCommandSelfArgument(t *testing.T) {
	v := run(t, newSession(), `
let greet = std.bind("hush", function() return ${ printf "<%s>" $self }.stdout end)
greet()`)
	assert.Equal(t, String("<hush>"), v)

	v = run(t, newSession(), `${ printf "<%s>" $self }.stdout`)
	assert.Equal(t, String("<>"), v)
}
