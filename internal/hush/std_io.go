package hush

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

func ioFuncs() []stdFunc {
	return []stdFunc{
		{"args", 0, stdArgs},
		{"print", 1, stdPrint},
		{"println", 1, stdPrintln},
		{"eprint", 1, stdEprint},
		{"eprintln", 1, stdEprintln},
		{"read", 1, stdRead},
		{"read_file", 1, stdReadFile},
		{"env", 1, stdEnv},
		{"export", 2, stdExport},
		{"cwd", 0, stdCwd},
		{"cd", 1, stdCd},
		{"glob", 1, stdGlob},
		{"import", 1, stdImport},
		{"sleep", 1, stdSleep},
		{"rand", 0, stdRand},
		{"randint", 2, stdRandInt},
		{"randseed", 1, stdRandSeed},
	}
}

func stdArgs(c *Call) (Value, error) {
	return stringArray(c.e.args), nil
}

func write(c *Call, w io.Writer, s string) (Value, error) {
	if _, err := io.WriteString(w, s); err != nil {
		return nil, c.Panicf("%v", err)
	}
	return Nil{}, nil
}

func stdPrint(c *Call) (Value, error) {
	return write(c, c.e.stdout, ToString(c.Args[0]))
}

func stdPrintln(c *Call) (Value, error) {
	return write(c, c.e.stdout, ToString(c.Args[0])+"\n")
}

func stdEprint(c *Call) (Value, error) {
	return write(c, c.e.stderr, ToString(c.Args[0]))
}

func stdEprintln(c *Call) (Value, error) {
	return write(c, c.e.stderr, ToString(c.Args[0])+"\n")
}

// stdRead prints a prompt and reads one line from stdin, without the line
// terminator. At end of input it returns an error value.
func stdRead(c *Call) (Value, error) {
	prompt, err := c.String(0)
	if err != nil {
		return nil, err
	}
	if _, err := write(c, c.e.stdout, prompt); err != nil {
		return nil, err
	}

	e := c.e
	if e.input == nil {
		if e.stdin == nil {
			return NewError("end of input", Nil{}), nil
		}
		e.input = bufio.NewReader(e.stdin)
	}
	line, err := e.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return NewError("end of input", Nil{}), nil
		}
		return NewError(err.Error(), Nil{}), nil
	}
	return String(strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")), nil
}

func stdReadFile(c *Call) (Value, error) {
	path, err := c.String(0)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(c.e.fs, path)
	if err != nil {
		return NewError(err.Error(), String(path)), nil
	}
	return String(data), nil
}

func stdEnv(c *Call) (Value, error) {
	name, err := c.String(0)
	if err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return String(v), nil
	}
	return Nil{}, nil
}

func stdExport(c *Call) (Value, error) {
	key, err := c.String(0)
	if err != nil {
		return nil, err
	}
	value, err := c.String(1)
	if err != nil {
		return nil, err
	}
	switch {
	case key == "" || strings.ContainsAny(key, "=\x00"):
		return NewError("invalid export key", String(key)), nil
	case strings.ContainsRune(value, 0):
		return NewError("invalid export value", String(value)), nil
	}
	if err := os.Setenv(key, value); err != nil {
		return NewError(err.Error(), String(key)), nil
	}
	return Nil{}, nil
}

func stdCwd(c *Call) (Value, error) {
	dir, err := os.Getwd()
	if err != nil {
		return NewError(err.Error(), Nil{}), nil
	}
	return String(dir), nil
}

func stdCd(c *Call) (Value, error) {
	dir, err := c.String(0)
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(dir); err != nil {
		return NewError(err.Error(), String(dir)), nil
	}
	return Nil{}, nil
}

func stdGlob(c *Call) (Value, error) {
	pattern, err := c.String(0)
	if err != nil {
		return nil, err
	}
	matches, err := Glob(c.e.fs, pattern)
	if err != nil {
		return NewError("invalid glob pattern", String(pattern)), nil
	}
	return stringArray(matches), nil
}

// stdImport evaluates another script in its own top-level scope and returns
// its final value. Each path is loaded once; relative paths are resolved
// against the importing script's directory.
func stdImport(c *Call) (Value, error) {
	path, err := c.String(0)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) && !strings.HasPrefix(c.Pos.Filename, "<") {
		path = filepath.Join(filepath.Dir(c.Pos.Filename), path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	e := c.e
	if v, ok := e.imports[path]; ok {
		if v == nil {
			return nil, c.Panicf("import cycle through %s", path)
		}
		return v, nil
	}

	source, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, c.Panicf("%v", err)
	}
	prog, err := Parse(string(source), path)
	if err == nil {
		err = NewResolver(globalNames).Resolve(prog)
	}
	if err != nil {
		return nil, c.Panicf("failed to load %s\n%v", path, err)
	}

	e.log.Printf("import %s", path)
	e.imports[path] = nil
	fr := &frame{locals: make([]*Cell, prog.NumSlots), self: Nil{}}
	v, err := e.evalBlock(fr, prog.Body)
	if err != nil {
		delete(e.imports, path)
		return nil, err
	}
	e.imports[path] = v
	return v, nil
}

func stdSleep(c *Call) (Value, error) {
	ms, err := c.Int(0)
	if err != nil {
		return nil, err
	}
	if ms < 0 {
		return nil, c.Panicf("expected a non-negative duration, got %d", ms)
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return Nil{}, nil
}

func stdRand(c *Call) (Value, error) {
	return Float(c.e.rand.Float64()), nil
}

// stdRandInt returns an int in the closed range [lo, hi].
func stdRandInt(c *Call) (Value, error) {
	lo, err := c.Int(0)
	if err != nil {
		return nil, err
	}
	hi, err := c.Int(1)
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, c.Panicf("empty range [%d, %d]", lo, hi)
	}
	span := uint64(hi-lo) + 1
	if span == 0 || span > math.MaxInt64 {
		for {
			if n := int64(c.e.rand.Uint64()); n >= lo && n <= hi {
				return Int(n), nil
			}
		}
	}
	return Int(lo + c.e.rand.Int63n(int64(span))), nil
}

func stdRandSeed(c *Call) (Value, error) {
	seed, err := c.Int(0)
	if err != nil {
		return nil, err
	}
	c.e.rand.Seed(seed)
	return Nil{}, nil
}
