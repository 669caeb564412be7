package hush

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Glob patterns: `*` matches within a path segment, `**` matches any number
// of directories, `%` matches one character and `[...]` a character class
// (`!` or `^` negates). A backslash makes the next character literal.
// Wildcards never match a leading dot.

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*%[")
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*%[]\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(`*%[]\`, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// unescapeGlob is the literal text a pattern stands for when nothing matches.
func unescapeGlob(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

type segment struct {
	literal    string
	re         *regexp.Regexp
	wild       bool
	doubleStar bool
	dotOK      bool
}

func splitSegments(pattern string) []string {
	var (
		segs    []string
		current strings.Builder
	)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			current.WriteByte(c)
			i++
			current.WriteByte(pattern[i])
		case c == '/':
			if current.Len() > 0 {
				segs = append(segs, current.String())
			}
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		segs = append(segs, current.String())
	}
	return segs
}

func compileSegment(raw string) (segment, error) {
	if raw == "**" {
		return segment{doubleStar: true}, nil
	}

	var (
		re      strings.Builder
		literal strings.Builder
		wild    bool
	)
	re.WriteByte('^')
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '\\':
			if i+1 < len(raw) {
				i++
				c = raw[i]
			}
			re.WriteString(regexp.QuoteMeta(string(c)))
			literal.WriteByte(c)
		case '*':
			wild = true
			re.WriteString(`[^/]*`)
		case '%':
			wild = true
			re.WriteString(`[^/]`)
		case '[':
			end := classEnd(raw, i)
			if end < 0 {
				re.WriteString(`\[`)
				literal.WriteByte(c)
				continue
			}
			wild = true
			re.WriteString(translateClass(raw[i+1 : end]))
			i = end
		default:
			re.WriteString(regexp.QuoteMeta(string(c)))
			literal.WriteByte(c)
		}
	}
	re.WriteByte('$')

	if !wild {
		return segment{literal: literal.String()}, nil
	}
	compiled, err := regexp.Compile(re.String())
	if err != nil {
		return segment{}, err
	}
	return segment{re: compiled, wild: true, dotOK: strings.HasPrefix(raw, ".")}, nil
}

// classEnd finds the `]` closing the class opened at start, or -1.
func classEnd(raw string, start int) int {
	i := start + 1
	if i < len(raw) && (raw[i] == '!' || raw[i] == '^') {
		i++
	}
	if i < len(raw) && raw[i] == ']' {
		i++
	}
	for ; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return -1
}

func translateClass(class string) string {
	var b strings.Builder
	b.WriteByte('[')
	if class != "" && (class[0] == '!' || class[0] == '^') {
		b.WriteByte('^')
		class = class[1:]
	}
	for i := 0; i < len(class); i++ {
		c := class[i]
		switch c {
		case '\\':
			if i+1 < len(class) {
				i++
				c = class[i]
			}
			b.WriteByte('\\')
			b.WriteByte(c)
		case '[', ']', '^':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(']')
	return b.String()
}

type globber struct {
	fs   afero.Fs
	seen map[string]bool
	out  []string
}

// Glob returns the sorted paths of fs matching pattern. Relative patterns
// are matched from the working directory and yield relative paths.
func Glob(fs afero.Fs, pattern string) ([]string, error) {
	var segs []segment
	for _, raw := range splitSegments(pattern) {
		seg, err := compileSegment(raw)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}

	dir, display := ".", ""
	if strings.HasPrefix(pattern, "/") {
		dir, display = "/", "/"
	}

	g := &globber{fs: fs, seen: make(map[string]bool)}
	g.match(dir, display, segs)
	sort.Strings(g.out)
	return g.out, nil
}

func joinDisplay(display, name string) string {
	switch {
	case display == "":
		return name
	case strings.HasSuffix(display, "/"):
		return display + name
	default:
		return display + "/" + name
	}
}

func (g *globber) match(dir, display string, segs []segment) {
	if len(segs) == 0 {
		if display != "" && !g.seen[display] {
			g.seen[display] = true
			g.out = append(g.out, display)
		}
		return
	}

	seg, rest := segs[0], segs[1:]
	switch {
	case seg.doubleStar:
		g.match(dir, display, rest)
		entries, err := afero.ReadDir(g.fs, dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
				g.match(filepath.Join(dir, entry.Name()), joinDisplay(display, entry.Name()), segs)
			}
		}

	case !seg.wild:
		path := filepath.Join(dir, seg.literal)
		info, err := g.fs.Stat(path)
		if err != nil || (len(rest) > 0 && !info.IsDir()) {
			return
		}
		g.match(path, joinDisplay(display, seg.literal), rest)

	default:
		entries, err := afero.ReadDir(g.fs, dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") && !seg.dotOK {
				continue
			}
			if !seg.re.MatchString(name) || (len(rest) > 0 && !entry.IsDir()) {
				continue
			}
			g.match(filepath.Join(dir, name), joinDisplay(display, name), rest)
		}
	}
}
