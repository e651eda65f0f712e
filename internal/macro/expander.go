package macro

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/vk/pnacldriver/internal/configstore"
)

// DefaultMaxDepth bounds the indirection pass.
const DefaultMaxDepth = 8

// Vars is the read side of a variable store.
type Vars interface {
	Get(name string) []string
	Has(name string) bool
}

// Func implements a ${@Name:arg} marker. arg is everything after the first
// colon, unexpanded.
type Func func(vars Vars, arg string) (string, error)

// Option configures an Expander.
type Option func(*Expander)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(e *Expander) {
		e.maxDepth = depth
	}
}

// WithFunc registers a ${@name:...} function.
func WithFunc(name string, fn Func) Option {
	return func(e *Expander) {
		e.funcs[name] = fn
	}
}

// Expander evaluates templates. It holds no per-expansion state and may be
// shared.
type Expander struct {
	maxDepth int
	funcs    map[string]Func
}

// New creates an Expander with the built-in functions registered.
func New(opts ...Option) *Expander {
	e := &Expander{
		maxDepth: DefaultMaxDepth,
		funcs: map[string]Func{
			"AddPrefix": addPrefix,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExpander = New()

// Expand evaluates expr with the default expander.
func Expand(expr string, vars Vars) (string, error) {
	return defaultExpander.Expand(expr, vars)
}

// Expand evaluates expr against vars.
func (e *Expander) Expand(expr string, vars Vars) (string, error) {
	resolved, err := e.resolveIndirection(expr, vars)
	if err != nil {
		return "", err
	}
	return e.expandText(resolved, vars)
}

// ExpandTokens evaluates expr and splits the result into shell words, so
// every token of an inserted variable comes back as one token.
func (e *Expander) ExpandTokens(expr string, vars Vars) ([]string, error) {
	out, err := e.Expand(expr, vars)
	if err != nil {
		return nil, err
	}
	toks, err := shellquote.Split(out)
	if err != nil {
		return nil, malformed("%q does not split into words: %v", out, err)
	}
	return toks, nil
}

var (
	indirectRe = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)
	nameRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func (e *Expander) resolveIndirection(expr string, vars Vars) (string, error) {
	for pass := 0; ; pass++ {
		out, changed, err := rewriteMarkers(expr, func(body string) string {
			return indirectRe.ReplaceAllStringFunc(body, func(ref string) string {
				return joined(vars, ref[1:len(ref)-1])
			})
		})
		if err != nil {
			return "", err
		}
		if !changed {
			// A reference that rewrites to itself never settles.
			if ref := leftoverRef(out); ref != "" {
				return "", fmt.Errorf("%w: %s refers to itself in %q", ErrCyclicIndirection, ref, expr)
			}
			return out, nil
		}
		if pass == e.maxDepth {
			return "", fmt.Errorf("%w: %q still unresolved after %d passes", ErrCyclicIndirection, expr, e.maxDepth)
		}
		expr = out
	}
}

// leftoverRef returns the first %NAME% still inside a marker of s.
func leftoverRef(s string) string {
	var ref string
	_, _, _ = rewriteMarkers(s, func(body string) string {
		if ref == "" {
			ref = indirectRe.FindString(body)
		}
		return body
	})
	return ref
}

// rewriteMarkers applies f to the body of every top-level marker in s.
func rewriteMarkers(s string, f func(string) string) (string, bool, error) {
	var b strings.Builder
	changed := false
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], "${")
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		j += i
		end, err := markerEnd(s, j)
		if err != nil {
			return "", false, err
		}
		body := s[j+2 : end-1]
		rewritten := f(body)
		if rewritten != body {
			changed = true
		}
		b.WriteString(s[i:j])
		b.WriteString("${")
		b.WriteString(rewritten)
		b.WriteString("}")
		i = end
	}
	return b.String(), changed, nil
}

// markerEnd returns the offset just past the brace closing the marker that
// opens at s[start:].
func markerEnd(s string, start int) (int, error) {
	depth := 0
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	return 0, malformed("unterminated marker at offset %d in %q", start, s)
}

func (e *Expander) expandText(s string, vars Vars) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], "${")
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		j += i
		b.WriteString(s[i:j])
		end, err := markerEnd(s, j)
		if err != nil {
			return "", err
		}
		v, err := e.evalMarker(s[j+2:end-1], vars)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
		i = end
	}
	return b.String(), nil
}

func (e *Expander) evalMarker(body string, vars Vars) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", malformed("empty marker")
	}

	if strings.HasPrefix(body, "@") {
		return e.call(body[1:], vars)
	}

	if q := indexTopLevel(body, '?'); q >= 0 {
		ok, err := evalCond(strings.TrimSpace(body[:q]), vars)
		if err != nil {
			return "", err
		}
		then, alt := body[q+1:], ""
		if c := elseSeparator(then); c >= 0 {
			then, alt = then[:c], then[c+1:]
		}
		if ok {
			return e.expandText(strings.TrimSpace(then), vars)
		}
		return e.expandText(strings.TrimSpace(alt), vars)
	}

	if isCondition(body) {
		ok, err := evalCond(body, vars)
		if err != nil {
			return "", err
		}
		if ok {
			return "1", nil
		}
		return "0", nil
	}

	if err := checkName(body); err != nil {
		return "", err
	}
	return words(vars.Get(body)), nil
}

func (e *Expander) call(spec string, vars Vars) (string, error) {
	name, arg, _ := strings.Cut(spec, ":")
	fn, ok := e.funcs[name]
	if !ok {
		return "", malformed("unknown function @%s", name)
	}
	return fn(vars, arg)
}

func isCondition(s string) bool {
	return strings.HasPrefix(s, "!") || strings.HasPrefix(s, "#") ||
		strings.Contains(s, "==") || strings.Contains(s, "!=")
}

func evalCond(cond string, vars Vars) (bool, error) {
	negate := false
	for strings.HasPrefix(cond, "!") && !strings.HasPrefix(cond, "!=") {
		negate = !negate
		cond = strings.TrimSpace(cond[1:])
	}

	var result bool
	switch {
	case strings.HasPrefix(cond, "#"):
		name := strings.TrimSpace(cond[1:])
		if err := checkName(name); err != nil {
			return false, err
		}
		result = vars.Has(name) && configstore.Truthy(vars.Get(name))
	case strings.Contains(cond, "!="):
		name, lit, _ := strings.Cut(cond, "!=")
		name = strings.TrimSpace(name)
		if err := checkName(name); err != nil {
			return false, err
		}
		result = joined(vars, name) != strings.TrimSpace(lit)
	case strings.Contains(cond, "=="):
		name, lit, _ := strings.Cut(cond, "==")
		name = strings.TrimSpace(name)
		if err := checkName(name); err != nil {
			return false, err
		}
		result = joined(vars, name) == strings.TrimSpace(lit)
	default:
		if err := checkName(cond); err != nil {
			return false, err
		}
		result = configstore.Truthy(vars.Get(cond))
	}
	return result != negate, nil
}

// indexTopLevel returns the first index of ch in s that is not inside a
// nested marker, or -1.
func indexTopLevel(s string, ch byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ch:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// elseSeparator finds the colon splitting THEN from ELSE: a top-level colon
// with whitespace (or the branch edge) on both sides. Any other colon, as in
// -Wl,a:b, is literal text.
func elseSeparator(branch string) int {
	isSpace := func(i int) bool {
		return i < 0 || i >= len(branch) || branch[i] == ' ' || branch[i] == '\t'
	}
	depth := 0
	for i := 0; i < len(branch); i++ {
		switch branch[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ':':
			if depth == 0 && isSpace(i-1) && isSpace(i+1) {
				return i
			}
		}
	}
	return -1
}

func checkName(name string) error {
	if !nameRe.MatchString(name) {
		return malformed("invalid variable name %q", name)
	}
	return nil
}

// joined is the raw scalar view used for names and comparisons.
func joined(vars Vars, name string) string {
	return strings.Join(vars.Get(name), " ")
}

// words renders tokens as shell words. Empty tokens are dropped; a token
// with whitespace or shell metacharacters is quoted.
func words(tokens []string) string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return shellquote.Join(out...)
}

// addPrefix implements ${@AddPrefix:PFX:NAME}. The prefix is glued to each
// token, so "-L" and ["a","b"] give "-La -Lb". Each result is one shell
// word.
func addPrefix(vars Vars, arg string) (string, error) {
	i := strings.LastIndex(arg, ":")
	if i < 0 {
		return "", malformed("@AddPrefix needs PREFIX:NAME, got %q", arg)
	}
	prefix, name := arg[:i], strings.TrimSpace(arg[i+1:])
	if err := checkName(name); err != nil {
		return "", err
	}
	var out []string
	for _, tok := range vars.Get(name) {
		if tok == "" {
			continue
		}
		out = append(out, prefix+tok)
	}
	return words(out), nil
}
