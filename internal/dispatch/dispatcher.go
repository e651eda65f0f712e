package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/ctxlog"
	"github.com/vk/pnacldriver/internal/macro"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPositional sets the callback every positional passes through before
// it is recorded.
func WithPositional(fn func(string) (string, error)) Option {
	return func(d *Dispatcher) {
		d.positional = fn
	}
}

// WithPathNormalizer sets the function applied to tokens of Paths actions.
func WithPathNormalizer(fn func(string) string) Option {
	return func(d *Dispatcher) {
		d.normalizePath = fn
	}
}

// WithExpander overrides the template expander.
func WithExpander(e *macro.Expander) Option {
	return func(d *Dispatcher) {
		d.expander = e
	}
}

// Dispatcher applies a rule table to command-line tokens.
type Dispatcher struct {
	rules         []Rule
	expander      *macro.Expander
	positional    func(string) (string, error)
	normalizePath func(string) string
}

// New creates a Dispatcher. The rules are copied; their order is kept.
func New(rules []Rule, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		rules:         append([]Rule{}, rules...),
		expander:      macro.New(),
		normalizePath: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs tokens through rules with a default Dispatcher.
func Dispatch(ctx context.Context, tokens []string, rules []Rule, store *configstore.Store) ([]string, error) {
	return New(rules).Dispatch(ctx, tokens, store)
}

// Dispatch consumes every token, mutating store through rule actions, and
// returns the positionals in encounter order. The first error stops all
// processing.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string, store *configstore.Store) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	var positionals []string

	for i := 0; i < len(tokens); {
		n, err := d.matchAt(ctx, tokens[i:], store)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			i += n
			continue
		}

		tok := tokens[i]
		if strings.HasPrefix(tok, "-") {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognizedOption, tok)
		}
		if d.positional != nil {
			if tok, err = d.positional(tok); err != nil {
				return nil, err
			}
		}
		logger.Debug("Positional argument.", "token", tok)
		positionals = append(positionals, tok)
		i++
	}
	return positionals, nil
}

// matchAt applies the first matching rule and returns how many tokens it
// consumed.
func (d *Dispatcher) matchAt(ctx context.Context, tokens []string, store *configstore.Store) (int, error) {
	for idx, rule := range d.rules {
		n, captures, err := rule.Match.Match(tokens)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			continue
		}
		ctxlog.FromContext(ctx).Debug("Rule matched.",
			"rule", idx,
			"tokens", tokens[:n],
			"action", rule.Action.kind.String(),
			"var", rule.Action.name,
		)
		if err := d.apply(rule.Action, captures, store); err != nil {
			return 0, err
		}
		return n, nil
	}
	return 0, nil
}

func (d *Dispatcher) apply(a Action, captures []string, store *configstore.Store) error {
	switch a.kind {
	case setVarAction, appendVarAction:
		values, err := d.renderTokens(a.template, captures, store)
		if err != nil {
			return err
		}
		if a.paths {
			for i, v := range values {
				values[i] = d.normalizePath(v)
			}
		}
		if a.kind == setVarAction {
			store.Set(a.name, values...)
		} else {
			store.Append(a.name, values...)
		}
		return nil
	case callbackAction:
		return a.fn(store, captures)
	case fatalAction:
		msg, err := d.expander.Expand(a.template, store)
		if err != nil {
			return err
		}
		msg, err = substitute(msg, captures)
		if err != nil {
			return err
		}
		return &FatalError{Message: msg}
	}
	return nil
}

// renderTokens turns a value template into tokens. The template is split
// into words first, so a capture holding spaces stays a single token while
// a ${LIST} marker contributes one token per element.
func (d *Dispatcher) renderTokens(template string, captures []string, store *configstore.Store) ([]string, error) {
	var out []string
	for _, word := range splitWords(template) {
		expanded, err := d.expander.Expand(word, store)
		if err != nil {
			return nil, err
		}
		fields, err := shellquote.Split(expanded)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", macro.ErrMalformedExpression, expanded, err)
		}
		for _, field := range fields {
			tok, err := substitute(field, captures)
			if err != nil {
				return nil, err
			}
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out, nil
}

var captureRe = regexp.MustCompile(`\$(\d+)`)

func substitute(s string, captures []string) (string, error) {
	var err error
	out := captureRe.ReplaceAllStringFunc(s, func(ref string) string {
		n, _ := strconv.Atoi(ref[1:])
		if n >= len(captures) {
			err = fmt.Errorf("%w: %s refers to a missing capture (have %d)", macro.ErrMalformedExpression, ref, len(captures))
			return ""
		}
		return captures[n]
	})
	return out, err
}

// splitWords splits on whitespace outside ${...} markers.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && depth > 0, c == '{' && i > 0 && s[i-1] == '$':
			depth++
		case c == '}' && depth > 0:
			depth--
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n'):
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteByte(c)
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}
