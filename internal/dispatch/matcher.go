package dispatch

import (
	"fmt"
	"regexp"
)

// Matcher inspects the tokens at the cursor. It returns how many tokens it
// consumed (0 for no match) and the captured substrings.
type Matcher interface {
	Match(tokens []string) (int, []string, error)
}

func anchor(expr string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + expr + `)$`)
}

type pattern struct {
	re *regexp.Regexp
}

// Pattern matches one token against a regular expression anchored at both
// ends. Its capture groups become $0, $1, ...
// It panics if expr does not compile; rule tables are static.
func Pattern(expr string) Matcher {
	return &pattern{re: anchor(expr)}
}

func (p *pattern) Match(tokens []string) (int, []string, error) {
	if len(tokens) == 0 {
		return 0, nil, nil
	}
	m := p.re.FindStringSubmatch(tokens[0])
	if m == nil {
		return 0, nil, nil
	}
	return 1, m[1:], nil
}

func (p *pattern) String() string { return p.re.String() }

type pair struct {
	first, second *regexp.Regexp
}

// Pair matches a flag followed by its argument, such as "-o" "a.out". Once
// the first token matches, the second must be present and match too;
// otherwise the result is ErrMalformedTwoTokenFlag, never a partial
// consumption. Captures are the first pattern's groups followed by the
// second's; a second pattern without groups captures its whole token.
func Pair(first, second string) Matcher {
	return &pair{first: anchor(first), second: anchor(second)}
}

func (p *pair) Match(tokens []string) (int, []string, error) {
	if len(tokens) == 0 {
		return 0, nil, nil
	}
	m1 := p.first.FindStringSubmatch(tokens[0])
	if m1 == nil {
		return 0, nil, nil
	}
	if len(tokens) < 2 {
		return 0, nil, fmt.Errorf("%w: %s requires an argument", ErrMalformedTwoTokenFlag, tokens[0])
	}
	m2 := p.second.FindStringSubmatch(tokens[1])
	if m2 == nil {
		return 0, nil, fmt.Errorf("%w: invalid argument %q for %s", ErrMalformedTwoTokenFlag, tokens[1], tokens[0])
	}
	captures := append([]string{}, m1[1:]...)
	if len(m2) > 1 {
		captures = append(captures, m2[1:]...)
	} else {
		captures = append(captures, m2[0])
	}
	return 2, captures, nil
}

func (p *pair) String() string { return p.first.String() + " " + p.second.String() }
