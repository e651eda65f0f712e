package dispatch

import "github.com/vk/pnacldriver/internal/configstore"

type actionKind int

const (
	noOpAction actionKind = iota
	setVarAction
	appendVarAction
	callbackAction
	fatalAction
)

func (k actionKind) String() string {
	switch k {
	case setVarAction:
		return "set"
	case appendVarAction:
		return "append"
	case callbackAction:
		return "callback"
	case fatalAction:
		return "fatal"
	}
	return "noop"
}

// CallbackFunc receives the store and the rule's captured substrings.
type CallbackFunc func(store *configstore.Store, captures []string) error

// Action is what a matching rule does. Build one with SetVar, AppendVar,
// Callback, Fatal or NoOp.
type Action struct {
	kind     actionKind
	name     string
	template string
	fn       CallbackFunc
	paths    bool
}

// SetVar replaces variable name with the tokens of the value template.
func SetVar(name, template string) Action {
	return Action{kind: setVarAction, name: name, template: template}
}

// AppendVar appends the tokens of the value template to variable name.
func AppendVar(name, template string) Action {
	return Action{kind: appendVarAction, name: name, template: template}
}

// Callback hands the captures to fn.
func Callback(fn CallbackFunc) Action {
	return Action{kind: callbackAction, fn: fn}
}

// Fatal aborts dispatch with the expanded message.
func Fatal(message string) Action {
	return Action{kind: fatalAction, template: message}
}

// NoOp consumes the matched tokens and does nothing.
func NoOp() Action {
	return Action{kind: noOpAction}
}

// Paths marks a SetVar or AppendVar whose resulting tokens are paths; the
// dispatcher normalizes each one before storing it.
func (a Action) Paths() Action {
	a.paths = true
	return a
}

// Rule pairs a matcher with its action.
type Rule struct {
	Match  Matcher
	Action Action
}

// On is shorthand for a single-token Pattern rule.
func On(expr string, action Action) Rule {
	return Rule{Match: Pattern(expr), Action: action}
}

// OnPair is shorthand for a Pair rule.
func OnPair(first, second string, action Action) Rule {
	return Rule{Match: Pair(first, second), Action: action}
}
