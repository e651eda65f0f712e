// Package dispatch turns raw command-line tokens into store mutations using
// an ordered table of (matcher, action) rules.
//
// At each cursor position the rules are tried in declared order and the
// first match wins, so rule order is part of a driver's meaning. Tokens no
// rule claims become positionals when they do not start with "-" and are an
// ErrUnrecognizedOption otherwise.
//
// Actions form a closed set: SetVar, AppendVar, Callback, Fatal and NoOp.
// Value and message templates refer to captured groups as $0, $1, ... and
// may also use ${...} markers, which are expanded before captures are
// substituted so captured text is never interpreted.
package dispatch
