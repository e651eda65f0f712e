// Package configstore holds the driver's variables: every name maps to an
// ordered sequence of string tokens, never a bare scalar.
//
// A Store is created once per driver invocation, filled with built-in
// defaults, mutated while the command line is dispatched, and read-only for
// the rest of the run apart from Push/Pop scopes taken around a single
// template expansion.
//
// # Concurrency
//
// A Store is not safe for concurrent use. The push/pop stack in particular
// belongs to the single-threaded dispatch and orchestration phase and must
// never be touched from a pipeline fan-out worker.
package configstore
