// Package pipeline runs an ordered list of named stages, threading each
// stage's artifact into the next.
//
// Stages run one after another on the calling goroutine. A stage marked as
// a fan-out runs as N concurrent workers; the next stage starts only after
// every worker has finished and receives their artifacts ordered by worker
// index. The first failure stops the run: no later stage is started and the
// error names the failing stage (and worker).
//
// Stage commands are templates. They are expanded against the driver's
// configuration store on the calling goroutine, inside a pushed scope that
// defines input, inputs, output, stage, split_index and split_count; the
// store is never touched by workers.
package pipeline
