// Package policy turns a finalized configuration store into the decisions
// that shape a pipeline: link mode, which ABI-simplification passes run and
// how many module splits translation uses.
//
// The decisions are made once, in that order, by Decide. Each one reads the
// store and the decisions before it and nothing else.
package policy
