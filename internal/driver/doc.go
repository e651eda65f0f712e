// Package driver defines what a compiler driver front end supplies to the
// engine: its default variables, its option rules, and how it turns a
// policy plan into pipeline stages. It also holds the options every driver
// understands.
package driver
