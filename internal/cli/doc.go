// Package cli is responsible for the pnacl command tree, selecting a driver
// from the program name, and handling process-level concerns like exit
// codes. It turns the process environment into the app's configuration.
package cli
