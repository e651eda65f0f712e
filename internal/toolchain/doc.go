// Package toolchain holds the driver's external collaborators: running
// tools, classifying input files and normalizing paths. The engine packages
// only see the Runner interface, so tests and --dry-run swap the real
// process execution out.
package toolchain
