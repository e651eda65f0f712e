// Package config defines the format-agnostic model of a driver
// configuration file and the Loader interface implemented by each file
// format.
//
// A configuration file can replace variables, append to them and mark
// variables as required. Models from several files merge in order and are
// applied to a configstore.Store on top of the driver's built-in defaults.
package config
