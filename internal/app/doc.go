// Package app contains the driver lifecycle: loading configuration files,
// dispatching the command line, deciding the plan and running the pipeline.
// It is decoupled from the entrypoint, which only picks a driver and maps
// errors to exit codes.
package app
