package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/vk/pnacldriver/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// main is the entrypoint for pnacl and its pnacl-ld and pnacl-translate
// links.
func main() {
	// Use a minimal logger until the driver configures its own.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The real main function handles errors and exit codes.
	if code := run(ctx, os.Stdout, os.Stderr, os.Args); code != 0 {
		stop()
		os.Exit(code)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. It returns the process exit code.
func run(ctx context.Context, outW, errW io.Writer, argv []string) int {
	err := cli.Execute(ctx, argv, cli.Options{
		Out:     outW,
		Err:     errW,
		Getenv:  os.Getenv,
		Version: version,
	})
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(errW, exitErr.Message)
		return exitErr.Code
	}
	fmt.Fprintln(errW, err)
	return 1
}
