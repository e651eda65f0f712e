package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/pnacldriver/internal/drivererr"
)

// ErrInvalidLogSetting means LOG_LEVEL or LOG_FORMAT names something the
// driver cannot log with.
var ErrInvalidLogSetting = drivererr.New(drivererr.ErrConfig, "invalid log setting")

// newLogger creates the run logger from the LOG_LEVEL and LOG_FORMAT driver
// variables. Levels are slog level names in any case, optionally with an
// offset such as "info+2"; formats are text and json.
func newLogger(levelStr, formatStr string, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return nil, fmt.Errorf("%w: LOG_LEVEL %q, want debug, info, warn or error", ErrInvalidLogSetting, levelStr)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch formatStr {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("%w: LOG_FORMAT %q, want text or json", ErrInvalidLogSetting, formatStr)
}

// bootstrapLogger reports what goes wrong before the driver variables are
// known, such as a config path that does not exist.
func bootstrapLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
