// Package logging configures the hclog loggers used by typeidgen.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// EnvLevel names the environment variable that sets the default level.
const EnvLevel = "TYPEID_LOG_LEVEL"

// Options holds logging configuration.
type Options struct {
	// Name is the logger name printed with every line.
	Name string

	// Level is one of trace, debug, info, warn, error. Empty means info.
	Level string

	// JSON switches to JSON output.
	JSON bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New creates a logger with the given options.
func New(opts Options) hclog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	if opts.Name == "" {
		opts.Name = "typeidgen"
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      ParseLevel(opts.Level),
		Output:     opts.Output,
		JSONFormat: opts.JSON,
	})
}

// Nop returns a logger that discards everything.
func Nop() hclog.Logger {
	return hclog.NewNullLogger()
}

// ParseLevel maps a level name to an hclog level. Unknown names and the
// empty string map to Info.
func ParseLevel(s string) hclog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return hclog.Trace
	case "debug":
		return hclog.Debug
	case "warn", "warning":
		return hclog.Warn
	case "error":
		return hclog.Error
	default:
		return hclog.Info
	}
}
