// Package arcalog provides the structured logger shared by the
// long-lived components of the vault: the IPC accept loop and the audit
// flusher. The CLI harness's --verbose flag sets its level through Init.
package arcalog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. It defaults to a
// console writer on stderr at info level; Init reconfigures it.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Config controls how Init sets up the global logger.
type Config struct {
	Debug  bool
	Output io.Writer
}

// Init reconfigures the global logger. Called once during session
// startup with flags resolved from the CLI or service environment.
func Init(cfg Config) {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	Logger = zerolog.New(zerolog.ConsoleWriter{Out: output}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with the given component
// name, e.g. "ipc", "audit", "session".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
