package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/doeshing/shellgate/internal/ports"
)

// Options configures a zerolog-backed logger.
type Options struct {
	Level   string
	Format  string // auto, console or json
	Verbose bool
	Out     io.Writer
}

// ZeroLogger implements ports.Logger on top of zerolog.
type ZeroLogger struct {
	log zerolog.Logger
}

// New builds a logger writing to stderr unless Out is set.
// Verbose forces debug level regardless of the configured level.
func New(opts Options) *ZeroLogger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	if useConsole(opts.Format, out) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level := parseLevel(opts.Level)
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	return &ZeroLogger{
		log: zerolog.New(out).Level(level).With().Timestamp().Logger(),
	}
}

// Nop discards everything. Useful in tests.
func Nop() *ZeroLogger {
	return &ZeroLogger{log: zerolog.Nop()}
}

func (l *ZeroLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Error(msg string, err error, fields map[string]interface{}) {
	l.log.Error().Err(err).Fields(fields).Msg(msg)
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func useConsole(format string, out io.Writer) bool {
	switch strings.ToLower(format) {
	case "console":
		return true
	case "json":
		return false
	}
	f, ok := out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

var _ ports.Logger = (*ZeroLogger)(nil)
