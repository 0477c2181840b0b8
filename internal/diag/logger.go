package diag

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level  string    // debug | info | warn | error (default info)
	Format string    // text | json (default text)
	Output io.Writer // default os.Stderr
	RunID  string    // attached to every record as run_id when set
}

// NewLogger builds a slog logger from cfg.
func NewLogger(cfg LoggerConfig) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, FormatJSON) {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	if cfg.RunID != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("run_id", cfg.RunID)})
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogSink writes each diagnostic as a structured warning.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink returns a Sink logging through l.
func NewLogSink(l *slog.Logger) *LogSink {
	return &LogSink{Logger: l}
}

// Emit logs e at warn level with its fields as attributes.
func (s *LogSink) Emit(e Event) {
	attrs := []any{slog.String("kind", string(e.Kind)), slog.String("phone", e.Phone)}
	if e.FullName != "" {
		attrs = append(attrs, slog.String("full_name", e.FullName))
	}
	if e.Region != "" {
		attrs = append(attrs, slog.String("region", e.Region))
	}
	if e.Count > 0 {
		attrs = append(attrs, slog.Int("count", e.Count))
	}
	s.Logger.Warn(e.String(), attrs...)
}
