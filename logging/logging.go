// Package logging configures the logrus logger shared by every finsight package.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects the level, format and destination of the logs.
type Config struct {
	Level  string `yaml:"level"`  // logrus level name, info when invalid
	Format string `yaml:"format"` // text, json or compact
	Output string `yaml:"output"` // stdout, stderr or a file path
}

// CompactFormatter writes one line per entry: [time] [LEVL] [file:line] msg key=value...
type CompactFormatter struct{}

// Format implements logrus.Formatter.
func (f *CompactFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var fileLine string
	if entry.HasCaller() {
		fileLine = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s", entry.Time.Format("2006-01-02 15:04:05"), level, fileLine, entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// Init applies cfg to l. A file output that cannot be opened falls back to
// stderr with a warning. The returned closer releases the log file, if any.
func Init(l *logrus.Logger, cfg Config) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetReportCaller(false)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	case "json":
		l.SetReportCaller(false)
		l.SetFormatter(&logrus.JSONFormatter{})
	case "compact":
		l.SetReportCaller(true)
		l.SetFormatter(&CompactFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q, want text, json or compact", cfg.Format)
	}

	switch out := strings.TrimSpace(cfg.Output); out {
	case "", "stderr":
		l.SetOutput(os.Stderr)
	case "stdout":
		l.SetOutput(os.Stdout)
	default:
		file, err := openLog(out)
		if err != nil {
			l.SetOutput(os.Stderr)
			l.WithError(err).Warn("logging to stderr")
			return io.NopCloser(nil), nil
		}
		l.SetOutput(file)
		return file, nil
	}
	return io.NopCloser(nil), nil
}

func openLog(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
