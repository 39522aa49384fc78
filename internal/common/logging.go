// Package common provides the logger shared by every storage-inspector package.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const (
	timeFormat         = "2006-01-02T15:04:05Z07:00"
	defaultLogFile     = "logs/storage-inspector.log"
	defaultMaxFileSize = 500 * 1024
	defaultMaxBackups  = 20
)

// LoggingConfig is the [logging] section of the configuration file.
// Outputs may name "console" (stderr), "stdout" and "file".
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// Logger wraps arbor.ILogger.
type Logger struct {
	arbor.ILogger
}

// NewLoggerFromConfig builds a logger with one writer per configured
// output. An in-memory writer is always attached so recent events can be
// inspected while diagnosing a session.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	l := arbor.NewLogger()
	for _, out := range outputs {
		switch strings.ToLower(out) {
		case "console":
			l = l.WithConsoleWriter(consoleConfig(os.Stderr))
		case "stdout":
			l = l.WithConsoleWriter(consoleConfig(os.Stdout))
		case "file":
			l = l.WithFileWriter(fileConfig(cfg))
		}
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	l = l.WithMemoryWriter(models.WriterConfiguration{Type: models.LogWriterTypeMemory}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

func consoleConfig(w io.Writer) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		Writer:     w,
		TimeFormat: timeFormat,
	}
}

func fileConfig(cfg LoggingConfig) models.WriterConfiguration {
	path := cfg.FilePath
	if path == "" {
		path = defaultLogFile
	}
	maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	backups := cfg.MaxBackups
	if backups <= 0 {
		backups = defaultMaxBackups
	}
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   path,
		MaxSize:    maxSize,
		MaxBackups: backups,
		TimeFormat: timeFormat,
	}
}

// NewLoggerWithOutput returns a logger that writes one plain line per event
// to w, e.g. "WRN relay dropped frame client=panel-1".
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	arbor.RegisterWriter(arbor.WRITER_CONSOLE, &lineWriter{out: w, min: log.ParseLevel(level)})

	l := arbor.NewLogger().
		WithMemoryWriter(models.WriterConfiguration{Type: models.LogWriterTypeMemory}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// NewSilentLogger returns a logger that drops every event.
func NewSilentLogger() *Logger {
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{discard{}})}
}

// WithCorrelationId scopes the logger to one HTTP request or panel session.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}

// lineWriter renders arbor's JSON events as single text lines.
type lineWriter struct {
	out io.Writer
	min log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.min {
		return len(p), nil
	}

	var b strings.Builder
	b.WriteString(levelTag(evt.Level))
	b.WriteByte(' ')
	b.WriteString(evt.Message)
	for _, k := range slices.Sorted(maps.Keys(evt.Fields)) {
		fmt.Fprintf(&b, " %s=%v", k, evt.Fields[k])
	}
	if evt.Error != "" {
		fmt.Fprintf(&b, " error=%q", evt.Error)
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.min = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }

func levelTag(l log.Level) string {
	switch {
	case l >= log.ErrorLevel:
		return "ERR"
	case l >= log.WarnLevel:
		return "WRN"
	case l >= log.InfoLevel:
		return "INF"
	default:
		return "DBG"
	}
}

// discard is an arbor writer that swallows everything.
type discard struct{}

func (discard) Write(p []byte) (int, error)             { return len(p), nil }
func (d discard) WithLevel(_ log.Level) writers.IWriter { return d }
func (discard) GetFilePath() string                     { return "" }
func (discard) Close() error                            { return nil }
