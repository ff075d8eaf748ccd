// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or file path
	Level  string // "debug", "info", "warn", "error"
	File   string // log file path (used when Output is not stdout/stderr)

	// Rotation of file output.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init initializes the global zerolog logger with the given configuration.
// The returned closer flushes and closes file output; it is a no-op for
// console output.
func Init(cfg Config) (io.Closer, error) {
	level := parseLevel(cfg.Level)

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		parts := strings.Split(file, string(filepath.Separator))
		if len(parts) > 1 {
			return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
		}
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	logger, closer := build(cfg, level)
	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger

	return closer, nil
}

// build creates the logger for cfg.
// Console output gets colors, file output is JSON with rotation.
func build(cfg Config, level zerolog.Level) (zerolog.Logger, io.Closer) {
	var console io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		console = os.Stdout
	case "stderr":
		console = os.Stderr
	}

	if console != nil {
		if level == zerolog.DebugLevel {
			// Add Caller only for DEBUG level
			return zerolog.New(zerolog.ConsoleWriter{
				Out:        console,
				TimeFormat: time.TimeOnly,
				PartsOrder: []string{"time", "level", "message", "caller"},
				FormatCaller: func(i interface{}) string {
					return "(" + i.(string) + ")"
				},
			}).With().Timestamp().Caller().Logger(), nopCloser{}
		}
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.TimeOnly,
		}).With().Timestamp().Logger(), nopCloser{}
	}

	path := cfg.File
	if path == "" {
		path = cfg.Output
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	base := zerolog.New(rotator).With().Timestamp()
	if level == zerolog.DebugLevel {
		return base.Caller().Logger(), rotator
	}
	return base.Logger(), rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
