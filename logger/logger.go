package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "json" or "text"
	OutputPath string `yaml:"output"` // "" or "stdout" logs to stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		OutputPath: filepath.Join("logs", "app.log"),
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 28,
	}
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Output opens the log destination. Logs go to both the rotated file and the
// console, except under air where the console is left to the build output.
func Output(config Config) (io.Writer, io.Closer, error) {
	if config.OutputPath == "" || config.OutputPath == "stdout" {
		return os.Stdout, nopCloser{}, nil
	}

	// Create logs directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
		return nil, nil, err
	}

	file := &lumberjack.Logger{
		Filename:   config.OutputPath,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
	}

	if os.Getenv("AIR_RESTART_COUNT") != "" {
		return file, file, nil
	}
	return io.MultiWriter(os.Stdout, file), file, nil
}

// NewWithWriter builds a logger writing to w
func NewWithWriter(config Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(config.Level),
		AddSource: true,
	}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Init builds the logger, installs it as the slog default and routes the
// standard log package through it. The returned closer releases the log file.
func Init(config Config) (*slog.Logger, io.Closer, error) {
	w, closer, err := Output(config)
	if err != nil {
		return nil, nil, err
	}
	logger := NewWithWriter(config, w)
	slog.SetDefault(logger)
	log.SetFlags(0)
	return logger, closer, nil
}
