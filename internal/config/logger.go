package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger: человекочитаемый вывод + файл с ротацией.
// verbosity > 0 (флаг -v) перекрывает LOG_LEVEL: 1: info, 2 и больше: debug.
// Консоль пишет в out (stderr у CLI, чтобы не мешать выводу результата).
func SetupLogger(cfg Config, verbosity int, out io.Writer) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}

	writers := []io.Writer{console}
	if cfg.LogFile != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755)
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	mw := zerolog.MultiLevelWriter(writers...)
	zerolog.SetGlobalLevel(Level(cfg.LogLevel, verbosity))

	logger := zerolog.New(mw).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// Level выбирает уровень логирования.
func Level(name string, verbosity int) zerolog.Level {
	switch {
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity >= 2:
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
