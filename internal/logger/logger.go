package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sboapp/admin/internal/config"
)

var _log = logrus.New()

// Init configures the global logger from the log config group. When a file is
// configured, output goes to both stdout and a rotated file.
func Init(cfg config.Log) {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}
	SetOutput(out, cfg.Level, cfg.JSON)
}

// SetOutput points the logger at out with the given level and format.
// Unknown levels fall back to info.
func SetOutput(out io.Writer, level string, json bool) {
	if out == nil {
		out = os.Stdout
	}
	_log.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	_log.SetLevel(lvl)

	if json {
		_log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		_log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// Log returns a standard logger entry to use across packages.
func Log() *logrus.Entry {
	return logrus.NewEntry(_log)
}

// WithFields returns a logger entry with provided fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log().WithFields(fields)
}
