// Package logging configures the logrus logger shared by rentledger components.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LevelEnv selects the log level when set.
const LevelEnv = "RENTLEDGER_LOG_LEVEL"

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook interface.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook interface.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// New returns a logger writing text lines with full timestamps to w. The
// level comes from RENTLEDGER_LOG_LEVEL and falls back to info.
func New(appName string, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(ParseLevel(logger, os.Getenv(LevelEnv)))
	if appName != "" {
		logger.AddHook(&appNameHook{appName: appName})
	}
	return logger
}

// ParseLevel converts raw into a logrus level, warning on logger when the
// value is not recognised.
func ParseLevel(logger *logrus.Logger, raw string) logrus.Level {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		logger.Warnf("Invalid %s '%s', defaulting to INFO", LevelEnv, raw)
		return logrus.InfoLevel
	}
	return level
}

// Discard returns an entry that drops every message. Components fall back
// to it when no logger is supplied.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	if logger == nil {
		return Discard().WithField("component", name)
	}
	return logger.WithField("component", name)
}
