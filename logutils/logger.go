// Package logutils owns the process-wide logrus logger.
package logutils

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is shared by every package; its level comes from log.level.
var Log = logrus.New()

type Fields = logrus.Fields

//nolint:gochecknoinits // the formatter must be set before any package logs
func init() {
	Log.SetLevel(logrus.InfoLevel)
	Log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat:           "2006-01-02 15:04:05",
		EnvironmentOverrideColors: true,
		FullTimestamp:             true,
	})
	Log.SetReportCaller(true)
}

// SetLevel changes the level of Log. Unknown names fall back to info.
func SetLevel(name string) {
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		Log.WithField("level", name).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
}
