package msglog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is the logger used if the caller does not provide its
// own implementation. It backs go-mcast's hand-rolled stdlib-log
// DefaultLogger with logrus, so the broker gets structured fields and
// level filtering for free.
type DefaultLogger struct {
	entry *logrus.Entry
	debug *bool
}

// NewDefaultLogger builds a DefaultLogger writing to stderr at info
// level. ToggleDebug raises or lowers it at runtime.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	debug := false
	return &DefaultLogger{entry: logrus.NewEntry(l), debug: &debug}
}

func (l *DefaultLogger) Info(v ...interface{})                    { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{})    { l.entry.Infof(format, v...) }
func (l *DefaultLogger) Warn(v ...interface{})                    { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{})    { l.entry.Warnf(format, v...) }
func (l *DefaultLogger) Error(v ...interface{})                   { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{})   { l.entry.Errorf(format, v...) }
func (l *DefaultLogger) Fatal(v ...interface{})                   { l.entry.Fatal(v...) }
func (l *DefaultLogger) Fatalf(format string, v ...interface{})   { l.entry.Fatalf(format, v...) }
func (l *DefaultLogger) Panic(v ...interface{})                   { l.entry.Panic(v...) }
func (l *DefaultLogger) Panicf(format string, v ...interface{})   { l.entry.Panicf(format, v...) }

func (l *DefaultLogger) Debug(v ...interface{}) {
	if *l.debug {
		l.entry.Debug(v...)
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if *l.debug {
		l.entry.Debugf(format, v...)
	}
}

// ToggleDebug flips debug-level logging on or off and returns the new
// state, matching go-mcast's DefaultLogger.ToggleDebug.
func (l *DefaultLogger) ToggleDebug(value bool) bool {
	*l.debug = value
	if value {
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	}
	return *l.debug
}

// WithField implements Logger.
func (l *DefaultLogger) WithField(key string, value interface{}) Logger {
	return &DefaultLogger{entry: l.entry.WithField(key, value), debug: l.debug}
}
