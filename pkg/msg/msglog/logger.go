// Package msglog defines the logging capability used throughout the
// broker, the same shape as go-mcast's types.Logger interface
// (Info/Infof/Warn/Warnf/Error/Errorf/Debug/Debugf/ToggleDebug/Fatal/
// Fatalf/Panic/Panicf), so every component can be handed either the
// default implementation or a caller-supplied one.
package msglog

// Logger is the capability the router, exec engine, dispatcher,
// membership adapter, IPC server and relt transport take at construction
// time; the stores and the tracking package take none.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	ToggleDebug(value bool) bool
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	Panic(v ...interface{})
	Panicf(format string, v ...interface{})

	// WithField returns a derived Logger carrying an extra structured
	// field on every subsequent entry (node_id, exec_op, queue, group).
	WithField(key string, value interface{}) Logger
}
