package logger

// NullLogger discards everything. It backs unit tests that don't want to
// assert on log output.
type NullLogger struct{}

// NewNullLogger returns a Logger that discards all output.
func NewNullLogger() Logger { return &NullLogger{} }

func (n *NullLogger) WithFields(fields map[string]interface{}) Logger { return n }
func (n *NullLogger) WithField(key string, value interface{}) Logger  { return n }
func (n *NullLogger) WithError(err error) Logger                      { return n }
func (n *NullLogger) Debug(args ...interface{})                       {}
func (n *NullLogger) Info(args ...interface{})                        {}
func (n *NullLogger) Warn(args ...interface{})                        {}
func (n *NullLogger) Error(args ...interface{})                       {}
func (n *NullLogger) Debugf(format string, args ...interface{})       {}
func (n *NullLogger) Infof(format string, args ...interface{})        {}
func (n *NullLogger) Warnf(format string, args ...interface{})        {}
func (n *NullLogger) Errorf(format string, args ...interface{})       {}

// Fatal intentionally does not exit, unlike a real logger's Fatal: a
// NullLogger is used in tests, where exiting the process is never
// wanted.
func (n *NullLogger) Fatal(args ...interface{}) {}
