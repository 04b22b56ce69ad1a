package logger

type noop struct{}

// Discard drops everything. Components built without a logger use it.
var Discard Logger = noop{}

func (noop) Debug(string, map[string]interface{}) {}
func (noop) Info(string, map[string]interface{})  {}
func (noop) Warn(string, map[string]interface{})  {}
func (noop) Error(string, map[string]interface{}) {}

func (n noop) WithField(string, interface{}) Logger { return n }
func (noop) Sync() error                            { return nil }

// OrDiscard returns l, or Discard when l is nil
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard
	}
	return l
}
