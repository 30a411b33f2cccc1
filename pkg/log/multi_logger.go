package log

// MultiLogger fans one event stream out to several loggers, typically a
// FileLogger for later pulse-log inspection plus a SlogAdapter for live
// console output.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers. Events reach them in the order given.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log forwards the event to every configured logger.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
