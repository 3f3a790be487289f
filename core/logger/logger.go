package logger

// Logger exposes the leveled logging methods used across the client.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// FieldLogger can derive a child logger carrying extra fields, e.g. a
// connection session id. ZerologLogger implements it.
type FieldLogger interface {
	Logger
	With(fields map[string]any) Logger
}

// With returns l enriched with fields when l supports it, l otherwise.
func With(l Logger, fields map[string]any) Logger {
	if fl, ok := l.(FieldLogger); ok {
		return fl.With(fields)
	}
	return l
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debugf(string, ...any)         {}
func (Nop) Debugw(string, map[string]any) {}
func (Nop) Infof(string, ...any)          {}
func (Nop) Warnf(string, ...any)          {}
func (Nop) Errorf(string, ...any)         {}
