package observe

import (
	"strings"
	"sync"
)

const redactedPlaceholder = "[redacted]"

// Redactor scrubs registered secret values from strings. Values are
// registered as stages resolve their credentials, so anything logged after
// resolution is covered.
type Redactor struct {
	mu     sync.RWMutex
	values []string
}

// NewRedactor creates an empty Redactor.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// Add registers secret values to scrub. Empty values are ignored.
func (r *Redactor) Add(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range values {
		if v != "" {
			r.values = append(r.values, v)
		}
	}
}

// Scrub replaces every registered value occurring in s with a placeholder.
func (r *Redactor) Scrub(s string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.values {
		s = strings.ReplaceAll(s, v, redactedPlaceholder)
	}
	return s
}

// RedactingLogger wraps a Logger and scrubs registered secret values from
// messages and string field values before they are written.
type RedactingLogger struct {
	inner    Logger
	redactor *Redactor
}

// NewRedactingLogger wraps inner with the given redactor.
func NewRedactingLogger(inner Logger, redactor *Redactor) *RedactingLogger {
	return &RedactingLogger{inner: inner, redactor: redactor}
}

// Redactor returns the underlying redactor for registering values.
func (l *RedactingLogger) Redactor() *Redactor { return l.redactor }

func (l *RedactingLogger) Info(msg string, fields map[string]any) {
	l.inner.Info(l.redactor.Scrub(msg), l.scrubFields(fields))
}

func (l *RedactingLogger) Warn(msg string, fields map[string]any) {
	l.inner.Warn(l.redactor.Scrub(msg), l.scrubFields(fields))
}

func (l *RedactingLogger) Error(msg string, fields map[string]any) {
	l.inner.Error(l.redactor.Scrub(msg), l.scrubFields(fields))
}

func (l *RedactingLogger) Debug(msg string, fields map[string]any) {
	l.inner.Debug(l.redactor.Scrub(msg), l.scrubFields(fields))
}

func (l *RedactingLogger) scrubFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			out[k] = l.redactor.Scrub(s)
		} else {
			out[k] = v
		}
	}
	return out
}
