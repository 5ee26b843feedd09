package pipeline

import "errors"

// transientError is implemented by taxonomy errors that declare whether
// retrying can help: publish failures are transient, while provision,
// secret, build, and trigger failures are not.
type transientError interface {
	Transient() bool
}

// IsTransient reports whether err is retry-eligible under a stage's retry
// policy. Errors outside the taxonomy are treated as fatal.
func IsTransient(err error) bool {
	var te transientError
	if errors.As(err, &te) {
		return te.Transient()
	}
	return false
}
