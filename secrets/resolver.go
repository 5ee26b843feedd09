// Package secrets resolves scoped credentials for pipeline stages.
//
// Resolution is lazy: the executor calls Resolve immediately before the
// stage that declared the scopes runs, never ahead of time, to keep the
// credential exposure window minimal. Resolved values live only in memory
// and in the per-exec environment of the stage that declared them.
package secrets

import (
	"context"
	"fmt"
)

// Resolver fetches credentials for the given scope names. The returned map
// is keyed by scope name.
type Resolver interface {
	Resolve(ctx context.Context, scopes []string) (map[string]string, error)
}

// NotFoundError reports a credential that does not exist in the store.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret %s not found", e.Name)
}

// Transient marks missing secrets as non-retryable: retrying does not make
// a missing parameter appear.
func (e *NotFoundError) Transient() bool { return false }

// AccessDeniedError reports a credential the caller may not read.
type AccessDeniedError struct {
	Name string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied reading secret %s", e.Name)
}

// Transient marks permission failures as non-retryable.
func (e *AccessDeniedError) Transient() bool { return false }
