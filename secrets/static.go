package secrets

import (
	"context"
	"sync"
)

// StaticResolver serves credentials from a fixed map. It records which
// scopes were requested, which lets tests assert that stages only ever ask
// for the scopes they declared.
type StaticResolver struct {
	Values map[string]string
	// Denied scopes resolve to AccessDeniedError.
	Denied map[string]bool

	mu        sync.Mutex
	requested [][]string
}

// NewStaticResolver creates a StaticResolver over the given values.
func NewStaticResolver(values map[string]string) *StaticResolver {
	return &StaticResolver{Values: values}
}

func (r *StaticResolver) Resolve(ctx context.Context, scopes []string) (map[string]string, error) {
	r.mu.Lock()
	r.requested = append(r.requested, append([]string(nil), scopes...))
	r.mu.Unlock()

	values := make(map[string]string, len(scopes))
	for _, s := range scopes {
		if r.Denied[s] {
			return nil, &AccessDeniedError{Name: s}
		}
		v, ok := r.Values[s]
		if !ok {
			return nil, &NotFoundError{Name: s}
		}
		values[s] = v
	}
	return values, nil
}

// Requested returns every scope list passed to Resolve, in call order.
func (r *StaticResolver) Requested() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.requested...)
}
