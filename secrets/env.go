package secrets

import (
	"context"
	"os"
	"strings"
)

// DefaultEnvPrefix is the process-env prefix the EnvResolver reads from.
const DefaultEnvPrefix = "CONVEY_SECRET_"

// EnvResolver reads credentials from the process environment. Scope
// "registry-token" resolves from CONVEY_SECRET_REGISTRY_TOKEN: names are
// uppercased and anything outside [A-Z0-9] becomes an underscore.
// Intended for local development, not production stores.
type EnvResolver struct {
	Prefix string
}

// NewEnvResolver creates an EnvResolver with the default prefix.
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{Prefix: DefaultEnvPrefix}
}

func (r *EnvResolver) Resolve(ctx context.Context, scopes []string) (map[string]string, error) {
	values := make(map[string]string, len(scopes))
	for _, s := range scopes {
		key := r.Prefix + envKey(s)
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil, &NotFoundError{Name: s}
		}
		values[s] = v
	}
	return values, nil
}

// envKey maps a scope name onto a settable environment variable suffix.
func envKey(scope string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, scope)
}
