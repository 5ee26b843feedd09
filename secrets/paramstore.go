package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path"
	"strings"
)

// ParameterStoreResolver reads SecureString parameters from AWS SSM
// Parameter Store via the aws CLI. Scope names map to parameter names under
// Prefix: scope "registry_password" with prefix "/convey/payments" reads
// "/convey/payments/registry_password".
type ParameterStoreResolver struct {
	Prefix string
	Region string

	bin string
}

// NewParameterStoreResolver creates a resolver rooted at prefix.
func NewParameterStoreResolver(prefix, region string) *ParameterStoreResolver {
	return &ParameterStoreResolver{Prefix: prefix, Region: region, bin: "aws"}
}

func (r *ParameterStoreResolver) Resolve(ctx context.Context, scopes []string) (map[string]string, error) {
	if len(scopes) == 0 {
		return map[string]string{}, nil
	}

	names := make([]string, len(scopes))
	for i, s := range scopes {
		names[i] = path.Join("/", r.Prefix, s)
	}

	args := []string{"ssm", "get-parameters", "--with-decryption", "--output", "json", "--names"}
	args = append(args, names...)
	if r.Region != "" {
		args = append(args, "--region", r.Region)
	}

	cmd := exec.CommandContext(ctx, r.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "not authorized") {
			return nil, &AccessDeniedError{Name: strings.Join(scopes, ",")}
		}
		return nil, fmt.Errorf("ssm get-parameters: %s: %w", strings.TrimSpace(msg), err)
	}

	return parseParameters(out, r.Prefix)
}

type ssmResponse struct {
	Parameters []struct {
		Name  string `json:"Name"`
		Value string `json:"Value"`
	} `json:"Parameters"`
	InvalidParameters []string `json:"InvalidParameters"`
}

// parseParameters maps an ssm get-parameters response back to scope names.
func parseParameters(data []byte, prefix string) (map[string]string, error) {
	var resp ssmResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing ssm response: %w", err)
	}
	if len(resp.InvalidParameters) > 0 {
		return nil, &NotFoundError{Name: scopeName(resp.InvalidParameters[0], prefix)}
	}

	values := make(map[string]string, len(resp.Parameters))
	for _, p := range resp.Parameters {
		values[scopeName(p.Name, prefix)] = p.Value
	}
	return values, nil
}

func scopeName(paramName, prefix string) string {
	name := strings.TrimPrefix(paramName, path.Join("/", prefix))
	return strings.TrimPrefix(name, "/")
}
