package secrets

import (
	"context"
	"errors"
	"testing"
)

func TestParseParameters(t *testing.T) {
	data := []byte(`{
		"Parameters": [
			{"Name": "/convey/payments/registry_username", "Value": "ci-bot", "Type": "SecureString"},
			{"Name": "/convey/payments/registry_password", "Value": "hunter2", "Type": "SecureString"}
		],
		"InvalidParameters": []
	}`)

	values, err := parseParameters(data, "convey/payments")
	if err != nil {
		t.Fatalf("parseParameters() error: %v", err)
	}
	if values["registry_username"] != "ci-bot" {
		t.Errorf("registry_username = %q, want %q", values["registry_username"], "ci-bot")
	}
	if values["registry_password"] != "hunter2" {
		t.Errorf("registry_password = %q, want %q", values["registry_password"], "hunter2")
	}
}

func TestParseParameters_InvalidParameter(t *testing.T) {
	data := []byte(`{"Parameters": [], "InvalidParameters": ["/convey/payments/missing_scope"]}`)

	_, err := parseParameters(data, "convey/payments")
	if err == nil {
		t.Fatal("parseParameters() with invalid parameters: expected error")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
	if nf.Name != "missing_scope" {
		t.Errorf("NotFoundError.Name = %q, want %q", nf.Name, "missing_scope")
	}
}

func TestParseParameters_BadJSON(t *testing.T) {
	if _, err := parseParameters([]byte("not json"), ""); err == nil {
		t.Error("parseParameters() with bad JSON: expected error")
	}
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(map[string]string{"registry_password": "hunter2"})

	values, err := r.Resolve(context.Background(), []string{"registry_password"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if values["registry_password"] != "hunter2" {
		t.Errorf("value = %q, want %q", values["registry_password"], "hunter2")
	}

	if _, err := r.Resolve(context.Background(), []string{"nope"}); err == nil {
		t.Error("Resolve() unknown scope: expected error")
	}

	r.Denied = map[string]bool{"locked": true}
	r.Values["locked"] = "x"
	_, err = r.Resolve(context.Background(), []string{"locked"})
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Errorf("Resolve() denied scope error = %T, want *AccessDeniedError", err)
	}

	reqs := r.Requested()
	if len(reqs) != 3 {
		t.Fatalf("Requested() len = %d, want 3", len(reqs))
	}
	if reqs[0][0] != "registry_password" {
		t.Errorf("first request = %v", reqs[0])
	}
}

func TestEnvResolver(t *testing.T) {
	t.Setenv("CONVEY_SECRET_DEPLOY_TOKEN", "tok-1")

	r := NewEnvResolver()
	values, err := r.Resolve(context.Background(), []string{"deploy_token"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if values["deploy_token"] != "tok-1" {
		t.Errorf("deploy_token = %q, want %q", values["deploy_token"], "tok-1")
	}

	_, err = r.Resolve(context.Background(), []string{"absent"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Resolve() absent scope error = %T, want *NotFoundError", err)
	}
}

func TestEnvResolver_SanitizesScopeNames(t *testing.T) {
	t.Setenv("CONVEY_SECRET_REGISTRY_TOKEN", "tok-2")
	t.Setenv("CONVEY_SECRET_API_KEY_V2", "tok-3")

	r := NewEnvResolver()
	values, err := r.Resolve(context.Background(), []string{"registry-token", "api.key.v2"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if values["registry-token"] != "tok-2" {
		t.Errorf("registry-token = %q, want %q", values["registry-token"], "tok-2")
	}
	if values["api.key.v2"] != "tok-3" {
		t.Errorf("api.key.v2 = %q, want %q", values["api.key.v2"], "tok-3")
	}
}
