package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "advisor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Basic(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
version: "1"
modules:
  gateway.http:
    bind: "127.0.0.1:8080"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != "1" {
		t.Errorf("Version = %q, want \"1\"", cfg.Version)
	}
	if _, ok := cfg.Modules["gateway.http"]; !ok {
		t.Error("gateway.http module section missing")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("ADVISOR_TEST_KEY", "secret-123")

	path := writeConfig(t, `
version: "1"
modules:
  provider.gemini:
    api_key: "${ADVISOR_TEST_KEY}"
    model: "${ADVISOR_TEST_MODEL:-gemini-2.0-flash-exp}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	node := cfg.Modules["provider.gemini"]
	var section struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	}
	if err := node.Decode(&section); err != nil {
		t.Fatalf("decode section: %v", err)
	}
	if section.APIKey != "secret-123" {
		t.Errorf("api_key = %q, want expanded env value", section.APIKey)
	}
	if section.Model != "gemini-2.0-flash-exp" {
		t.Errorf("model = %q, want default value", section.Model)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
version: "1"
modules:
  provider.gemini:
    api_key: "${DEFINITELY_NOT_SET_ANYWHERE_42}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "DEFINITELY_NOT_SET_ANYWHERE_42") {
		t.Errorf("error does not name the variable: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing version",
			yaml:    "modules:\n  x: {}\n",
			wantErr: "version field is required",
		},
		{
			name:    "unsupported version",
			yaml:    "version: \"2\"\nmodules:\n  x: {}\n",
			wantErr: "unsupported version",
		},
		{
			name:    "no modules",
			yaml:    "version: \"1\"\n",
			wantErr: "at least one module",
		},
		{
			name:    "unknown module",
			yaml:    "version: \"1\"\nmodules:\n  not.registered: {}\n",
			wantErr: "unknown module",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.yaml)
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			err = Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
version: "1"
modules:
  z.last: {}
  a.first: {}
  m.middle: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ids := Resolve(cfg)
	want := []string{"a.first", "m.middle", "z.last"}
	if len(ids) != len(want) {
		t.Fatalf("Resolve = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Resolve = %v, want %v", ids, want)
		}
	}
}
