package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "FINSIGHT_MODEL", "FINSIGHT_WORKSPACE", "FINSIGHT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() = %v, a missing file is not an error", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Gemini.APIKey != "" {
		t.Error("unexpected API key")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := write(t, `
gemini:
  api_key: from-file
  timeout: 45s
  requests_per_minute: 10
storage:
  driver: sqlite
  workspace: /tmp/ws
vault:
  max_items: 20
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Gemini.APIKey = "from-file"
	want.Gemini.Timeout = 45 * time.Second
	want.Gemini.RequestsPerMinute = 10
	want.Storage = StorageConfig{Driver: DriverSQLite, Workspace: "/tmp/ws"}
	want.Vault.MaxItems = 20
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google")
	t.Setenv("GEMINI_API_KEY", "gemini")
	t.Setenv("FINSIGHT_MODEL", "gemini-2.5-pro")
	t.Setenv("FINSIGHT_WORKSPACE", "/data")
	path := write(t, "gemini:\n  api_key: from-file\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.APIKey != "gemini" || cfg.Gemini.Model != "gemini-2.5-pro" || cfg.Storage.Workspace != "/data" {
		t.Errorf("Load() = %+v", cfg)
	}
	if got := cfg.GeminiClient(); got.APIKey != "gemini" || got.Timeout != Default().Gemini.Timeout {
		t.Errorf("GeminiClient() = %+v", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"driver":  "storage:\n  driver: postgres\n",
		"items":   "vault:\n  max_items: -1\n",
		"syntax":  "gemini: [",
		"timeout": "gemini:\n  timeout: soon\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(write(t, content)); err == nil {
				t.Error("Load() succeeded")
			}
		})
	}
	_, err := Load(write(t, "storage:\n  driver: postgres\nvault:\n  max_bytes: -3\n"))
	if err == nil || !strings.Contains(err.Error(), "postgres") || !strings.Contains(err.Error(), "max_bytes") {
		t.Errorf("Load() = %v, want every violation reported", err)
	}
}

func TestLoad_HomeWorkspace(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := Load(write(t, "storage:\n  workspace: ~/books\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "books"); cfg.Storage.Workspace != want {
		t.Errorf("workspace = %q, want %q", cfg.Storage.Workspace, want)
	}
}
