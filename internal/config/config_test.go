package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/spachava753/pottery/internal/config"
	"github.com/spachava753/pottery/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := config.DefaultClientConfig()

	if cfg.ServerURL != "http://localhost:8080/pottery" {
		t.Errorf("unexpected default server_url %s", cfg.ServerURL)
	}
	if cfg.SessionFile != ".pottery-session.toml" {
		t.Errorf("unexpected default session_file %s", cfg.SessionFile)
	}
	if cfg.Timeout != 0 {
		t.Errorf("expected no default timeout, got %s", cfg.Timeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level info, got %s", cfg.LogLevel)
	}
}

func TestLoadClientConfig(t *testing.T) {
	path := writeFile(t, "pottery.yaml", `server_url: http://grader.example:9000/api-root
session_file: /tmp/session.toml
timeout: 30s
log_level: debug
`)

	cfg, err := config.LoadClientConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}

	if cfg.ServerURL != "http://grader.example:9000/api-root" {
		t.Errorf("unexpected server_url %s", cfg.ServerURL)
	}
	if cfg.SessionFile != "/tmp/session.toml" {
		t.Errorf("unexpected session_file %s", cfg.SessionFile)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %s", cfg.Timeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %s", cfg.LogLevel)
	}
}

func TestLoadClientConfig_EnvAndFlags(t *testing.T) {
	path := writeFile(t, "pottery.yaml", "server_url: http://from-file\n")
	t.Setenv("POTTERY_SESSION_FILE", "env-session.toml")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server", "", "")
	flags.String("session", "", "")
	flags.Duration("timeout", 0, "")
	flags.String("log-level", "", "")
	if err := flags.Parse([]string{"--server", "http://from-flag"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.LoadClientConfig(path, flags)
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}

	if cfg.ServerURL != "http://from-flag" {
		t.Errorf("expected flag to win, got %s", cfg.ServerURL)
	}
	if cfg.SessionFile != "env-session.toml" {
		t.Errorf("expected env session file, got %s", cfg.SessionFile)
	}
}

func TestLoadClientConfig_MissingExplicitFile(t *testing.T) {
	_, err := config.LoadClientConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadFlow(t *testing.T) {
	path := writeFile(t, "flow.yaml", `name: submit-solution
continue_on_error: true
fields:
  taskId: t-123
  repoTag: HEAD
steps:
  - trigger: create-repo
  - trigger: update-file
    fields:
      fileName: Main.java
      file: ./Main.java
  - trigger: tag-repo
  - parallel:
      - trigger: request-test
      - trigger: list-repo
`)

	flow, err := config.LoadFlow(path)
	if err != nil {
		t.Fatalf("LoadFlow failed: %v", err)
	}

	if flow.Name != "submit-solution" {
		t.Errorf("expected name submit-solution, got %s", flow.Name)
	}
	if !flow.ContinueOnError {
		t.Error("expected continue_on_error true")
	}
	if flow.Fields.Get(models.FieldTaskID) != "t-123" {
		t.Errorf("expected taskId t-123, got %s", flow.Fields.Get(models.FieldTaskID))
	}
	if len(flow.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(flow.Steps))
	}
	if flow.Steps[1].Fields.Get(models.FieldFileName) != "Main.java" {
		t.Errorf("expected step fileName Main.java, got %s", flow.Steps[1].Fields.Get(models.FieldFileName))
	}
	if got := len(flow.Steps[3].Invocations()); got != 2 {
		t.Errorf("expected 2 parallel invocations, got %d", got)
	}
}

func TestLoadFlow_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no steps", "name: empty\n"},
		{"empty step", "steps:\n  - fields: {a: b}\n"},
		{"both kinds", "steps:\n  - trigger: list-tasks\n    parallel:\n      - trigger: poll-status\n"},
		{"parallel missing trigger", "steps:\n  - parallel:\n      - fields: {a: b}\n"},
		{"not yaml", "steps: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "flow.yaml", tt.yaml)
			if _, err := config.LoadFlow(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")

	empty, err := config.LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession on missing file: %v", err)
	}
	if len(empty.Fields) != 0 {
		t.Errorf("expected empty fields, got %v", empty.Fields)
	}

	s := models.Session{Fields: models.Fields{
		models.FieldRepoID:        "7",
		models.FieldSubmissionTag: "t1",
	}}
	if err := config.SaveSession(path, s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	loaded, err := config.LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.Fields.Get(models.FieldRepoID) != "7" {
		t.Errorf("expected repoId 7, got %q", loaded.Fields.Get(models.FieldRepoID))
	}
	if loaded.Fields.Get(models.FieldSubmissionTag) != "t1" {
		t.Errorf("expected submissionTag t1, got %q", loaded.Fields.Get(models.FieldSubmissionTag))
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}
}

func TestLoadSession_Invalid(t *testing.T) {
	path := writeFile(t, "session.toml", "fields = [")
	if _, err := config.LoadSession(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestSaveSession_Concurrent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.toml")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Go(func() {
			s := models.Session{Fields: models.Fields{models.FieldRepoID: strings.Repeat("7", i+1)}}
			errs[i] = config.SaveSession(path, s)
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("SaveSession %d: %v", i, err)
		}
	}

	loaded, err := config.LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if id := loaded.Fields.Get(models.FieldRepoID); strings.Trim(id, "7") != "" || id == "" {
		t.Errorf("expected a repoId written by one of the saves, got %q", id)
	}
	assertNoTempFiles(t, dir)
}

func TestSaveSession_FailedReplaceLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.toml")
	if err := os.MkdirAll(filepath.Join(path, "occupied"), 0755); err != nil {
		t.Fatal(err)
	}

	s := models.Session{Fields: models.Fields{models.FieldRepoID: "7"}}
	if err := config.SaveSession(path, s); err == nil {
		t.Fatal("expected error replacing a directory")
	}
	assertNoTempFiles(t, dir)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
