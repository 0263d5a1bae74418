package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
feed:
  recovery_url: "https://example.test/recovery"
  live_url: "wss://example.test/live"
submission:
  url: "https://example.test/submit"
  username: "trader"
  password: "secret"
dispatcher:
  epsilon_cents: 50
  position_limit: 1000
  submission_timeout: 5s
store:
  data_dir: "/tmp/wxarb"
logging:
  level: "info"
  format: "json"
dashboard:
  enabled: true
  port: 8090
  allowed_origins: ["http://localhost:5173"]
`

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Dispatcher.SubmissionTimeout != 5*time.Second {
		t.Errorf("submission_timeout = %v, want 5s", cfg.Dispatcher.SubmissionTimeout)
	}
	if cfg.Dispatcher.PositionLimit != 1000 {
		t.Errorf("position_limit = %d, want 1000", cfg.Dispatcher.PositionLimit)
	}
}

func TestLoadEnvOverridesCredentials(t *testing.T) {
	path := writeConfig(t, validYAML)
	t.Setenv("WX_SUBMISSION_USERNAME", "from-env")
	t.Setenv("WX_SUBMISSION_PASSWORD", "from-env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Submission.Username != "from-env" {
		t.Errorf("username = %q, want from-env", cfg.Submission.Username)
	}
	if cfg.Submission.Password != "from-env-secret" {
		t.Errorf("password = %q, want from-env-secret", cfg.Submission.Password)
	}
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing recovery url", Config{Feed: FeedConfig{LiveURL: "x"}, Submission: SubmissionConfig{URL: "x", Username: "u", Password: "p"}, Dispatcher: DispatcherConfig{PositionLimit: 1, SubmissionTimeout: time.Second}}},
		{"missing live url", Config{Feed: FeedConfig{RecoveryURL: "x"}, Submission: SubmissionConfig{URL: "x", Username: "u", Password: "p"}, Dispatcher: DispatcherConfig{PositionLimit: 1, SubmissionTimeout: time.Second}}},
		{"missing username", Config{Feed: FeedConfig{RecoveryURL: "x", LiveURL: "x"}, Submission: SubmissionConfig{URL: "x", Password: "p"}, Dispatcher: DispatcherConfig{PositionLimit: 1, SubmissionTimeout: time.Second}}},
		{"zero position limit", Config{Feed: FeedConfig{RecoveryURL: "x", LiveURL: "x"}, Submission: SubmissionConfig{URL: "x", Username: "u", Password: "p"}, Dispatcher: DispatcherConfig{SubmissionTimeout: time.Second}}},
		{"zero submission timeout", Config{Feed: FeedConfig{RecoveryURL: "x", LiveURL: "x"}, Submission: SubmissionConfig{URL: "x", Username: "u", Password: "p"}, Dispatcher: DispatcherConfig{PositionLimit: 1}}},
	}
	for _, c := range cases {
		if err := c.cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", c.name)
		}
	}
}
