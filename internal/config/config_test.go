package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"rbkoracle/internal/errs"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvNodeIP, EnvUsername, EnvPassword, EnvToken} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadCredentialsVaultURIFallback(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	keyfile := writeFile(t, dir, "keyfile.json", `{
		"rubrik_cdm_node_ip": "   ",
		"vault_uri": "https://vault.example.com/",
		"client_id": "client|abc",
		"client_secret": "s3cret"
	}`)

	creds, err := LoadCredentials(keyfile, filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.NodeIP != "vault.example.com" {
		t.Errorf("NodeIP = %q, want vault.example.com", creds.NodeIP)
	}
	if creds.Mode() != AuthServiceAccount {
		t.Errorf("Mode() = %v, want service account", creds.Mode())
	}
}

func TestLoadCredentialsPrecedence(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv(EnvNodeIP, "env-node")
	t.Setenv(EnvUsername, "env-user")
	t.Setenv(EnvPassword, "env-pass")

	dir := t.TempDir()
	keyfile := writeFile(t, dir, "keyfile.json", `{"rubrik_cdm_node_ip": "key-node", "rubrik_cdm_username": ""}`)
	credFile := writeFile(t, dir, "config.json", `{"rubrik_cdm_node_ip": "file-node", "rubrik_cdm_username": "file-user"}`)

	creds, err := LoadCredentials(keyfile, credFile)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}

	want := Credentials{
		NodeIP:   "key-node",
		Username: "file-user",
		Password: "env-pass",
	}
	if diff := cmp.Diff(want, *creds); diff != "" {
		t.Errorf("credentials mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCredentialsMissing(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()

	_, err := LoadCredentials("", filepath.Join(dir, "none.json"))
	if !errs.Is(err, errs.KindConfig) {
		t.Fatalf("expected ConfigError for missing endpoint, got %v", err)
	}

	t.Setenv(EnvNodeIP, "10.0.0.1")
	_, err = LoadCredentials("", filepath.Join(dir, "none.json"))
	if !errs.Is(err, errs.KindConfig) {
		t.Fatalf("expected ConfigError for missing credentials, got %v", err)
	}

	t.Setenv(EnvToken, "tok")
	if _, err := LoadCredentials("", filepath.Join(dir, "none.json")); err != nil {
		t.Fatalf("token credentials rejected: %v", err)
	}
}

func TestLoadCredentialsMissingKeyfile(t *testing.T) {
	clearCredentialEnv(t)
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"), "")
	if !errs.Is(err, errs.KindConfig) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCredentialsMode(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  AuthMode
	}{
		{"token wins", Credentials{Token: "t", Username: "u", Password: "p"}, AuthToken},
		{"service account", Credentials{ClientID: "id", ClientSecret: "s", Username: "u", Password: "p"}, AuthServiceAccount},
		{"basic", Credentials{Username: "u", Password: "p"}, AuthBasic},
		{"half basic", Credentials{Username: "u"}, AuthNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Mode(); got != tt.want {
				t.Errorf("Mode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{
		LogLevel:      "DEBUG",
		LogFormat:     "text",
		PollInterval:  10 * time.Second,
		HTTPTimeout:   time.Minute,
		Progress:      "none",
		ReportWorkers: 16,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cfg.LogLevel = "LOUD"
	if err := cfg.Validate(); !errs.Is(err, errs.KindConfig) {
		t.Errorf("expected ConfigError for bad level, got %v", err)
	}

	cfg.LogLevel = "INFO"
	cfg.Progress = "fireworks"
	if err := cfg.Validate(); !errs.Is(err, errs.KindConfig) {
		t.Errorf("expected ConfigError for bad progress kind, got %v", err)
	}
}

func TestWaitTimeout(t *testing.T) {
	cfg := &Config{}
	if got := cfg.WaitTimeout(20 * time.Minute); got != 20*time.Minute {
		t.Errorf("WaitTimeout() = %v, want default", got)
	}
	cfg.Timeout = 5 * time.Minute
	if got := cfg.WaitTimeout(20 * time.Minute); got != 5*time.Minute {
		t.Errorf("WaitTimeout() = %v, want override", got)
	}
}
