package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromYAMLAndEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	cfgFile := filepath.Join(tmp, "config.yaml")

	yaml := `
api:
  base_url: https://dpm.example.com/api
  token: token-yaml
  timeout: 5s

poll:
  interval: 1s

defaults:
  org: example-org
`
	if err := os.WriteFile(cfgFile, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DPM_TOKEN", "token-env")

	c, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.API.Token != "token-env" {
		t.Errorf("env override failed, got %s", c.API.Token)
	}
	if c.API.BaseURL != "https://dpm.example.com/api" {
		t.Errorf("unexpected base URL: %s", c.API.BaseURL)
	}
	if c.Poll.Interval != time.Second {
		t.Errorf("unexpected interval: %v", c.Poll.Interval)
	}
	if c.Poll.Settle != 6*time.Second {
		t.Errorf("settle should default to six intervals, got %v", c.Poll.Settle)
	}
	if c.Defaults.Org != "example-org" {
		t.Errorf("unexpected default org: %s", c.Defaults.Org)
	}
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("DPM_API_URL", "https://dpm.example.com/api")
	t.Setenv("DPM_TOKEN", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected missing-token error")
	}
}

func TestLoad_RequiresBaseURL(t *testing.T) {
	t.Setenv("DPM_API_URL", "")
	t.Setenv("DPM_TOKEN", "secret")

	if _, err := Load(""); err == nil {
		t.Fatal("expected missing-url error")
	}
}
