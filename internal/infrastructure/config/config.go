package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	Poll struct {
		Interval time.Duration `yaml:"interval"`
		Settle   time.Duration `yaml:"settle"`
	} `yaml:"poll"`

	Defaults struct {
		Org  string `yaml:"org"`
		User string `yaml:"user"`
	} `yaml:"defaults"`
}

// Load reads defaults, then the YAML file (when present), then env
// overrides, and finally sanity-checks the result.
func Load(path string) (Config, error) {
	var c Config

	c.API.Timeout = 10 * time.Second
	c.Poll.Interval = 2 * time.Second

	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}

	if v := os.Getenv("DPM_API_URL"); v != "" {
		c.API.BaseURL = v
	}

	if v := os.Getenv("DPM_TOKEN"); v != "" {
		c.API.Token = v
	}

	if v := os.Getenv("DPM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.API.Timeout = d
		}
	}

	if v := os.Getenv("DPM_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Poll.Interval = d
		}
	}

	if v := os.Getenv("DPM_POLL_SETTLE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Poll.Settle = d
		}
	}

	if v := os.Getenv("DPM_ORG"); v != "" {
		c.Defaults.Org = v
	}

	if v := os.Getenv("DPM_USER"); v != "" {
		c.Defaults.User = v
	}

	if c.API.Timeout <= 0 {
		c.API.Timeout = 10 * time.Second
	}

	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 2 * time.Second
	}

	if c.Poll.Settle <= 0 {
		c.Poll.Settle = 6 * c.Poll.Interval
	}

	if c.API.BaseURL == "" {
		return c, errors.New("DPM_API_URL is required")
	}

	if c.API.Token == "" {
		return c, errors.New("DPM_TOKEN is required")
	}

	return c, nil
}
