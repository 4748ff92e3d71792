package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NOTION_TOKEN", "NOTION_DATABASE_ID", "NOTION_ADDR", "BLOG_CACHE_PATH",
		"BLOG_MARKDOWN_DIR", "NEXT_PUBLIC_SITE_URL", "SITE_URL", "BLOG_ADDR",
		"BLOG_DIAG_ADDR", "BLOG_SOURCE", "BLOG_DEBUG", "BLOG_CONCURRENCY",
		"BLOG_RATE_LIMIT", "BLOG_REQUEST_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
site_url: https://from-file.example
concurrency: 8
request_timeout: 5s
source: markdown
markdown_dir: ./posts
`)
	t.Setenv("SITE_URL", "https://from-env.example")
	t.Setenv("BLOG_RATE_LIMIT", "1.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"env beats file", cfg.SiteURL, "https://from-env.example"},
		{"file beats default", cfg.Concurrency, 8},
		{"duration from file", cfg.RequestTimeout, 5 * time.Second},
		{"env only", cfg.RateLimit, 1.5},
		{"default kept", cfg.Addr, ":3333"},
		{"source", cfg.Source, SourceMarkdown},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadLegacySiteURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_SITE_URL", "https://legacy.example")

	cfg, err := Load(writeFile(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SiteURL != "https://legacy.example" {
		t.Errorf("got %q", cfg.SiteURL)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestLoadBadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLOG_CONCURRENCY", "many")
	if _, err := Load(writeFile(t, "")); err == nil {
		t.Error("expected an error for a non-numeric BLOG_CONCURRENCY")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"relative site url", func(c *Config) { c.SiteURL = "example.com" }, true},
		{"unknown source", func(c *Config) { c.Source = "ftp" }, true},
		{"markdown without dir", func(c *Config) { c.Source = SourceMarkdown }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"negative concurrency", func(c *Config) { c.Concurrency = -2 }, true},
		{"zero burst", func(c *Config) { c.Burst = 0 }, true},
		{"rate limit off", func(c *Config) { c.RateLimit = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNotion(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateNotion(); err == nil {
		t.Error("expected missing credentials to fail")
	}
	cfg.NotionToken = "secret"
	cfg.DatabaseID = "db"
	if err := cfg.ValidateNotion(); err != nil {
		t.Errorf("ValidateNotion: %v", err)
	}
}
