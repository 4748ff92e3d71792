// Package config resolves the blog settings from defaults, an optional
// YAML file and the environment. Command-line flags are applied on top by
// the cmd package.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const AppName = "blog"

const (
	SourceCache    = "cache"
	SourceLive     = "live"
	SourceMarkdown = "markdown"
)

type Config struct {
	NotionToken    string        `yaml:"notion_token"`
	DatabaseID     string        `yaml:"database_id"`
	NotionAddr     string        `yaml:"notion_addr"`
	CachePath      string        `yaml:"cache_path"`
	MarkdownDir    string        `yaml:"markdown_dir"`
	SiteURL        string        `yaml:"site_url"`
	Addr           string        `yaml:"addr"`
	DiagAddr       string        `yaml:"diag_addr"`
	Source         string        `yaml:"source"`
	Concurrency    int           `yaml:"concurrency"`
	RateLimit      float64       `yaml:"rate_limit"`
	Burst          int           `yaml:"burst"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Debug          bool          `yaml:"debug"`
}

func Default() Config {
	return Config{
		NotionAddr:     "https://api.notion.com",
		CachePath:      "posts-cache.json",
		SiteURL:        "http://localhost:3333",
		Addr:           ":3333",
		DiagAddr:       ":9999",
		Source:         SourceCache,
		Concurrency:    4,
		RateLimit:      3,
		Burst:          3,
		RequestTimeout: 30 * time.Second,
	}
}

// DefaultPath returns the config file location under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads path (DefaultPath when empty) over the defaults and then
// applies the environment. A missing file at the default location is not
// an error; a missing file that was asked for explicitly is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.NotionToken = getEnv("NOTION_TOKEN", c.NotionToken)
	c.DatabaseID = getEnv("NOTION_DATABASE_ID", c.DatabaseID)
	c.NotionAddr = getEnv("NOTION_ADDR", c.NotionAddr)
	c.CachePath = getEnv("BLOG_CACHE_PATH", c.CachePath)
	c.MarkdownDir = getEnv("BLOG_MARKDOWN_DIR", c.MarkdownDir)
	c.SiteURL = getEnv("NEXT_PUBLIC_SITE_URL", c.SiteURL)
	c.SiteURL = getEnv("SITE_URL", c.SiteURL)
	c.Addr = getEnv("BLOG_ADDR", c.Addr)
	c.DiagAddr = getEnv("BLOG_DIAG_ADDR", c.DiagAddr)
	c.Source = getEnv("BLOG_SOURCE", c.Source)
	c.Debug = getEnvBool("BLOG_DEBUG", c.Debug)

	var err error
	if c.Concurrency, err = getEnvInt("BLOG_CONCURRENCY", c.Concurrency); err != nil {
		return err
	}
	if c.RateLimit, err = getEnvFloat("BLOG_RATE_LIMIT", c.RateLimit); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("BLOG_REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}

	return nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SiteURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.NotionAddr, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.Source, validation.Required,
			validation.In(SourceCache, SourceLive, SourceMarkdown)),
		validation.Field(&c.CachePath, validation.When(c.Source == SourceCache, validation.Required)),
		validation.Field(&c.MarkdownDir, validation.When(c.Source == SourceMarkdown, validation.Required)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.Burst, validation.Required, validation.Min(1)),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
	)
}

// ValidateNotion checks the credentials needed to talk to Notion.
func (c Config) ValidateNotion() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.NotionToken, validation.Required.Error("NOTION_TOKEN is not set")),
		validation.Field(&c.DatabaseID, validation.Required.Error("NOTION_DATABASE_ID is not set")),
	)
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}

	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return d, nil
}
