// Package config resolves CLI settings from defaults, a YAML file, a .env file
// and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvAPIURL            = "CARPOLICY_API_URL"
	EnvWebURL            = "CARPOLICY_WEB_URL"
	EnvTimeout           = "CARPOLICY_TIMEOUT"
	EnvLogLevel          = "CARPOLICY_LOG_LEVEL"
	EnvLogFormat         = "CARPOLICY_LOG_FORMAT"
	EnvSessionFile       = "CARPOLICY_SESSION_FILE"
	EnvSessionPassphrase = "CARPOLICY_SESSION_PASSPHRASE"
)

// Defaults.
const (
	DefaultAPIURL    = "http://localhost:8000"
	DefaultTimeout   = 30 * time.Second
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
)

// Config is the resolved CLI configuration.
type Config struct {
	APIURL      string
	WebURL      string
	Timeout     time.Duration
	LogLevel    string
	LogFormat   string
	SessionFile string
	// SessionPassphrase enables the encrypted session store. Never read from the YAML file.
	SessionPassphrase string
}

// fileConfig mirrors config.yaml.
type fileConfig struct {
	APIURL      string `yaml:"api_url,omitempty"`
	WebURL      string `yaml:"web_url,omitempty"`
	Timeout     string `yaml:"timeout,omitempty"`
	LogLevel    string `yaml:"log_level,omitempty"`
	LogFormat   string `yaml:"log_format,omitempty"`
	SessionFile string `yaml:"session_file,omitempty"`
}

// Options locates the inputs to Load. Empty paths are skipped.
type Options struct {
	ConfigFile string
	EnvFile    string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Dir returns ~/.carpolicy.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".carpolicy"), nil
}

// DefaultOptions points at ~/.carpolicy/config.yaml and ./.env.
func DefaultOptions() Options {
	opts := Options{EnvFile: ".env"}
	if dir, err := Dir(); err == nil {
		opts.ConfigFile = filepath.Join(dir, "config.yaml")
	}
	return opts
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		APIURL:    DefaultAPIURL,
		Timeout:   DefaultTimeout,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
	if dir, err := Dir(); err == nil {
		cfg.SessionFile = filepath.Join(dir, "session.json")
	}
	return cfg
}

// Load resolves the configuration. Missing files are not an error.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if err := cfg.applyFile(opts.ConfigFile); err != nil {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		m, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config.Load: read %s: %w", opts.EnvFile, err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}
	if err := cfg.applyEnv(get); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	setString(&c.APIURL, fc.APIURL)
	setString(&c.WebURL, fc.WebURL)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.SessionFile, expandHome(fc.SessionFile))
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

func (c *Config) applyEnv(get func(string) (string, bool)) error {
	if v, ok := get(EnvAPIURL); ok {
		c.APIURL = v
	}
	if v, ok := get(EnvWebURL); ok {
		c.WebURL = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := get(EnvLogFormat); ok {
		c.LogFormat = v
	}
	if v, ok := get(EnvSessionFile); ok {
		c.SessionFile = expandHome(v)
	}
	if v, ok := get(EnvSessionPassphrase); ok {
		c.SessionPassphrase = v
	}
	if v, ok := get(EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if err := checkURL(c.APIURL); err != nil {
		return fmt.Errorf("api url: %w", err)
	}
	if c.WebURL != "" {
		if err := checkURL(c.WebURL); err != nil {
			return fmt.Errorf("web url: %w", err)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (supported: console, json)", c.LogFormat)
	}
	return nil
}

// Web returns the URL of the browser UI, which defaults to the API host.
func (c *Config) Web() string {
	if c.WebURL != "" {
		return c.WebURL
	}
	return c.APIURL
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
