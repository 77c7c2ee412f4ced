package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Fetch   Fetch   `yaml:"fetch"`
	Extract Extract `yaml:"extract"`
	Export  Export  `yaml:"export"`
	Logging Logging `yaml:"logging"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Fetch struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type Extract struct {
	MinTextLength int `yaml:"min_text_length"`
}

type Export struct {
	ImageTimeout     time.Duration `yaml:"image_timeout"`
	ImageConcurrency int           `yaml:"image_concurrency"`
	TempDir          string        `yaml:"temp_dir"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultUserAgent is a desktop Chrome identity; some publishers refuse
// requests from clients that do not look like a browser.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// ConfigDir returns the XDG config directory for readstash.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "readstash")
}

// DataDir returns the XDG data directory for readstash.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "readstash")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/readstash/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'readstash init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment
// overrides (including any found in a local .env file).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	return withEnv(cfg)
}

// LoadDefault returns the built-in configuration with environment
// overrides applied, for running without a config file.
func LoadDefault() (*Config, error) {
	return withEnv(Default())
}

func withEnv(cfg *Config) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration, used when no config file exists.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server: Server{Port: 8000},
		Fetch: Fetch{
			Timeout:   15 * time.Second,
			UserAgent: DefaultUserAgent,
		},
		Extract: Extract{MinTextLength: 100},
		Export: Export{
			ImageTimeout:     5 * time.Second,
			ImageConcurrency: 1,
		},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Explicit zero values in the file fall back to the defaults.
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultUserAgent
	}
	if cfg.Fetch.Timeout <= 0 {
		cfg.Fetch.Timeout = 15 * time.Second
	}
	if cfg.Export.ImageTimeout <= 0 {
		cfg.Export.ImageTimeout = 5 * time.Second
	}
	if cfg.Export.ImageConcurrency < 1 {
		cfg.Export.ImageConcurrency = 1
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("READSTASH_DATA_DIR"); ok && v != "" {
		c.Output.DataDir = v
	}
	if v, ok := lookup("READSTASH_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid READSTASH_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("READSTASH_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetTempDir returns the directory export archives are spooled into.
func (c *Config) GetTempDir() string {
	if c.Export.TempDir != "" {
		return c.Export.TempDir
	}
	return os.TempDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
