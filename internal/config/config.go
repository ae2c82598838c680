// ABOUTME: Configuration loading and management for the agentwire client
// ABOUTME: Supports YAML files and AGENTWIRE_* environment variable overrides

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/harper/agentwire/internal/xdg"
)

type Config struct {
	Endpoint EndpointConfig `mapstructure:"endpoint"`
	Client   ClientConfig   `mapstructure:"client"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	WireLog  WireLogConfig  `mapstructure:"wirelog"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	UI       UIConfig       `mapstructure:"ui"`
}

// EndpointConfig describes the app-server WebSocket endpoint.
type EndpointConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`

	// Compression offers permessage-deflate on dial. Off by default because
	// some proxies mangle the negotiation; cmd/wsprobe diagnoses whether an
	// endpoint tolerates it.
	Compression bool `mapstructure:"compression"`

	// AllowLoopback permits localhost endpoints for local development.
	AllowLoopback bool `mapstructure:"allow_loopback"`

	// MinimumVersion overrides the client's built-in app-server version gate.
	MinimumVersion string `mapstructure:"minimum_version"`
}

// ClientConfig identifies this client in the initialize handshake.
type ClientConfig struct {
	Name  string `mapstructure:"name"`
	Title string `mapstructure:"title"`
}

// DefaultsConfig seeds new threads.
type DefaultsConfig struct {
	Cwd                   string `mapstructure:"cwd"`
	Model                 string `mapstructure:"model"`
	ApprovalPolicy        string `mapstructure:"approval_policy"`
	DeveloperInstructions string `mapstructure:"developer_instructions"`
}

type WireLogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// UIConfig tunes the terminal client.
type UIConfig struct {
	Theme       string `mapstructure:"theme"`
	SendOnEnter bool   `mapstructure:"send_on_enter"`
}

// approvalPolicies are the values the app-server accepts. Empty leaves the
// choice to the server.
var approvalPolicies = map[string]bool{
	"":           true,
	"untrusted":  true,
	"on-request": true,
	"on-failure": true,
	"never":      true,
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome(), "config.yaml")
}

// Load reads the YAML file at path. AGENTWIRE_* environment variables
// override file values (AGENTWIRE_ENDPOINT_URL beats endpoint.url).
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg, err := finish(v)
	if err != nil {
		return nil, err
	}

	// IMPORTANT: Viper lowercases all map keys, but header names are sent
	// exactly as written. Parse YAML directly to preserve original key case
	// for endpoint.headers.
	//nolint:gosec // config file path from validated user input
	data, err := os.ReadFile(path)
	if err == nil {
		var rawConfig struct {
			Endpoint struct {
				Headers map[string]string `yaml:"headers"`
			} `yaml:"endpoint"`
		}
		if yaml.Unmarshal(data, &rawConfig) == nil && len(rawConfig.Endpoint.Headers) > 0 {
			cfg.Endpoint.Headers = rawConfig.Endpoint.Headers
		}
	}

	return cfg, nil
}

// LoadDefault loads DefaultPath when it exists and falls back to built-in
// defaults when it does not. Environment overrides apply either way.
func LoadDefault() (*Config, error) {
	path := DefaultPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return finish(newViper())
		}
		return nil, err
	}
	return Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AGENTWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Registering every key gives AutomaticEnv something to bind to even
	// when the file omits the section.
	v.SetDefault("endpoint.url", "")
	v.SetDefault("endpoint.compression", false)
	v.SetDefault("endpoint.allow_loopback", false)
	v.SetDefault("endpoint.minimum_version", "")
	v.SetDefault("client.name", "agentwire")
	v.SetDefault("client.title", "Agentwire")
	v.SetDefault("defaults.cwd", "")
	v.SetDefault("defaults.model", "")
	v.SetDefault("defaults.approval_policy", "")
	v.SetDefault("defaults.developer_instructions", "")
	v.SetDefault("wirelog.enabled", false)
	v.SetDefault("wirelog.path", "")
	v.SetDefault("logging.verbose", false)
	v.SetDefault("ui.theme", "default")
	v.SetDefault("ui.send_on_enter", true)

	return v
}

func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if !approvalPolicies[cfg.Defaults.ApprovalPolicy] {
		return nil, fmt.Errorf("invalid defaults.approval_policy: %s (must be untrusted, on-request, on-failure, or never)", cfg.Defaults.ApprovalPolicy)
	}

	// Expand XDG variables in the wire log path.
	cfg.WireLog.Path = xdg.ExpandPath(cfg.WireLog.Path)
	if cfg.WireLog.Enabled && cfg.WireLog.Path == "" {
		cfg.WireLog.Path = filepath.Join(xdg.DataHome(), "frames.db")
	}

	return &cfg, nil
}

// Validate checks the fields a connection attempt needs. Callers merge flag
// values in before validating.
func (c *Config) Validate() error {
	if c.Endpoint.URL == "" {
		return fmt.Errorf("endpoint.url is required (set it in the config file or with -url)")
	}
	return nil
}
