// Package config loads readablemeta settings from an optional YAML file and RM_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"

	"github.com/ShammiG/comfy-readable-metadata/metadata"
)

// DefaultPath is consulted when no config file is named explicitly.
const DefaultPath = "~/.config/readablemeta/config.yaml"

type Config struct {
	// Emoji and the watch timings have zero values that mean something, so their defaults
	// come from Default rather than env-default tags.
	Emoji           bool     `yaml:"emoji" env:"RM_EMOJI"`
	LogLevel        string   `yaml:"log_level" env:"RM_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	FFProbePath     string   `yaml:"ffprobe_path" env:"RM_FFPROBE_PATH" env-default:"ffprobe" validate:"required"`
	LoaderPriority  []string `yaml:"loader_priority" env:"RM_LOADER_PRIORITY" env-default:"checkpoint,diffusion,gguf,generic" validate:"min=1,dive,oneof=checkpoint diffusion gguf generic"`
	ResolvableTypes []string `yaml:"resolvable_types" env:"RM_RESOLVABLE_TYPES" env-default:"easy int"`

	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
}

// ServerConfig locates the ComfyUI instance followed by the follow command.
type ServerConfig struct {
	Address  string `yaml:"address" env:"RM_SERVER_ADDRESS" env-default:"localhost" validate:"required"`
	Port     int    `yaml:"port" env:"RM_SERVER_PORT" env-default:"8188" validate:"min=1,max=65535"`
	Protocol string `yaml:"protocol" env:"RM_SERVER_PROTOCOL" env-default:"http" validate:"oneof=http https"`
}

type WatchConfig struct {
	// ResyncSeconds of zero disables the periodic rescan.
	ResyncSeconds int `yaml:"resync_seconds" env:"RM_WATCH_RESYNC_SECONDS" validate:"min=0"`
	SettleMillis  int `yaml:"settle_millis" env:"RM_WATCH_SETTLE_MILLIS" validate:"min=0"`
}

// Default returns the settings that cleanenv cannot default through tags.
func Default() *Config {
	return &Config{
		Emoji: true,
		Watch: WatchConfig{ResyncSeconds: 30, SettleMillis: 500},
	}
}

// Load reads the config at path, or only the environment and defaults when path is empty.
// A missing file at DefaultPath is not an error; a missing file that was asked for is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand config path %s: %w", path, err)
	}

	cfg := Default()
	_, statErr := os.Stat(expanded)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(expanded, cfg); err != nil {
			return nil, fmt.Errorf("failed to load configuration from %s: %w", expanded, err)
		}
	case explicit || !errors.Is(statErr, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to load configuration: %w", statErr)
	default:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	slog.Debug("Loaded configuration", "path", expanded, "found", statErr == nil)
	return cfg, nil
}

// finish normalises and validates a freshly loaded config.
func (c *Config) finish() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LoaderPriority = trimAll(c.LoaderPriority)
	for i, r := range c.LoaderPriority {
		c.LoaderPriority[i] = strings.ToLower(r)
	}
	c.ResolvableTypes = trimAll(c.ResolvableTypes)

	if strings.ContainsRune(c.FFProbePath, filepath.Separator) || strings.HasPrefix(c.FFProbePath, "~") {
		p, err := homedir.Expand(c.FFProbePath)
		if err != nil {
			return fmt.Errorf("expand ffprobe path: %w", err)
		}
		c.FFProbePath = p
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoaderRules converts the configured loader priority into parser rules.
func (c *Config) LoaderRules() ([]metadata.LoaderRule, error) {
	rules := make([]metadata.LoaderRule, 0, len(c.LoaderPriority))
	for _, name := range c.LoaderPriority {
		r, err := metadata.ParseLoaderRule(name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// ExtractOptions are the parser options this config describes.
func (c *Config) ExtractOptions() (metadata.Options, error) {
	rules, err := c.LoaderRules()
	if err != nil {
		return metadata.Options{}, err
	}
	return metadata.Options{LoaderPriority: rules, ResolvableTypes: c.ResolvableTypes}, nil
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// BaseURL is the HTTP root of the configured ComfyUI server.
func (s ServerConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", s.Protocol, s.Address, s.Port)
}
