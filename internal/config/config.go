// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package config resolves wbrain settings from flags, WBRAIN_* environment
// variables, and an optional .wbrain.yaml file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyWorkspace    = "workspace"
	KeyBrainDir     = "brain_dir"
	KeyCacheDir     = "cache_dir"
	KeyGitHubToken  = "github_token"
	KeyNVDAPIKey    = "nvd_api_key"
	KeyNoNVD        = "no_nvd"
	KeyNoKEV        = "no_kev"
	KeySkipDBUpdate = "skip_db_update"
	KeyLogLevel     = "log_level"

	envPrefix      = "WBRAIN"
	configFilename = ".wbrain"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	Workspace    string `mapstructure:"workspace"`
	BrainDir     string `mapstructure:"brain_dir"`
	CacheDir     string `mapstructure:"cache_dir"`
	GitHubToken  string `mapstructure:"github_token"`
	NVDAPIKey    string `mapstructure:"nvd_api_key"`
	NoNVD        bool   `mapstructure:"no_nvd"`
	NoKEV        bool   `mapstructure:"no_kev"`
	SkipDBUpdate bool   `mapstructure:"skip_db_update"`
	LogLevel     string `mapstructure:"log_level"`
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBrainDir, "brain")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// GITHUB_TOKEN is the conventional name outside of wbrain.
	_ = v.BindEnv(KeyGitHubToken, envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	return v
}

// BindFlags binds each flag to the key of the same name with dashes
// replaced by underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("binding flag %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

// Load reads the optional config file and resolves defaults that depend on
// the environment. The file is looked up in the workspace and in
// $HOME/.config/wbrain.
func Load(v *viper.Viper) (*Config, error) {
	workspace := v.GetString(KeyWorkspace)
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		workspace = wd
	}
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}

	v.SetConfigName(configFilename)
	v.SetConfigType("yaml")
	v.AddConfigPath(workspace)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "wbrain"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no config file found")
	} else {
		slog.Debug("using config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Workspace = workspace
	if cfg.BrainDir == "" {
		cfg.BrainDir = "brain"
	}
	if cfg.CacheDir == "" {
		dir, err := defaultCacheDir()
		if err != nil {
			return nil, err
		}
		cfg.CacheDir = dir
	}
	return &cfg, nil
}

func defaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "wbrain"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "wbrain"), nil
}

// BrainPath is the brain directory. An absolute BrainDir is used as is.
func (c *Config) BrainPath() string {
	if filepath.IsAbs(c.BrainDir) {
		return c.BrainDir
	}
	return filepath.Join(c.Workspace, c.BrainDir)
}

func (c *Config) ManifestPath() string { return filepath.Join(c.BrainPath(), "MANIFEST.yaml") }

func (c *Config) RelationshipsPath() string {
	return filepath.Join(c.BrainPath(), "relationships.yaml")
}

func (c *Config) LogsPath() string { return filepath.Join(c.BrainPath(), "LOGS") }

func (c *Config) SecurityPath() string { return filepath.Join(c.BrainPath(), "SECURITY") }

func (c *Config) AlertsPath() string { return filepath.Join(c.SecurityPath(), "ALERTS.yaml") }

func (c *Config) AssessmentsPath() string {
	return filepath.Join(c.SecurityPath(), "RISK_ASSESSMENT.yaml")
}

// ContextPath is the directory of generated context documents.
func (c *Config) ContextPath() string { return filepath.Join(c.BrainPath(), "CONTEXT") }

// SecurityContextPath is the generated global security context document.
func (c *Config) SecurityContextPath() string { return filepath.Join(c.ContextPath(), "SECURITY.md") }
