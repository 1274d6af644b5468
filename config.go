// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "fsops"
	configFileName = "config.yml"
	defaultDir     = "collections"
)

// config holds the settings that can come from the config file, the
// environment or flags, in increasing order of precedence.
type config struct {
	Project     string `yaml:"project,omitempty"`
	Database    string `yaml:"database,omitempty"`
	Credentials string `yaml:"credentials,omitempty"`
	Dir         string `yaml:"collections_dir,omitempty"`
	Format      string `yaml:"format,omitempty"`
}

// defaultConfigPath returns $XDG_CONFIG_HOME/fsops/config.yml, or the same
// under ~/.config. It returns "" if neither location can be determined.
func defaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName, configFileName)
}

// loadConfig reads the YAML file at path. A missing file yields an empty
// config.
func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides cfg with any settings found in the environment.
func (cfg *config) applyEnv() {
	set := func(dst *string, vars ...string) {
		for _, v := range vars {
			if s := os.Getenv(v); s != "" {
				*dst = s
				return
			}
		}
	}
	set(&cfg.Project, "FSOPS_PROJECT", "GOOGLE_CLOUD_PROJECT")
	set(&cfg.Database, "FSOPS_DATABASE")
	set(&cfg.Credentials, "FSOPS_CREDENTIALS")
	set(&cfg.Dir, "FSOPS_DIR")
	set(&cfg.Format, "FSOPS_FORMAT")
}

func (cfg *config) setDefaults() {
	if cfg.Dir == "" {
		cfg.Dir = defaultDir
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
}
