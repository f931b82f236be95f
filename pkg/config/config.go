// pkg/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds engine and shell options loadable from a minidb.yml file
type Config struct {
	// DataDir is the directory holding catalog and table documents
	DataDir string `yaml:"data_dir"`

	// BTreeDegree is the minimum degree of index B-trees
	BTreeDegree int `yaml:"btree_degree"`

	// Prompt is the interactive shell prompt
	Prompt string `yaml:"prompt"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		DataDir:     "minidb_data",
		BTreeDegree: 3,
		Prompt:      "minidb> ",
	}
}

// Load reads a YAML config file and overlays it on the defaults.
// A missing file is not an error; an unreadable or invalid one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg.validate()
}

func (c Config) validate() (Config, error) {
	if c.DataDir == "" {
		return c, fmt.Errorf("data_dir must not be empty")
	}
	if c.BTreeDegree < 2 {
		return c, fmt.Errorf("btree_degree must be at least 2, got %d", c.BTreeDegree)
	}
	if c.Prompt == "" {
		c.Prompt = Default().Prompt
	}
	return c, nil
}
