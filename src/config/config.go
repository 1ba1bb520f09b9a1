// Package config loads the project-wide build configuration and the
// per-Dockerfile directive overrides, and merges them into the effective
// configuration for each image.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config file names probed at the repository root. YAML is the primary
// format; TOML is accepted as an alternative with the same schema.
const (
	yamlConfigFile = ".dockhand.yml"
	tomlConfigFile = ".dockhand.toml"
)

// ProjectConfig is the repository-wide build configuration.
type ProjectConfig struct {
	ImageTagsOnTagPushed    TagTemplates `yaml:"imageTagsOnTagPushed"`
	ImageTagsOnBranchPushed TagTemplates `yaml:"imageTagsOnBranchPushed"`
	WatchFiles              []string     `yaml:"watchFiles"`
}

// Default returns the built-in configuration used when no config file exists:
// tag pushes build "{tag}", branch pushes build a timestamped tag plus
// "latest", and the empty watch list means every push builds.
func Default() *ProjectConfig {
	return &ProjectConfig{
		ImageTagsOnTagPushed:    Templates("{tag}"),
		ImageTagsOnBranchPushed: Templates("{branch}-{timestamp}-{sha}", "latest"),
		WatchFiles:              []string{},
	}
}

// Load reads the project configuration from rootDir.
// A missing config file yields the built-in defaults; a present but
// malformed file is a fatal configuration error naming the file.
func Load(rootDir string) (*ProjectConfig, error) {
	yamlPath := filepath.Join(rootDir, yamlConfigFile)
	tomlPath := filepath.Join(rootDir, tomlConfigFile)

	yamlData, yamlErr := os.ReadFile(yamlPath)
	tomlData, tomlErr := os.ReadFile(tomlPath)

	haveYAML := yamlErr == nil
	haveTOML := tomlErr == nil

	if yamlErr != nil && !errors.Is(yamlErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", yamlConfigFile, yamlErr)
	}
	if tomlErr != nil && !errors.Is(tomlErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", tomlConfigFile, tomlErr)
	}

	switch {
	case haveYAML && haveTOML:
		return nil, fmt.Errorf("both %s and %s exist: keep exactly one project config file", yamlConfigFile, tomlConfigFile)
	case haveYAML:
		return parseYAML(yamlConfigFile, yamlData)
	case haveTOML:
		return parseTOML(tomlConfigFile, tomlData)
	default:
		return Default(), nil
	}
}

// parseYAML decodes a YAML project config. Unknown keys are schema
// violations; fields left unset inherit the built-in defaults.
func parseYAML(name string, data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// parseTOML decodes a TOML project config with the same schema as YAML.
// TOML has no null literal, so "= false" is the disable sentinel.
func parseTOML(name string, data []byte) (*ProjectConfig, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	var cfg ProjectConfig
	for key, val := range raw {
		switch key {
		case "imageTagsOnTagPushed":
			t, err := templatesFromValue(val)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %s: %w", name, key, err)
			}
			cfg.ImageTagsOnTagPushed = t
		case "imageTagsOnBranchPushed":
			t, err := templatesFromValue(val)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %s: %w", name, key, err)
			}
			cfg.ImageTagsOnBranchPushed = t
		case "watchFiles":
			list, err := stringList(val)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %s: %w", name, key, err)
			}
			cfg.WatchFiles = list
		default:
			return nil, fmt.Errorf("parsing %s: unknown key %q", name, key)
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills fields the config file left unset.
func applyDefaults(cfg *ProjectConfig) {
	def := Default()
	if !cfg.ImageTagsOnTagPushed.Defined() {
		cfg.ImageTagsOnTagPushed = def.ImageTagsOnTagPushed
	}
	if !cfg.ImageTagsOnBranchPushed.Defined() {
		cfg.ImageTagsOnBranchPushed = def.ImageTagsOnBranchPushed
	}
	if cfg.WatchFiles == nil {
		cfg.WatchFiles = def.WatchFiles
	}
}

// templatesFromValue converts a decoded TOML value into TagTemplates.
func templatesFromValue(val any) (TagTemplates, error) {
	switch v := val.(type) {
	case bool:
		if v {
			return TagTemplates{}, fmt.Errorf("expected a list of templates or false, got true")
		}
		return DisabledTemplates(), nil
	case []any:
		list, err := stringList(v)
		if err != nil {
			return TagTemplates{}, err
		}
		return Templates(list...), nil
	default:
		return TagTemplates{}, fmt.Errorf("expected a list of templates or false, got %T", val)
	}
}

// stringList converts a decoded []any into []string.
func stringList(val any) ([]string, error) {
	items, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings, got %T", val)
	}
	list := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string element, got %T", item)
		}
		list = append(list, s)
	}
	return list, nil
}
