// Package config is used to load the configuration file
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type scan struct {
	Parallel int      `mapstructure:"parallel" yaml:"parallel"`
	Database string   `mapstructure:"database" yaml:"database,omitempty"`
	Exclude  []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
}

type analysis struct {
	MaxVersion int `mapstructure:"max-version" yaml:"max-version"`
}

// Config is the configuration struct
type Config struct {
	Verbose  bool     `mapstructure:"verbose" yaml:"verbose"`
	Scan     scan     `mapstructure:"scan" yaml:"scan"`
	Analysis analysis `mapstructure:"analysis" yaml:"analysis"`
}

// SetDefaults registers the default values with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scan.parallel", runtime.NumCPU())
	v.SetDefault("analysis.max-version", iboot.VersionMax)
}

func (c *Config) verify() error {
	if c.Scan.Parallel < 1 {
		return fmt.Errorf("config: scan.parallel must be at least 1 (got %d)", c.Scan.Parallel)
	}
	if c.Analysis.MaxVersion > 0 && c.Analysis.MaxVersion <= iboot.VersionMin {
		return fmt.Errorf("config: analysis.max-version must be above %d (got %d)", iboot.VersionMin, c.Analysis.MaxVersion)
	}
	for _, pattern := range c.Scan.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("config: bad scan.exclude pattern %q: %v", pattern, err)
		}
	}
	return nil
}

// Load unmarshals and verifies the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c *Config

	if err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.WeaklyTypedHook,
	))); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}
	if c == nil {
		c = &Config{}
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}

// LoadConfig loads the configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Options returns the analysis options for the configuration.
func (c *Config) Options() []iboot.Option {
	return []iboot.Option{iboot.WithMaxVersion(c.Analysis.MaxVersion)}
}

// Write dumps the configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: failed to encode: %v", err)
	}
	return enc.Close()
}
