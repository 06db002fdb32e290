// Package config handles scalafilter.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/daimatz/scalafilter/pkg/filter"
)

// FileName is the configuration file looked up when no path is given.
const FileName = "scalafilter.toml"

// Config represents a scalafilter.toml file.
type Config struct {
	Filters Filters `toml:"filters"`
	Limits  Limits  `toml:"limits"`
	Log     Log     `toml:"log"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

// Filters selects the detectors.
type Filters struct {
	Disabled         []string `toml:"disabled"`
	SyntheticBridges bool     `toml:"synthetic_bridges"`
}

// Limits bounds the methods some detectors look at.
type Limits struct {
	AccessorMaxNodes  int `toml:"accessor_max_nodes"`
	ForwarderMaxNodes int `toml:"forwarder_max_nodes"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	opts := filter.DefaultOptions()
	return &Config{
		Limits: Limits{
			AccessorMaxNodes:  opts.AccessorMaxNodes,
			ForwarderMaxNodes: opts.ForwarderMaxNodes,
		},
	}
}

// Load parses the file at path over the defaults. An empty path loads
// FileName from the working directory when present, and the defaults
// otherwise.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		if _, err := os.Stat(FileName); err != nil {
			return c, nil
		}
		path = FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	c.Path = path
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks detector names and limits.
func (c *Config) Validate() error {
	var errs []error
	known := filter.DetectorNames()
	for _, name := range c.Filters.Disabled {
		if !slices.Contains(known, name) {
			errs = append(errs, fmt.Errorf("unknown detector %q", name))
		}
	}
	if c.Limits.AccessorMaxNodes < 0 {
		errs = append(errs, errors.New("accessor_max_nodes must not be negative"))
	}
	if c.Limits.ForwarderMaxNodes < 0 {
		errs = append(errs, errors.New("forwarder_max_nodes must not be negative"))
	}
	return errors.Join(errs...)
}

// FilterOptions returns the detector options the configuration selects.
func (c *Config) FilterOptions() filter.Options {
	return filter.Options{
		Disabled:          slices.Clone(c.Filters.Disabled),
		AccessorMaxNodes:  c.Limits.AccessorMaxNodes,
		ForwarderMaxNodes: c.Limits.ForwarderMaxNodes,
		SyntheticBridges:  c.Filters.SyntheticBridges,
	}
}

// Disables reports whether the detector called name is turned off.
func (c *Config) Disables(name string) bool {
	return slices.Contains(c.Filters.Disabled, name)
}
