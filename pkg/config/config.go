// Package config holds the settings of a guarded extent.
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Policy decides which overlapping requests conflict.
type Policy string

const (
	// PolicyExclusive serializes every pair of overlapping requests.
	PolicyExclusive Policy = "exclusive"
	// PolicySharedReads lets overlapping reads run side by side; a write
	// still conflicts with everything it overlaps.
	PolicySharedReads Policy = "shared-reads"
)

const (
	DefaultName        = "extent0"
	DefaultSectorSize  = 512
	DefaultMaxInFlight = 1024
)

// Config is the configuration of one extent.
type Config struct {
	// Name is used in logs and error messages.
	Name string `toml:"name"`
	// SectorSize is the addressing unit in bytes, a power of two.
	SectorSize uint32 `toml:"sector_size"`
	// MaxInFlight bounds the number of requests an extent tracks at once.
	MaxInFlight int64 `toml:"max_in_flight"`
	// Policy is the conflict policy, see Policy.
	Policy Policy `toml:"policy"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	return &Config{
		Name:        DefaultName,
		SectorSize:  DefaultSectorSize,
		MaxInFlight: DefaultMaxInFlight,
		Policy:      PolicyExclusive,
	}
}

// Load reads a TOML config file. Fields missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in config %s: %v", path, undecoded)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// Decode parses a TOML document, see Load.
func Decode(data string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(data, c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys: %v", undecoded)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errm error
	if c.Name == "" {
		errm = errors.Join(errm, fmt.Errorf("name must not be empty"))
	}
	if c.SectorSize == 0 || c.SectorSize&(c.SectorSize-1) != 0 {
		errm = errors.Join(errm, fmt.Errorf("sector_size must be a power of two, got %d", c.SectorSize))
	}
	if c.MaxInFlight <= 0 {
		errm = errors.Join(errm, fmt.Errorf("max_in_flight must be positive, got %d", c.MaxInFlight))
	}
	switch c.Policy {
	case PolicyExclusive, PolicySharedReads:
	default:
		errm = errors.Join(errm, fmt.Errorf("unknown policy %q", c.Policy))
	}
	return errm
}
