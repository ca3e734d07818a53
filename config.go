package memsim

import (
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config ...
type Config struct {
	MemorySize    int `toml:"memory_size" default:"256"`
	PageSize      int `toml:"page_size" default:"16"`
	EventCapacity int `toml:"event_capacity" default:"1000"`
}

// MaxEventCapacity bounds the event ring, which is allocated up front
const MaxEventCapacity = 1 << 20

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		MemorySize:    256,
		PageSize:      16,
		EventCapacity: 1000,
	}
}

// TotalFrames ...
func (c Config) TotalFrames() int {
	return c.MemorySize / c.PageSize
}

// Validate ...
func (c Config) Validate() error {
	if c.MemorySize <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "memory size must > 0, got %d", c.MemorySize)
	}
	if c.PageSize <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "page size must > 0, got %d", c.PageSize)
	}
	if c.MemorySize%c.PageSize != 0 {
		return errors.Wrapf(ErrInvalidConfiguration,
			"memory size %d is not a multiple of page size %d", c.MemorySize, c.PageSize)
	}
	if c.EventCapacity <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "event capacity must > 0, got %d", c.EventCapacity)
	}
	if c.EventCapacity > MaxEventCapacity {
		return errors.Wrapf(ErrInvalidConfiguration,
			"event capacity must <= %d, got %d", MaxEventCapacity, c.EventCapacity)
	}
	return nil
}

// LoadConfig reads a TOML file, keys missing from the file keep their default value
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()

	tree, err := toml.LoadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to load TOML: %s", path)
	}
	if err := tree.Unmarshal(&conf); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal TOML")
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}
