package liknorm

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the machine parameters shared by every worker of a run.
type Config struct {
	Nodes     int     `yaml:"nodes"`     // node budget per integration
	Precision float64 `yaml:"precision"` // relative tolerance on tail mass and quadrature error
	Workers   int     `yaml:"workers"`   // parallel machines, 0 = NumCPU
}

// DefaultConfig returns the parameters the reference table is validated with.
func DefaultConfig() Config {
	return Config{
		Nodes:     2000,
		Precision: 1e-7,
		Workers:   0,
	}
}

// Validate checks that a machine can be built from c.
func (c Config) Validate() error {
	if c.Nodes <= 0 {
		return fmt.Errorf("%w: nodes must be positive, got %d", ErrInvalidDomain, c.Nodes)
	}
	if !(c.Precision > 0) || math.IsInf(c.Precision, 0) {
		return fmt.Errorf("%w: precision must be positive and finite, got %g", ErrInvalidDomain, c.Precision)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidDomain, c.Workers)
	}
	return nil
}

// NewMachine builds a machine with c's node budget and precision.
func (c Config) NewMachine(opts ...Option) (*Machine, error) {
	return NewMachine(c.Nodes, c.Precision, opts...)
}

// LoadConfig reads a YAML config file. Keys missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
