// Package config carries the execution core's recognized options and the
// provider interface for free-form enablement flags.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/edgarulg/orca/pkg/compression"
)

// Config is the execution core's configuration surface.
type Config struct {
	// CompressionEnabled gates the body-resolution policy: when false the
	// store reader never selects compression columns, which may not exist.
	CompressionEnabled bool

	// CompressionScheme names the scheme used when writing compressed bodies.
	CompressionScheme compression.Scheme `validate:"required_with=CompressionEnabled"`

	// StageBatchSize bounds how many executions share one stage fetch query.
	StageBatchSize int `validate:"gt=0"`

	// ResolvePipelineTriggers feature-flags pipeline-reference trigger
	// resolution at load time.
	ResolvePipelineTriggers bool
}

// Default returns the configuration the worker starts from before flags are
// applied.
func Default() Config {
	return Config{
		CompressionEnabled:      false,
		CompressionScheme:       compression.ZLIB,
		StageBatchSize:          200,
		ResolvePipelineTriggers: true,
	}
}

// Validate checks the configuration, returning a descriptive error for the
// first violated constraint.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.CompressionEnabled {
		if _, err := compression.ParseScheme(string(c.CompressionScheme)); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	return nil
}
