// Package config resolves the run configuration from
// defaults, a config file on disk, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
)

// DefaultFileName is the config file looked up in the
// working directory when no --config path is given.
const DefaultFileName = "compress_images.ini"

const (
	MinQuality     = 0
	MaxQuality     = 100
	DefaultQuality = 80

	// placeholderInputDir is written to fresh config files
	// so the user has an obvious value to edit.
	placeholderInputDir = "/path/to/your/images"
)

var (
	ErrQualityRange = fmt.Errorf("quality must be between %d and %d", MinQuality, MaxQuality)
	ErrNoInputDir   = errors.New("input directory does not exist")
	ErrInputNotDir  = errors.New("input path is not a directory")
)

// Config holds the settings for one batch run.
type Config struct {
	InputDir string

	// OutputDir receives mirrored copies. Empty means
	// files are overwritten in place.
	OutputDir string

	// Quality is the 0-100 lossy compression level.
	Quality int

	// Recursive descends into subdirectories of InputDir.
	Recursive bool

	// SkipExisting leaves files alone whose mirrored
	// output already exists. Ignored in place.
	SkipExisting bool
}

// Default returns the settings written to a fresh config
// file.
func Default() Config {
	return Config{
		InputDir:  placeholderInputDir,
		OutputDir: "",
		Quality:   DefaultQuality,
		Recursive: true,
	}
}

// InPlace reports whether files are overwritten rather
// than mirrored.
func (c *Config) InPlace() bool {
	return c.OutputDir == ""
}

// Validate checks the quality range and that InputDir is
// an existing directory.
func (c *Config) Validate() error {
	if c.Quality < MinQuality || c.Quality > MaxQuality {
		return fmt.Errorf("%w (got %d)", ErrQualityRange, c.Quality)
	}
	if c.InputDir == "" {
		return fmt.Errorf("%w: no input directory configured", ErrNoInputDir)
	}
	info, err := os.Stat(c.InputDir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoInputDir, c.InputDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputNotDir, c.InputDir)
	}
	return nil
}
