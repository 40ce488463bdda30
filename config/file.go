package config

// This file reads and writes config files. The format is
// chosen by extension: .yaml/.yml files use YAML, anything
// else is INI.

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// SectionName is the INI section holding the settings.
// Keys in the default (unnamed or [DEFAULT]) section are
// read as a fallback.
const SectionName = "compress"

const (
	keyInputDir     = "input_dir"
	keyOutputDir    = "output_dir"
	keyQuality      = "quality"
	keyRecursive    = "recursive"
	keySkipExisting = "skip_existing"
)

// fileSettings is the YAML form of a config file.
type fileSettings struct {
	InputDir     string `yaml:"input_dir"`
	OutputDir    string `yaml:"output_dir"`
	Quality      int    `yaml:"quality"`
	Recursive    bool   `yaml:"recursive"`
	SkipExisting bool   `yaml:"skip_existing"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a config file on top of Default. Keys missing
// from the file keep their default values.
func Load(path string) (Config, error) {
	if isYAML(path) {
		return loadYAML(path)
	}
	return loadINI(path)
}

func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	d := Default()
	s := fileSettings{
		InputDir:     d.InputDir,
		OutputDir:    d.OutputDir,
		Quality:      d.Quality,
		Recursive:    d.Recursive,
		SkipExisting: d.SkipExisting,
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return Config{
		InputDir:     s.InputDir,
		OutputDir:    s.OutputDir,
		Quality:      s.Quality,
		Recursive:    s.Recursive,
		SkipExisting: s.SkipExisting,
	}, nil
}

func loadINI(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	c := Default()
	if k := lookupKey(f, keyInputDir); k != nil {
		c.InputDir = strings.TrimSpace(k.String())
	}
	if k := lookupKey(f, keyOutputDir); k != nil {
		c.OutputDir = strings.TrimSpace(k.String())
	}
	if k := lookupKey(f, keyQuality); k != nil {
		q, err := strconv.Atoi(strings.TrimSpace(k.String()))
		if err != nil {
			return Config{}, fmt.Errorf("%s: quality must be a whole number (got %q)", path, k.String())
		}
		c.Quality = q
	}
	if k := lookupKey(f, keyRecursive); k != nil {
		b, err := k.Bool()
		if err != nil {
			return Config{}, fmt.Errorf("%s: recursive must be yes or no (got %q)", path, k.String())
		}
		c.Recursive = b
	}
	if k := lookupKey(f, keySkipExisting); k != nil {
		b, err := k.Bool()
		if err != nil {
			return Config{}, fmt.Errorf("%s: skip_existing must be yes or no (got %q)", path, k.String())
		}
		c.SkipExisting = b
	}
	return c, nil
}

func lookupKey(f *ini.File, name string) *ini.Key {
	if sec, err := f.GetSection(SectionName); err == nil && sec.HasKey(name) {
		return sec.Key(name)
	}
	if sec := f.Section(ini.DefaultSection); sec.HasKey(name) {
		return sec.Key(name)
	}
	return nil
}

// Save writes c to path, replacing any existing file.
func Save(path string, c Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if isYAML(path) {
		data, err := yaml.Marshal(fileSettings{
			InputDir:     c.InputDir,
			OutputDir:    c.OutputDir,
			Quality:      c.Quality,
			Recursive:    c.Recursive,
			SkipExisting: c.SkipExisting,
		})
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	}

	f := ini.Empty()
	sec, err := f.NewSection(SectionName)
	if err != nil {
		return err
	}
	keys := []struct {
		name, value, comment string
	}{
		{keyInputDir, c.InputDir, "Folder of images to compress"},
		{keyOutputDir, c.OutputDir, "Destination folder (leave empty to overwrite originals)"},
		{keyQuality, strconv.Itoa(c.Quality), "Compression quality (0-100)"},
		{keyRecursive, yesNo(c.Recursive), "Descend into subfolders (yes/no)"},
		{keySkipExisting, yesNo(c.SkipExisting), "Skip files already present in the destination (yes/no)"},
	}
	for _, k := range keys {
		key, err := sec.NewKey(k.name, k.value)
		if err != nil {
			return err
		}
		key.Comment = "# " + k.comment
	}
	return f.SaveTo(path)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
