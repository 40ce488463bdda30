package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Quality(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		quality int
		wantErr bool
	}{
		{"zero is valid", 0, false},
		{"default is valid", DefaultQuality, false},
		{"hundred is valid", 100, false},
		{"negative is invalid", -1, true},
		{"above hundred is invalid", 101, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{InputDir: dir, Quality: tt.quality}
			err := c.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrQualityRange), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_InputDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"existing directory", dir, nil},
		{"empty", "", ErrNoInputDir},
		{"missing", filepath.Join(dir, "nope"), ErrNoInputDir},
		{"regular file", file, ErrInputNotDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{InputDir: tt.input, Quality: DefaultQuality}
			err := c.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
		})
	}
}

func TestSaveLoadINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	c := Config{InputDir: "/photos", OutputDir: "/out", Quality: 65, Recursive: false, SkipExisting: true}
	require.NoError(t, Save(path, c))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestSaveLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compress_images.yaml")
	c := Config{InputDir: "/photos", Quality: 30, Recursive: true}
	require.NoError(t, Save(path, c))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadINIDefaultSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	data := "[DEFAULT]\ninput_dir = /legacy\noutput_dir =\nquality = 70\nskip_existing = no\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/legacy", c.InputDir)
	assert.Equal(t, "", c.OutputDir)
	assert.Equal(t, 70, c.Quality)
	assert.True(t, c.Recursive, "missing keys keep their defaults")
	assert.False(t, c.SkipExisting)
}

func TestLoadINIBadQuality(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("[compress]\nquality = high\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"-i", "in", "--output=out/", "-q", "55", "--no-intro", "--recreate-config"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, f.NoIntro)
	assert.True(t, f.RecreateConfig)
	assert.Equal(t, DefaultFileName, f.ConfigPath)

	c := Default()
	f.Apply(&c)
	assert.Equal(t, "in", c.InputDir)
	assert.Equal(t, "out", c.OutputDir)
	assert.Equal(t, 55, c.Quality)
	assert.True(t, c.Recursive)
}

func TestParseFlagsErrors(t *testing.T) {
	_, err := ParseFlags([]string{"--help"}, io.Discard)
	assert.Equal(t, pflag.ErrHelp, err)

	_, err = ParseFlags([]string{"-q", "lots"}, io.Discard)
	assert.Error(t, err)

	_, err = ParseFlags([]string{"--bogus"}, io.Discard)
	assert.Error(t, err)
}

func TestApplyOnlyChangedFlags(t *testing.T) {
	f, err := ParseFlags([]string{"--skip-existing"}, io.Discard)
	require.NoError(t, err)
	c := Config{InputDir: "/from/file", OutputDir: "/out", Quality: 42, Recursive: false}
	f.Apply(&c)
	assert.Equal(t, Config{InputDir: "/from/file", OutputDir: "/out", Quality: 42, Recursive: false, SkipExisting: true}, c)
}

func TestResolve_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	f, err := ParseFlags([]string{"-c", path}, io.Discard)
	require.NoError(t, err)

	_, setup, err := Resolve(f)
	require.NoError(t, err)
	assert.Equal(t, SetupCreated, setup)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestResolve_RecreateOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, Save(path, Config{InputDir: "/custom", Quality: 10}))

	f, err := ParseFlags([]string{"-c", path, "--recreate-config"}, io.Discard)
	require.NoError(t, err)
	_, setup, err := Resolve(f)
	require.NoError(t, err)
	assert.Equal(t, SetupRecreated, setup)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestResolve_ExistingFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, Save(path, Config{InputDir: dir, Quality: 10, Recursive: true}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	f, err := ParseFlags([]string{"-c", path, "-q", "90"}, io.Discard)
	require.NoError(t, err)
	c, setup, err := Resolve(f)
	require.NoError(t, err)
	assert.Equal(t, SetupLoaded, setup)
	assert.Equal(t, 90, c.Quality, "flags take precedence over the file")
	assert.Equal(t, dir, c.InputDir)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestResolve_RejectsBadQualityFromFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, Save(path, Config{InputDir: dir, Quality: 80}))

	f, err := ParseFlags([]string{"-c", path, "-q", "150"}, io.Discard)
	require.NoError(t, err)
	_, _, err = Resolve(f)
	assert.True(t, errors.Is(err, ErrQualityRange), "got %v", err)
}

func TestResolve_RejectsMissingInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, Save(path, Default()))

	f, err := ParseFlags([]string{"-c", path}, io.Discard)
	require.NoError(t, err)
	_, _, err = Resolve(f)
	assert.True(t, errors.Is(err, ErrNoInputDir), "got %v", err)
}
