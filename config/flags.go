package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// Flags holds everything parsed from the command line.
//
// Settings fields only override the config file when the
// matching flag was given; see Apply.
type Flags struct {
	ConfigPath     string
	RecreateConfig bool
	NoIntro        bool
	Verbose        bool
	NoColor        bool
	LogFile        string

	settings Config
	set      *pflag.FlagSet
}

// ParseFlags parses args (without the program name).
// Usage text is written to out. On -h/--help the returned
// error is pflag.ErrHelp.
func ParseFlags(args []string, out io.Writer) (*Flags, error) {
	f := &Flags{}
	fs := pflag.NewFlagSet("compress-images", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false
	fs.Usage = func() {
		io.WriteString(out, "Usage: compress-images [flags]\n\n"+
			"Compresses every PNG, JPEG and WebP image in a folder (including subfolders).\n"+
			"Settings come from the config file; flags override them for this run.\n\n")
		fs.PrintDefaults()
	}

	fs.StringVarP(&f.settings.InputDir, "input", "i", "", "input folder `path`")
	fs.StringVarP(&f.settings.OutputDir, "output", "o", "", "output folder `path` (empty overwrites originals)")
	fs.IntVarP(&f.settings.Quality, "quality", "q", DefaultQuality, "compression quality (0-100)")
	fs.BoolVarP(&f.settings.Recursive, "recursive", "r", true, "descend into subfolders")
	fs.BoolVar(&f.settings.SkipExisting, "skip-existing", false, "skip files already present in the output folder")
	fs.StringVarP(&f.ConfigPath, "config", "c", DefaultFileName, "config file `path` (.ini, .yaml or .yml)")
	fs.BoolVar(&f.RecreateConfig, "recreate-config", false, "rewrite the config file with defaults and exit")
	fs.BoolVar(&f.NoIntro, "no-intro", false, "do not print the settings banner")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "verbose output")
	fs.BoolVar(&f.NoColor, "no-color", false, "disable colored output")
	fs.StringVar(&f.LogFile, "log", "", "append log lines to `file`")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.set = fs
	return f, nil
}

// Apply overrides the fields of c whose flags were given
// explicitly.
func (f *Flags) Apply(c *Config) {
	if f.set == nil {
		return
	}
	if f.set.Changed("input") {
		c.InputDir = cleanDir(f.settings.InputDir)
	}
	if f.set.Changed("output") {
		c.OutputDir = cleanDir(f.settings.OutputDir)
	}
	if f.set.Changed("quality") {
		c.Quality = f.settings.Quality
	}
	if f.set.Changed("recursive") {
		c.Recursive = f.settings.Recursive
	}
	if f.set.Changed("skip-existing") {
		c.SkipExisting = f.settings.SkipExisting
	}
}

func cleanDir(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// Setup describes what Resolve did with the config file.
type Setup int

const (
	// SetupLoaded means the config file was read and the
	// resulting Config is ready to run.
	SetupLoaded Setup = iota

	// SetupCreated means no config file existed and a
	// default one was written. The caller should exit.
	SetupCreated

	// SetupRecreated means --recreate-config overwrote the
	// config file with defaults. The caller should exit.
	SetupRecreated
)

// Resolve produces the run configuration: defaults, then
// the config file, then explicit flags. A missing file, or
// --recreate-config, writes defaults instead.
//
// The returned Config is only valid for SetupLoaded with a
// nil error.
func Resolve(f *Flags) (Config, Setup, error) {
	path := f.ConfigPath
	if path == "" {
		path = DefaultFileName
	}
	if f.RecreateConfig {
		return Default(), SetupRecreated, Save(path, Default())
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), SetupCreated, Save(path, Default())
	}

	c, err := Load(path)
	if err != nil {
		return Config{}, SetupLoaded, err
	}
	f.Apply(&c)
	c.OutputDir = cleanDir(c.OutputDir)
	if err := c.Validate(); err != nil {
		return Config{}, SetupLoaded, err
	}
	return c, SetupLoaded, nil
}
