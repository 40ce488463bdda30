package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/unixpickle/compressimages/compress"
	"github.com/unixpickle/compressimages/config"
	"github.com/unixpickle/compressimages/logging"
	"github.com/unixpickle/essentials"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		essentials.Die("compress-images:", err)
	}

	log, err := logging.New(logging.Options{
		Verbose: flags.Verbose,
		NoColor: flags.NoColor,
		LogFile: flags.LogFile,
	})
	if err != nil {
		essentials.Die("compress-images:", err)
	}

	code := run(flags, log)
	log.Close()
	os.Exit(code)
}

// run resolves the config and compresses the batch,
// returning the process exit status.
func run(flags *config.Flags, log *logging.Logger) int {
	cfg, setup, err := config.Resolve(flags)
	if setup != config.SetupLoaded {
		if err != nil {
			log.Error("Cannot write config file %s: %v", flags.ConfigPath, err)
			return 1
		}
		if setup == config.SetupCreated {
			log.Success("Created default config file: %s", flags.ConfigPath)
		} else {
			log.Success("Recreated default config file: %s", flags.ConfigPath)
		}
		log.Info("Edit input_dir (and optionally output_dir and quality), then run again")
		return 0
	}
	if err != nil {
		log.Error("%v", err)
		log.Error("Check %s or the command-line flags", flags.ConfigPath)
		return 1
	}

	if !flags.NoIntro {
		printIntro(log, &cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tools := compress.DetectTools(ctx)
	logTools(log, tools)

	// The walk does not follow a symlinked root.
	inputDir, err := filepath.EvalSymlinks(cfg.InputDir)
	if err != nil {
		log.Error("Cannot resolve input directory: %v", err)
		return 1
	}
	outputDir := rebaseDir(cfg.OutputDir, cfg.InputDir, inputDir)

	c := compress.New(afero.NewOsFs(), tools, cfg.Quality, log)
	stats, err := c.Run(ctx, compress.Job{
		InputDir:     inputDir,
		OutputDir:    outputDir,
		Recursive:    cfg.Recursive,
		SkipExisting: cfg.SkipExisting,
	})
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	printSummary(log, &cfg, stats)
	return 0
}

// rebaseDir moves dir from under oldRoot to under newRoot,
// leaving it unchanged when it is not inside oldRoot.
func rebaseDir(dir, oldRoot, newRoot string) string {
	if dir == "" {
		return dir
	}
	rel, err := filepath.Rel(oldRoot, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return dir
	}
	return filepath.Join(newRoot, rel)
}

func printIntro(log *logging.Logger, cfg *config.Config) {
	output := cfg.OutputDir
	if cfg.InPlace() {
		output = "(overwrite originals)"
	}
	rule := strings.Repeat("=", 50)
	log.Plain("%s", rule)
	log.Plain("Input:          %s", cfg.InputDir)
	log.Plain("Output:         %s", output)
	log.Plain("Quality:        %d", cfg.Quality)
	log.Plain("Subfolders:     %s", yesNo(cfg.Recursive))
	log.Plain("Skip existing:  %s", yesNo(cfg.SkipExisting && !cfg.InPlace()))
	log.Plain("%s", rule)
}

func logTools(log *logging.Logger, tools compress.Toolset) {
	if tools.Pngquant != "" {
		log.Info("PNG: pngquant (%s)", tools.Pngquant)
	} else {
		log.Info("PNG: built-in encoder (pngquant not found)")
	}
	if tools.Cjpeg != "" {
		log.Info("JPEG: mozjpeg (%s)", tools.Cjpeg)
	} else {
		log.Info("JPEG: built-in encoder (mozjpeg cjpeg not found)")
	}
}

func printSummary(log *logging.Logger, cfg *config.Config, stats *compress.Stats) {
	log.Plain("")
	if stats.Total == 0 {
		log.Warn("No images found in %s", cfg.InputDir)
		return
	}
	log.Success("Done: %d compressed, %d kept, %d skipped, %d failed (of %d)",
		stats.Compressed, stats.Kept, stats.Skipped, stats.Failed, stats.Total)
	if saved := stats.SpaceSaved(); saved >= 0 {
		log.Info("Total: %s, saved %s", compress.FormatChange(stats.InBytes, stats.OutBytes),
			humanize.Bytes(uint64(saved)))
	} else {
		log.Warn("Total: outputs grew by %s", humanize.Bytes(uint64(-saved)))
	}
	output := cfg.OutputDir
	if cfg.InPlace() {
		output = cfg.InputDir
	}
	log.Info("Output: %s", output)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
