package compress

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/unixpickle/essentials"
)

// Job describes one batch run.
type Job struct {
	InputDir string

	// OutputDir mirrors the input tree. Empty means files
	// are overwritten in place.
	OutputDir string

	Recursive    bool
	SkipExisting bool
}

// Target returns where the compressed version of e goes.
func (j Job) Target(e Entry) string {
	if j.OutputDir == "" {
		return e.Path
	}
	return filepath.Join(j.OutputDir, e.Rel)
}

// Stats tracks counters and byte totals across a batch.
type Stats struct {
	Total      int
	Compressed int
	Kept       int
	Skipped    int
	Failed     int

	// Byte totals cover compressed and kept files.
	InBytes  int64
	OutBytes int64
}

// SpaceSaved is the byte difference between inputs and
// outputs. Negative means the outputs grew.
func (s *Stats) SpaceSaved() int64 {
	return s.InBytes - s.OutBytes
}

// Run compresses every image found for job, one at a time.
// A file that fails is logged and counted, and the batch
// moves on, as does the walk past unreadable subfolders.
// The error is non-nil only if the input directory itself
// could not be read.
func (c *Compressor) Run(ctx context.Context, job Job) (*Stats, error) {
	entries, err := Walk(c.fs, job.InputDir, WalkOptions{
		Recursive: job.Recursive,
		Exclude:   nestedDir(job.InputDir, job.OutputDir),
		OnError: func(path string, err error) {
			c.log.Warn("Skipping unreadable %s: %v", path, err)
		},
	})
	if err != nil {
		return nil, essentials.AddCtx("scan "+job.InputDir, err)
	}

	stats := &Stats{Total: len(entries)}
	c.log.Debug("Found %d image(s) in %s", len(entries), job.InputDir)
	for i, e := range entries {
		if ctx.Err() != nil {
			c.log.Warn("Interrupted after %d of %d files", i, len(entries))
			break
		}
		prefix := fmt.Sprintf("[%d/%d] %s", i+1, len(entries), e.Rel)
		dst := job.Target(e)

		inPlace := filepath.Clean(dst) == filepath.Clean(e.Path)
		if job.SkipExisting && !inPlace {
			if _, err := c.fs.Stat(dst); err == nil {
				c.log.Warn("%s: skipped (already in output)", prefix)
				stats.Skipped++
				continue
			}
		}

		res, err := c.CompressFile(ctx, e.Path, dst)
		if err != nil {
			c.log.Error("%s: compression failed: %v", prefix, err)
			stats.Failed++
			continue
		}
		stats.InBytes += res.InBytes
		stats.OutBytes += res.OutBytes
		if res.Kept {
			stats.Kept++
			c.log.Info("%s: kept original, %s gained nothing (%s)", prefix, res.Strategy,
				humanize.Bytes(uint64(res.InBytes)))
			continue
		}
		stats.Compressed++
		c.log.Success("%s: %s", prefix, FormatChange(res.InBytes, res.OutBytes))
		c.log.Debug("%s: strategy %s", prefix, res.Strategy)
	}
	return stats, nil
}

// FormatChange describes a size change, e.g.
// "1.2 MB -> 800 kB (33.3% reduction)".
func FormatChange(in, out int64) string {
	frac := 0.0
	if in > 0 {
		frac = float64(in-out) / float64(in)
	}
	return fmt.Sprintf("%s -> %s (%.1f%% reduction)",
		humanize.Bytes(uint64(in)), humanize.Bytes(uint64(out)), frac*100)
}
