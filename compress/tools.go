package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/unixpickle/essentials"
)

const probeTimeout = 5 * time.Second

// pngquant exit statuses that mean "no better result", not
// failure: the output would be larger than the input, or
// the requested quality could not be reached.
const (
	pngquantExitLarger  = 98
	pngquantExitQuality = 99
)

// Toolset holds the resolved paths of the external
// compressors. An empty path means the tool is unavailable.
type Toolset struct {
	Pngquant string

	// Cjpeg is mozjpeg's cjpeg. A plain libjpeg cjpeg is
	// never recorded here since it cannot read JPEG input.
	Cjpeg string
}

// DetectTools looks up pngquant and mozjpeg's cjpeg on
// PATH and checks that each one runs.
func DetectTools(ctx context.Context) Toolset {
	var t Toolset
	if path, err := exec.LookPath("pngquant"); err == nil {
		if _, err := probe(ctx, path, "--version"); err == nil {
			t.Pngquant = path
		}
	}
	if path, err := exec.LookPath("cjpeg"); err == nil {
		// cjpeg prints its banner to stderr and may exit
		// non-zero after -version, so only the text counts.
		out, _ := probe(ctx, path, "-version")
		if strings.Contains(strings.ToLower(out), "mozjpeg") {
			t.Cjpeg = path
		}
	}
	return t
}

func probe(ctx context.Context, path string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	return string(out), err
}

// ToolError reports a non-zero exit from an external
// compressor.
type ToolError struct {
	Tool   string
	Code   int
	Stderr string
}

func (t *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", t.Tool, t.Code)
	if t.Stderr != "" {
		msg += ": " + t.Stderr
	}
	return msg
}

// pngquantArgs builds the pngquant command line. The
// accepted quality range is [max(10, q-20), q], capped so
// the minimum never exceeds q.
func pngquantArgs(quality int, src, dst string) []string {
	hi := quality
	lo := essentials.MinInt(hi, essentials.MaxInt(10, quality-20))
	return []string{
		"--skip-if-larger", "--force",
		"--quality", fmt.Sprintf("%d-%d", lo, hi),
		"--output", dst,
		src,
	}
}

func cjpegArgs(quality int, src, dst string) []string {
	return []string{"-quality", strconv.Itoa(quality), "-outfile", dst, src}
}

// runTool runs an external compressor, turning non-zero
// exits into *ToolError.
func runTool(ctx context.Context, path string, args []string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return &ToolError{
				Tool:   filepath.Base(path),
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		}
		return err
	}
	return nil
}

// isNoGainExit reports whether err is a pngquant exit that
// means the original should be kept.
func isNoGainExit(err error) bool {
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		return false
	}
	return toolErr.Code == pngquantExitLarger || toolErr.Code == pngquantExitQuality
}
