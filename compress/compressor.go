// Package compress finds image files in a directory tree
// and rewrites them at reduced size, preferring external
// compressors when they are installed.
package compress

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/unixpickle/essentials"
)

// Logger is the logging interface used by the compressor.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// tempPrefix starts the name of every temporary output
// file, so leftovers from an interrupted run can be told
// apart from images.
const tempPrefix = ".compress-"

// Strategy names how a file gets compressed.
type Strategy string

const (
	StrategyPngquant Strategy = "pngquant"
	StrategyMozjpeg  Strategy = "mozjpeg"
	StrategyLibrary  Strategy = "library"
)

// Result describes one compressed file.
type Result struct {
	Strategy Strategy
	InBytes  int64
	OutBytes int64

	// Kept is set when the tool found no gain and the
	// original bytes were used as the output.
	Kept bool
}

type Compressor struct {
	fs      afero.Fs
	tools   Toolset
	quality int
	log     Logger
}

// New creates a Compressor. External tools operate on real
// paths, so they are ignored unless fsys is an *afero.OsFs.
func New(fsys afero.Fs, tools Toolset, quality int, log Logger) *Compressor {
	if _, ok := fsys.(*afero.OsFs); !ok {
		tools = Toolset{}
	}
	return &Compressor{fs: fsys, tools: tools, quality: quality, log: log}
}

// Strategy picks how files of the given format will be
// compressed.
func (c *Compressor) Strategy(f Format) Strategy {
	switch {
	case f == PNG && c.tools.Pngquant != "":
		return StrategyPngquant
	case f == JPEG && c.tools.Cjpeg != "":
		return StrategyMozjpeg
	default:
		return StrategyLibrary
	}
}

// CompressFile compresses src into dst, which may equal src.
//
// The output is written to a temporary file beside dst and
// renamed into place, so src is never truncated before it
// has been read. On an *afero.OsFs, a dst that is a
// symlink is resolved first and the file it points to is
// replaced, leaving the link itself intact.
func (c *Compressor) CompressFile(ctx context.Context, src, dst string) (*Result, error) {
	format, ok := FormatForExt(filepath.Ext(src))
	if !ok {
		return nil, essentials.AddCtx(src, errors.New("not a supported image type"))
	}
	info, err := c.fs.Stat(src)
	if err != nil {
		return nil, err
	}
	res := &Result{Strategy: c.Strategy(format), InBytes: info.Size()}

	inPlace := filepath.Clean(src) == filepath.Clean(dst)
	if _, ok := c.fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(dst); err == nil {
			dst = resolved
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, essentials.AddCtx("resolve "+dst, err)
		}
	}

	dir := filepath.Dir(dst)
	if err := c.fs.MkdirAll(dir, 0755); err != nil {
		return nil, essentials.AddCtx("create "+dir, err)
	}
	tmp, err := afero.TempFile(c.fs, dir, tempPrefix+"*"+filepath.Ext(dst))
	if err != nil {
		return nil, essentials.AddCtx("create temp file", err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			c.fs.Remove(tmpPath)
		}
	}()

	switch res.Strategy {
	case StrategyPngquant:
		tmp.Close()
		err = runTool(ctx, c.tools.Pngquant, pngquantArgs(c.quality, src, tmpPath))
		if isNoGainExit(err) {
			c.log.Debug("%s: %v", src, err)
			res.Kept = true
			if inPlace {
				res.OutBytes = res.InBytes
				return res, nil
			}
			err = c.copyFile(src, tmpPath)
		}
	case StrategyMozjpeg:
		tmp.Close()
		err = runTool(ctx, c.tools.Cjpeg, cjpegArgs(c.quality, src, tmpPath))
	default:
		err = c.encodeFile(format, src, tmp)
		if closeErr := tmp.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return nil, err
	}

	if err := c.fs.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return nil, err
	}
	if err := c.fs.Rename(tmpPath, dst); err != nil {
		return nil, essentials.AddCtx("replace "+dst, err)
	}
	renamed = true

	if outInfo, err := c.fs.Stat(dst); err == nil {
		res.OutBytes = outInfo.Size()
	}
	return res, nil
}

func (c *Compressor) encodeFile(format Format, src string, w io.Writer) error {
	r, err := c.fs.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	return EncodeLibrary(format, c.quality, r, w)
}

func (c *Compressor) copyFile(src, dst string) error {
	r, err := c.fs.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := c.fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
