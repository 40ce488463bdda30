package compress

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Format is an image format the compressor can handle.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
)

// Supported image extensions (lowercase, with leading dot).
var imageExtensions = map[string]Format{
	".png":  PNG,
	".jpg":  JPEG,
	".jpeg": JPEG,
	".webp": WebP,
}

// FormatForExt returns the format for a file extension,
// matched case-insensitively.
func FormatForExt(ext string) (Format, bool) {
	f, ok := imageExtensions[strings.ToLower(ext)]
	return f, ok
}

// Entry is an image file discovered under the input
// directory.
type Entry struct {
	Path string

	// Rel is Path relative to the walked root.
	Rel string

	// Ext is the lowercased extension, with leading dot.
	Ext string
}

type WalkOptions struct {
	Recursive bool

	// Exclude is a directory under the root whose subtree
	// is skipped, typically an output directory nested in
	// the input directory.
	Exclude string

	// OnError is called for an entry below the root that
	// cannot be read. The entry is skipped. If OnError is
	// nil, such entries are skipped silently.
	OnError func(path string, err error)
}

// Walk lists the image files under root in lexical order.
// Files with other extensions are never returned, and
// neither are temporary files left by an interrupted run.
//
// Only a failure to read root itself is returned as an
// error; unreadable entries below it are reported to
// opts.OnError and skipped.
func Walk(fsys afero.Fs, root string, opts WalkOptions) ([]Entry, error) {
	root = filepath.Clean(root)
	exclude := ""
	if opts.Exclude != "" {
		exclude = filepath.Clean(opts.Exclude)
	}

	var entries []Entry
	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if opts.OnError != nil {
				opts.OnError(path, err)
			}
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive || path == exclude {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), tempPrefix) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := imageExtensions[ext]; !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Path: path, Rel: rel, Ext: ext})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// nestedDir returns dir joined onto root when dir lies
// strictly inside root, or "" otherwise.
func nestedDir(root, dir string) string {
	if dir == "" {
		return ""
	}
	absRoot, err1 := filepath.Abs(root)
	absDir, err2 := filepath.Abs(dir)
	if err1 != nil || err2 != nil {
		return ""
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.Join(root, rel)
}
