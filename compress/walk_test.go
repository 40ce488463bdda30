package compress

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, fsys afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte("x"), 0644))
}

func rels(entries []Entry) []string {
	var res []string
	for _, e := range entries {
		res = append(res, e.Rel)
	}
	return res
}

func TestFormatForExt(t *testing.T) {
	tests := []struct {
		ext    string
		want   Format
		wantOK bool
	}{
		{".png", PNG, true},
		{".PNG", PNG, true},
		{".jpg", JPEG, true},
		{".JpEg", JPEG, true},
		{".webp", WebP, true},
		{".gif", "", false},
		{".txt", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatForExt(tt.ext)
		assert.Equal(t, tt.wantOK, ok, tt.ext)
		assert.Equal(t, tt.want, got, tt.ext)
	}
}

func TestWalk_FiltersExtensions(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, name := range []string{"b.JPG", "a.png", "c.jpeg", "d.webp", "notes.txt", "anim.gif", "png"} {
		touch(t, fsys, filepath.Join("/in", name))
	}

	entries, err := Walk(fsys, "/in", WalkOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.JPG", "c.jpeg", "d.webp"}, rels(entries))
	assert.Equal(t, ".jpg", entries[1].Ext)
	assert.Equal(t, filepath.Join("/in", "b.JPG"), entries[1].Path)
}

func TestWalk_Recursion(t *testing.T) {
	fsys := afero.NewMemMapFs()
	touch(t, fsys, "/in/top.png")
	touch(t, fsys, "/in/album/2024/deep.jpg")
	touch(t, fsys, "/in/album/mid.png")

	entries, err := Walk(fsys, "/in", WalkOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("album", "2024", "deep.jpg"),
		filepath.Join("album", "mid.png"),
		"top.png",
	}, rels(entries))

	entries, err = Walk(fsys, "/in", WalkOptions{Recursive: false})
	require.NoError(t, err)
	assert.Equal(t, []string{"top.png"}, rels(entries))
}

func TestWalk_Exclude(t *testing.T) {
	fsys := afero.NewMemMapFs()
	touch(t, fsys, "/in/a.png")
	touch(t, fsys, "/in/compressed/a.png")

	entries, err := Walk(fsys, "/in", WalkOptions{Recursive: true, Exclude: "/in/compressed/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, rels(entries))
}

// lockedFs fails to open the listed paths, as an OS does
// for directories without read permission.
type lockedFs struct {
	afero.Fs
	locked map[string]bool
}

func (l *lockedFs) Open(name string) (afero.File, error) {
	if l.locked[filepath.Clean(name)] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return l.Fs.Open(name)
}

func TestWalk_UnreadableSubdir(t *testing.T) {
	mem := afero.NewMemMapFs()
	touch(t, mem, "/in/a.png")
	touch(t, mem, "/in/locked/b.png")
	touch(t, mem, "/in/z.jpg")
	fsys := &lockedFs{Fs: mem, locked: map[string]bool{"/in/locked": true}}

	var reported []string
	entries, err := Walk(fsys, "/in", WalkOptions{
		Recursive: true,
		OnError: func(path string, err error) {
			reported = append(reported, fmt.Sprintf("%s: %v", path, err))
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "z.jpg"}, rels(entries))
	require.Len(t, reported, 1)
	assert.Contains(t, reported[0], "/in/locked")

	fsys.locked["/in"] = true
	_, err = Walk(fsys, "/in", WalkOptions{Recursive: true})
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestWalk_IgnoresTempFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	touch(t, fsys, "/in/a.png")
	touch(t, fsys, "/in/"+tempPrefix+"123.png")
	touch(t, fsys, "/in/sub/"+tempPrefix+"9.jpg")

	entries, err := Walk(fsys, "/in", WalkOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, rels(entries))
}

func TestWalk_MissingRoot(t *testing.T) {
	_, err := Walk(afero.NewMemMapFs(), "/nowhere", WalkOptions{Recursive: true})
	assert.Error(t, err)
}

func TestWalk_Restartable(t *testing.T) {
	fsys := afero.NewMemMapFs()
	touch(t, fsys, "/in/a.png")
	touch(t, fsys, "/in/b.png")
	first, err := Walk(fsys, "/in", WalkOptions{Recursive: true})
	require.NoError(t, err)
	second, err := Walk(fsys, "/in", WalkOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNestedDir(t *testing.T) {
	tests := []struct {
		name string
		root string
		dir  string
		want string
	}{
		{"empty output", "/in", "", ""},
		{"same directory", "/in", "/in", ""},
		{"sibling", "/in", "/out", ""},
		{"parent", "/in/photos", "/in", ""},
		{"prefix but not child", "/in", "/input", ""},
		{"child", "/in", "/in/out", filepath.Join("/in", "out")},
		{"grandchild", "/in", "/in/a/b/", filepath.Join("/in", "a", "b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nestedDir(tt.root, tt.dir))
		})
	}
}
