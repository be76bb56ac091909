package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("  ")
	assert.Error(t, err)

	v, err := NewPathValidator(".")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(v.Root()))
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	v, err := NewPathValidator(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative", "cv.json", filepath.Join(v.Root(), "cv.json"), false},
		{"nested relative", "a/b/../cv.json", filepath.Join(v.Root(), "a", "cv.json"), false},
		{"absolute inside", filepath.Join(root, "x.yaml"), filepath.Join(v.Root(), "x.yaml"), false},
		{"root itself", root, v.Root(), false},
		{"traversal", "../escape.json", "", true},
		{"absolute outside", "/etc/passwd", "", true},
		{"sibling prefix", root + "-other/cv.json", "", true},
		{"empty", "", "", true},
		{"null bytes only", "\x00", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsEscapingSymlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	v, err := NewPathValidator(root)
	require.NoError(t, err)

	_, err = v.Resolve("link/secret.json")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	// Paths below the symlink that do not exist yet are still caught.
	_, err = v.Resolve("link/new/out.pdf")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestResolveFile(t *testing.T) {
	root := t.TempDir()
	v, err := NewPathValidator(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "cv.json"), make([]byte, 64), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))

	got, err := v.ResolveFile("cv.json", 100)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v.Root(), "cv.json"), got)

	_, err = v.ResolveFile("cv.json", 10)
	assert.ErrorContains(t, err, "limit")

	_, err = v.ResolveFile("cv.json", 0)
	assert.NoError(t, err)

	_, err = v.ResolveFile("dir", 0)
	assert.ErrorContains(t, err, "not a regular file")

	_, err = v.ResolveFile("missing.json", 0)
	assert.Error(t, err)
}
