package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeFromName(t *testing.T) {
	tests := map[string]string{
		"notes.txt":        "txt",
		"index.html":       "html",
		"analysis.ipynb":   "ipynb",
		"archive.tar.gz":   "",
		"Makefile":         "",
		"photo.jpeg":       "",
		"weird.folder":     "",
		"nested/dir/a.tsx": "tsx",
	}

	for name, want := range tests {
		assert.Equal(t, want, FileTypeFromName(name), name)
	}
}

func TestRecordValidate(t *testing.T) {
	r := NewRecord("abc123", "https://ipfs.io/ipfs/Qm1", "demo", "txt", "alice")
	require.NoError(t, r.Validate())
	assert.True(t, r.Status)
	assert.Empty(t, r.VisitHistory)

	r.FileType = "exe"
	assert.ErrorIs(t, r.Validate(), ErrFileTypeUnsupported)

	r.FileType = "folder"
	assert.NoError(t, r.Validate())

	r.Username = ""
	assert.ErrorIs(t, r.Validate(), ErrMissingField)
}
