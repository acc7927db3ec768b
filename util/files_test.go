package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldDetectExistingFile(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	assert.False(IsFileExists(path))
	assert.NoError(os.WriteFile(path, []byte("x"), 0644))
	assert.True(IsFileExists(path))
}

func TestShouldCreateMissingDir(t *testing.T) {
	assert := assert.New(t)

	dir := filepath.Join(t.TempDir(), "a", "b")
	assert.NoError(MkdirIfNotExist(dir))
	assert.True(IsFileExists(dir))

	// already there, no-op
	assert.NoError(MkdirIfNotExist(dir))
}

func TestShouldWriteFileAtomically(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "out", "data.bin")

	n, err := WriteFileAtomic(path, strings.NewReader("hello"))
	assert.NoError(err)
	assert.Equal(int64(5), n)

	raw, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Equal("hello", string(raw))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(err)
	assert.Len(entries, 1)
}

func TestShouldReplaceExistingFileAtomically(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "data.bin")
	_, err := WriteFileAtomic(path, strings.NewReader("old"))
	assert.NoError(err)

	_, err = WriteFileAtomic(path, strings.NewReader("new"))
	assert.NoError(err)

	raw, _ := os.ReadFile(path)
	assert.Equal("new", string(raw))
}
