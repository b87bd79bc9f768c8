package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "Cake.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalStorageRejectsNonImages(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "script.sh", strings.NewReader("#!/bin/sh"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLocalStorageRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Save(ctx, "cake.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, url))
	_, err = os.Stat(filepath.Join(dir, filepath.Base(url)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(ctx, url))
}
