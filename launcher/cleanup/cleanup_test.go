// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T) string {
	dir := filepath.Join(t.TempDir(), "_SFXwork")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib", "nested"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "nested", "libx.so"), []byte("x"), 0o700))
	return dir
}

func TestCleanupRemovesTree(t *testing.T) {
	dir := makeTree(t)

	s := New()
	s.Track(dir)
	require.NoError(t, s.Cleanup())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupIsIdempotent(t *testing.T) {
	var calls int
	s := New()
	s.removal = func(string) error {
		calls++
		return nil
	}
	s.Track("/tmp/a")

	require.NoError(t, s.Cleanup())
	require.NoError(t, s.Cleanup())
	assert.Equal(t, 1, calls)
}

func TestCleanupRemovesInReverseOrder(t *testing.T) {
	var removed []string
	s := New()
	s.removal = func(path string) error {
		removed = append(removed, path)
		return nil
	}
	s.Track("/tmp/first")
	s.Track("")
	s.Track("/tmp/second")

	require.NoError(t, s.Cleanup())
	assert.Equal(t, []string{"/tmp/second", "/tmp/first"}, removed)
}

func TestCleanupFailureIsReportedAndContinues(t *testing.T) {
	errBusy := errors.New("device or resource busy")
	var removed []string

	s := New()
	s.removal = func(path string) error {
		if path == "/tmp/busy" {
			return errBusy
		}
		removed = append(removed, path)
		return nil
	}
	s.Track("/tmp/ok")
	s.Track("/tmp/busy")

	err := s.Cleanup()
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, []string{"/tmp/ok"}, removed)
}

func TestKeepLeavesTreeInPlace(t *testing.T) {
	dir := makeTree(t)

	s := New()
	s.Track(dir)
	s.Keep()
	require.NoError(t, s.Cleanup())

	_, err := os.Stat(dir)
	assert.NoError(t, err)
	assert.Equal(t, []string{dir}, s.Tracked())
}
