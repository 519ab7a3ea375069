// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pathutil builds and splits paths under the platform's maximum path
// length. Construction never truncates: a result that would not fit, with room
// for the terminating NUL the OS expects, is reported as ErrPathTooLong.
package pathutil

import (
	"errors"
	"fmt"
	"os"
)

// Separator is the platform path separator.
const Separator = os.PathSeparator

// CurrentDir is returned by Dirname for paths without a directory component.
const CurrentDir = "."

// ErrPathTooLong is returned when a path, or a path being constructed,
// reaches MaxPath.
var ErrPathTooLong = errors.New("path exceeds maximum length")

func tooLong(op, path string) error {
	preview := path
	if len(preview) > 64 {
		preview = preview[:64] + "..."
	}
	return fmt.Errorf("%s %q (%d bytes, max %d): %w", op, preview, len(path), MaxPath-1, ErrPathTooLong)
}

func isSeparator(c byte) bool {
	return os.IsPathSeparator(c)
}

func trimTrailingSeparators(path string) string {
	end := len(path)
	for end > 0 && isSeparator(path[end-1]) {
		end--
	}
	return path[:end]
}

func trimLeadingSeparators(path string) string {
	start := 0
	for start < len(path) && isSeparator(path[start]) {
		start++
	}
	return path[start:]
}

func lastSeparator(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if isSeparator(path[i]) {
			return i
		}
	}
	return -1
}

// Dirname returns the parent directory component of path. Trailing separators
// are ignored; a path without a separator yields CurrentDir, and a path whose
// only separators are leading yields the root.
func Dirname(path string) (string, error) {
	if len(path) >= MaxPath {
		return "", tooLong("dirname", path)
	}

	trimmed := trimTrailingSeparators(path)
	if trimmed == "" {
		if path != "" {
			return string(Separator), nil
		}
		return CurrentDir, nil
	}

	i := lastSeparator(trimmed)
	if i < 0 {
		return CurrentDir, nil
	}

	dir := trimTrailingSeparators(trimmed[:i])
	if dir == "" {
		return string(Separator), nil
	}
	return dir, nil
}

// Basename returns the final component of path. Paths ending in a separator
// are not handled; it is meant for executable paths.
func Basename(path string) string {
	return path[lastSeparator(path)+1:]
}

// Join concatenates a and b with exactly one separator between them. Trailing
// separators of a and b and leading separators of b are dropped. An empty a
// still yields a leading separator.
func Join(a, b string) (string, error) {
	head := trimTrailingSeparators(a)
	tail := trimTrailingSeparators(trimLeadingSeparators(b))

	n := len(head) + 1 + len(tail)
	if n >= MaxPath {
		return "", tooLong("join", head+string(Separator)+tail)
	}

	buf := make([]byte, 0, n)
	buf = append(buf, head...)
	buf = append(buf, Separator)
	buf = append(buf, tail...)
	return string(buf), nil
}

// WithTrailingSeparator returns dir ending in exactly one separator.
func WithTrailingSeparator(dir string) (string, error) {
	trimmed := trimTrailingSeparators(dir)
	if len(trimmed)+1 >= MaxPath {
		return "", tooLong("directory", dir)
	}
	return trimmed + string(Separator), nil
}
