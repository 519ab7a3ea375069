// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// SelfLocation identifies the running executable. It is resolved once at
// startup and never modified.
type SelfLocation struct {
	Path string // canonical absolute path of the executable
	Dir  string // canonical absolute directory containing it
}

// executable is swapped in tests.
var executable = os.Executable

// ResolveSelf asks the OS for the path of the running executable (never
// argv[0]) and canonicalizes it, resolving symlinks and relative segments.
func ResolveSelf() (SelfLocation, error) {
	exe, err := executable()
	if err != nil {
		return SelfLocation{}, fmt.Errorf("query executable path: %w", err)
	}

	return Canonicalize(exe)
}

// Canonicalize turns an executable path into a SelfLocation.
func Canonicalize(exe string) (SelfLocation, error) {
	abs, err := filepath.Abs(exe)
	if err != nil {
		return SelfLocation{}, fmt.Errorf("absolute path of %s: %w", exe, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return SelfLocation{}, fmt.Errorf("resolve %s: %w", abs, err)
	}

	if len(resolved) >= MaxPath {
		return SelfLocation{}, tooLong("executable", resolved)
	}

	dir, err := Dirname(resolved)
	if err != nil {
		return SelfLocation{}, err
	}

	return SelfLocation{Path: resolved, Dir: dir}, nil
}
