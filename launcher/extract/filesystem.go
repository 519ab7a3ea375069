// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"io"
	"os"
)

// FileSystem is the set of file operations extraction performs.
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	Mkdir(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (io.WriteCloser, error)
	Symlink(target, link string) error
	Remove(name string) error
}

// OSFileSystem is the FileSystem backed by the os package.
type OSFileSystem struct{}

var _ FileSystem = OSFileSystem{}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) Mkdir(path string, perm os.FileMode) error {
	return os.Mkdir(path, perm)
}

func (OSFileSystem) OpenFile(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(name, flag, perm)
}

func (OSFileSystem) Symlink(target, link string) error {
	return os.Symlink(target, link)
}

func (OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}
