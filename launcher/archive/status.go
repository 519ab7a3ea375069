// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package archive reads the resource archive appended to, or shipped next
// to, the bootloader executable.
//
// An archive is a sequence of stored entries followed by the table of
// contents and a fixed trailer. The table of contents is walked in stored
// order only: later entries may rely on earlier ones being present on disk.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.amzn.com/bootloader/launcher/pathutil"

	log "github.com/sirupsen/logrus"
)

// SidecarExt is appended to the executable name, minus its extension, to
// find an archive installed next to the executable.
const SidecarExt = ".pkg"

// Status is the per-archive session state. It owns the open archive file
// until Close.
type Status struct {
	Trailer

	ArchivePath string // archive file, possibly the executable itself
	HomePath    string // directory holding the archive, with a trailing separator
	WorkPath    string // extraction directory, empty until extraction

	file  *os.File
	start int64 // offset of the archive inside the file
	toc   []byte

	options map[string]string
}

// Open validates the archive stored at the end of path and loads its table
// of contents.
func Open(path string) (*Status, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path of %s: %w", path, err)
	}
	if canonical, err := filepath.EvalSymlinks(abs); err == nil {
		abs = canonical
	}

	dir, err := pathutil.Dirname(abs)
	if err != nil {
		return nil, err
	}
	home, err := pathutil.WithTrailingSeparator(dir)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	s := &Status{ArchivePath: abs, HomePath: home, file: f}
	if err := s.load(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", abs, err)
	}

	log.WithFields(log.Fields{
		"archive": abs,
		"offset":  s.start,
		"length":  s.Length,
	}).Debug("Opened archive")

	return s, nil
}

// OpenSelf opens the archive appended to the executable, falling back to
// the sidecar archive installed next to it.
func OpenSelf(self pathutil.SelfLocation) (*Status, error) {
	s, err := Open(self.Path)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrBadMagic) {
		return nil, err
	}

	name := pathutil.Basename(self.Path)
	sidecar, joinErr := pathutil.Join(self.Dir, strings.TrimSuffix(name, filepath.Ext(name))+SidecarExt)
	if joinErr != nil {
		return nil, joinErr
	}

	log.WithField("sidecar", sidecar).Debug("No archive appended to executable, trying sidecar")
	s, sidecarErr := Open(sidecar)
	if sidecarErr != nil {
		return nil, fmt.Errorf("no archive in %s (%w) or beside it: %w", self.Path, err, sidecarErr)
	}
	return s, nil
}

func (s *Status) load() error {
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	size := info.Size()
	if size < TrailerSize {
		return fmt.Errorf("%d bytes is shorter than a trailer: %w", size, ErrBadMagic)
	}

	buf := make([]byte, TrailerSize)
	if _, err := s.file.ReadAt(buf, size-TrailerSize); err != nil {
		return fmt.Errorf("read trailer: %w", err)
	}

	trailer, err := unmarshalTrailer(buf)
	if err != nil {
		return err
	}
	if err := trailer.validate(size); err != nil {
		return err
	}
	s.Trailer = *trailer
	s.start = size - int64(trailer.Length)

	s.toc = make([]byte, trailer.TOCLength)
	if _, err := s.file.ReadAt(s.toc, s.start+int64(trailer.TOCOffset)); err != nil {
		return fmt.Errorf("read TOC: %w", err)
	}
	return nil
}

// Name is the archive's file name, as used by dependency entries.
func (s *Status) Name() string {
	return pathutil.Basename(s.ArchivePath)
}

// TOC returns a fresh iterator over the table of contents.
func (s *Status) TOC() *TOCIterator {
	return &TOCIterator{toc: s.toc, dataEnd: s.Length - TrailerSize}
}

// Entries drains a TOC iterator.
func (s *Status) Entries() ([]*Entry, error) {
	var entries []*Entry
	it := s.TOC()
	for {
		e, err := it.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}

// Find returns the first entry called name.
func (s *Status) Find(name string) (*Entry, error) {
	it := s.TOC()
	for {
		e, err := it.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("%s in %s: %w", name, s.Name(), ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		if e.Name == name && e.Type != TypeRuntimeOption {
			return e, nil
		}
	}
}

// Options returns the runtime options, keyed by option name. An option
// without a value maps to the empty string.
func (s *Status) Options() (map[string]string, error) {
	if s.options != nil {
		return s.options, nil
	}

	options := map[string]string{}
	it := s.TOC()
	for {
		e, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if e.Type != TypeRuntimeOption {
			continue
		}
		key, value, _ := strings.Cut(e.Name, " ")
		options[key] = strings.TrimSpace(value)
	}

	s.options = options
	return options, nil
}

// Option looks up a single runtime option.
func (s *Status) Option(key string) (string, bool) {
	options, err := s.Options()
	if err != nil {
		return "", false
	}
	value, ok := options[key]
	return value, ok
}

// Close releases the archive file.
func (s *Status) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
