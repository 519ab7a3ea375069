// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extract materializes archive entries into a private working
// directory.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.amzn.com/bootloader/launcher/archive"
	"go.amzn.com/bootloader/launcher/fatalerror"
	"go.amzn.com/bootloader/launcher/pathutil"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// WorkDirPrefix starts the name of every working directory.
const WorkDirPrefix = "_SFX"

const (
	dirPerm     os.FileMode = 0o700
	execPerm    os.FileMode = 0o700
	regularPerm os.FileMode = 0o600
)

var (
	ErrUnsafeName        = errors.New("entry name escapes the working directory")
	ErrAlreadyExtracted  = errors.New("archive already extracted")
	ErrUnsupportedOnDisk = errors.New("entry cannot be written to disk")
)

// NeedsExtraction reports whether any entry of any open archive must be
// present on disk for the payload to run.
func NeedsExtraction(list *archive.List) (bool, error) {
	for _, s := range list.All() {
		it := s.TOC()
		for {
			e, err := it.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return false, fatalerror.New(fatalerror.ArchiveError, err)
			}
			if e.OnDisk() {
				return true, nil
			}
		}
	}
	return false, nil
}

// Extractor writes the on-disk entries of an archive chain into one freshly
// created working directory. An Extractor is good for a single extraction.
type Extractor struct {
	tempRoot  string
	fs        FileSystem
	newSuffix func() string
	workDir   string
	links     map[string]struct{} // extracted symlinks, slash-separated
}

type Option func(*Extractor)

// WithTempRoot creates the working directory under root instead of the
// platform temporary directory. The root is created if missing.
func WithTempRoot(root string) Option {
	return func(x *Extractor) {
		x.tempRoot = root
	}
}

func WithFileSystem(fs FileSystem) Option {
	return func(x *Extractor) {
		x.fs = fs
	}
}

func New(opts ...Option) *Extractor {
	x := &Extractor{
		fs:        OSFileSystem{},
		newSuffix: uniqueSuffix,
		links:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func uniqueSuffix() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:8])
}

// WorkDir returns the working directory, empty before ExtractAll created it.
func (x *Extractor) WorkDir() string {
	return x.workDir
}

// ExtractAll creates the working directory and writes every on-disk entry
// of the main archive into it, in table order. The directory is returned
// even when extraction fails part way so the caller can remove it.
func (x *Extractor) ExtractAll(list *archive.List) (string, error) {
	if x.workDir != "" {
		return x.workDir, ErrAlreadyExtracted
	}

	dir, err := x.createWorkDir()
	if err != nil {
		if fatalerror.TypeOf(err) == fatalerror.Unknown {
			err = fatalerror.New(fatalerror.ExtractionError, err)
		}
		return "", err
	}
	x.workDir = dir

	main := list.Main()
	main.WorkPath = dir

	log.WithFields(log.Fields{"archive": main.ArchivePath, "workdir": dir}).Debug("Extracting archive")

	it := main.TOC()
	for {
		e, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dir, fatalerror.New(fatalerror.ArchiveError, err)
		}
		if !e.OnDisk() {
			continue
		}
		if err := x.extractEntry(list, main, e); err != nil {
			if fatalerror.TypeOf(err) == fatalerror.Unknown {
				err = fatalerror.New(fatalerror.ExtractionError, err)
			}
			return dir, err
		}
	}

	return dir, nil
}

func (x *Extractor) createWorkDir() (string, error) {
	root := x.tempRoot
	if root == "" {
		root = os.TempDir()
	} else if err := x.fs.MkdirAll(root, dirPerm); err != nil {
		return "", fmt.Errorf("create temp root: %w", err)
	}

	dir, err := pathutil.Join(root, WorkDirPrefix+x.newSuffix())
	if err != nil {
		return "", fatalerror.New(fatalerror.PathError, err)
	}
	if err := x.fs.Mkdir(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}
	return dir, nil
}

func (x *Extractor) extractEntry(list *archive.List, s *archive.Status, e *archive.Entry) error {
	if err := checkName(e.Name); err != nil {
		return err
	}

	switch e.Type {
	case archive.TypeDependency:
		return x.extractDependency(list, e)
	case archive.TypeSymlink:
		return x.writeSymlink(s, e, e.Name)
	}
	return x.writeFile(s, e, e.Name)
}

// extractDependency copies an entry stored in another archive of the chain
// into this working directory, under its own name.
func (x *Extractor) extractDependency(list *archive.List, e *archive.Entry) error {
	archiveName, entryName, err := e.Dependency()
	if err != nil {
		return fatalerror.New(fatalerror.ArchiveError, err)
	}
	if err := checkName(entryName); err != nil {
		return err
	}

	other, err := list.Get(archiveName)
	if err != nil {
		return fatalerror.New(fatalerror.ArchiveError, err)
	}
	target, err := other.Find(entryName)
	if err != nil {
		return fatalerror.New(fatalerror.ArchiveError, err)
	}

	log.WithFields(log.Fields{"archive": archiveName, "entry": entryName}).Debug("Resolving dependency")
	switch target.Type {
	case archive.TypeSymlink:
		return x.writeSymlink(other, target, entryName)
	case archive.TypeDependency:
		return fatalerror.New(fatalerror.ArchiveError,
			fmt.Errorf("%s: dependency points at another dependency: %w", e.Name, archive.ErrCorruptTOC))
	}
	if !target.OnDisk() {
		return fatalerror.New(fatalerror.ArchiveError,
			fmt.Errorf("%s: %s entry %s: %w", e.Name, target.Type, entryName, ErrUnsupportedOnDisk))
	}
	return x.writeFile(other, target, entryName)
}

func (x *Extractor) target(name string) (string, error) {
	if err := x.checkParents(name); err != nil {
		return "", err
	}
	path, err := pathutil.Join(x.workDir, filepath.FromSlash(name))
	if err != nil {
		return "", fatalerror.New(fatalerror.PathError, err)
	}
	dir, err := pathutil.Dirname(path)
	if err != nil {
		return "", fatalerror.New(fatalerror.PathError, err)
	}
	if err := x.fs.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", name, err)
	}
	if err := x.checkResolved(name, dir); err != nil {
		return "", err
	}
	return path, nil
}

// checkParents refuses names whose parent directories pass through a symlink
// created by an earlier entry.
func (x *Extractor) checkParents(name string) error {
	parts := strings.FieldsFunc(name, isSlash)
	for i := 1; i < len(parts); i++ {
		parent := strings.Join(parts[:i], "/")
		if _, ok := x.links[parent]; ok {
			return fatalerror.New(fatalerror.ArchiveError,
				fmt.Errorf("%q: parent %s is a symlink: %w", name, parent, ErrUnsafeName))
		}
	}
	return nil
}

// checkResolved makes sure dir still lies inside the working directory once
// symlinks are resolved. Only meaningful on the real file system.
func (x *Extractor) checkResolved(name, dir string) error {
	if _, ok := x.fs.(OSFileSystem); !ok {
		return nil
	}
	root, err := filepath.EvalSymlinks(x.workDir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("resolve directory for %s: %w", name, err)
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fatalerror.New(fatalerror.ArchiveError,
			fmt.Errorf("%q resolves to %s: %w", name, resolved, ErrUnsafeName))
	}
	return nil
}

// writeFile writes the decompressed entry to name. A file that cannot be
// written completely is removed.
func (x *Extractor) writeFile(s *archive.Status, e *archive.Entry, name string) error {
	path, err := x.target(name)
	if err != nil {
		return err
	}

	rc, err := s.Extract(e)
	if err != nil {
		return fatalerror.New(fatalerror.ArchiveError, err)
	}
	defer rc.Close()

	perm := regularPerm
	if e.Type == archive.TypeBinary || e.Type == archive.TypeExtension {
		perm = execPerm
	}

	f, err := x.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	_, err = io.Copy(f, archiveReader{rc})
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", name, closeErr)
	}
	if err != nil {
		if rmErr := x.fs.Remove(path); rmErr != nil {
			log.WithError(rmErr).WithField("path", path).Warn("Failed to remove partial file")
		}
		if fatalerror.TypeOf(err) == fatalerror.Unknown {
			err = fmt.Errorf("write %s: %w", name, err)
		}
		return err
	}

	log.WithFields(log.Fields{"entry": name, "bytes": e.ULength}).Debug("Extracted")
	return nil
}

func (x *Extractor) writeSymlink(s *archive.Status, e *archive.Entry, name string) error {
	data, err := s.ReadEntry(e)
	if err != nil {
		return fatalerror.New(fatalerror.ArchiveError, err)
	}
	target := string(data)
	if err := checkLinkTarget(name, target); err != nil {
		return err
	}

	path, err := x.target(name)
	if err != nil {
		return err
	}
	if err := x.fs.Symlink(filepath.FromSlash(target), path); err != nil {
		return fmt.Errorf("symlink %s: %w", name, err)
	}
	x.links[strings.Join(strings.FieldsFunc(name, isSlash), "/")] = struct{}{}

	log.WithFields(log.Fields{"entry": name, "target": target}).Debug("Created symlink")
	return nil
}

// checkName rejects names that would resolve outside the working directory.
func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return fatalerror.New(fatalerror.ArchiveError, fmt.Errorf("%q: %w", name, ErrUnsafeName))
	}
	for _, part := range strings.FieldsFunc(name, isSlash) {
		if part == ".." {
			return fatalerror.New(fatalerror.ArchiveError, fmt.Errorf("%q: %w", name, ErrUnsafeName))
		}
	}
	return nil
}

// checkLinkTarget rejects link targets that leave the working directory when
// resolved relative to the link.
func checkLinkTarget(link, target string) error {
	if target == "" || strings.HasPrefix(target, "/") || strings.HasPrefix(target, `\`) || filepath.IsAbs(target) {
		return fatalerror.New(fatalerror.ArchiveError, fmt.Errorf("link %s -> %q: %w", link, target, ErrUnsafeName))
	}

	depth := len(strings.FieldsFunc(link, isSlash)) - 1
	for _, part := range strings.FieldsFunc(target, isSlash) {
		switch part {
		case ".":
		case "..":
			depth--
		default:
			depth++
		}
		if depth < 0 {
			return fatalerror.New(fatalerror.ArchiveError, fmt.Errorf("link %s -> %q: %w", link, target, ErrUnsafeName))
		}
	}
	return nil
}

func isSlash(r rune) bool {
	return r == '/' || r == '\\'
}

// archiveReader marks read failures as archive errors so they are not
// mistaken for write failures.
type archiveReader struct {
	r io.Reader
}

func (ar archiveReader) Read(p []byte) (int, error) {
	n, err := ar.r.Read(p)
	if err != nil && err != io.EOF {
		err = fatalerror.New(fatalerror.ArchiveError, err)
	}
	return n, err
}
