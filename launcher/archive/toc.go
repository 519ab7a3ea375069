// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Entry is one record of the table of contents. Entries are immutable once
// read.
type Entry struct {
	Name        string
	Offset      uint64 // relative to the archive start
	Length      uint64 // stored length
	ULength     uint64 // uncompressed length
	Compression Compression
	Type        EntryType
}

// OnDisk reports whether the entry must be extracted before launch.
func (e *Entry) OnDisk() bool {
	return e.Type.OnDisk()
}

// Dependency splits a TypeDependency name into the referenced archive and
// the entry name inside it.
func (e *Entry) Dependency() (archiveName, entryName string, err error) {
	if e.Type != TypeDependency {
		return "", "", fmt.Errorf("%s is a %s entry, not a dependency", e.Name, e.Type)
	}

	archiveName, entryName, ok := strings.Cut(e.Name, ":")
	if !ok || archiveName == "" || entryName == "" {
		return "", "", fmt.Errorf("dependency %q is not <archive>:<name>: %w", e.Name, ErrCorruptTOC)
	}
	return archiveName, entryName, nil
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s (%s, %s, %d/%d bytes)", e.Name, e.Type, e.Compression, e.Length, e.ULength)
}

// TOCIterator walks the table of contents forward, in stored order. It is
// finite and cannot be rewound; ask the Status for a new one instead.
type TOCIterator struct {
	toc     []byte
	pos     int
	dataEnd uint64
	err     error
}

// Next returns the next entry, io.EOF after the last one, or a structural
// error that is returned again on every later call.
func (it *TOCIterator) Next() (*Entry, error) {
	if it.err != nil {
		return nil, it.err
	}

	e, n, err := parseEntry(it.toc[it.pos:], it.dataEnd)
	if err != nil {
		if err != io.EOF {
			err = fmt.Errorf("TOC entry at offset %d: %w", it.pos, err)
		}
		it.err = err
		return nil, err
	}

	it.pos += n
	return e, nil
}

func parseEntry(buf []byte, dataEnd uint64) (*Entry, int, error) {
	if len(buf) == 0 {
		return nil, 0, io.EOF
	}
	if len(buf) < entryHeaderSize {
		return nil, 0, fmt.Errorf("%d trailing bytes: %w", len(buf), ErrTruncated)
	}

	entryLength := binary.BigEndian.Uint32(buf)
	if entryLength < entryHeaderSize+1 {
		return nil, 0, fmt.Errorf("entry length %d too small: %w", entryLength, ErrCorruptTOC)
	}
	if uint64(entryLength) > uint64(len(buf)) {
		return nil, 0, fmt.Errorf("entry length %d past end of TOC: %w", entryLength, ErrTruncated)
	}

	e := &Entry{
		Offset:      binary.BigEndian.Uint64(buf[4:]),
		Length:      binary.BigEndian.Uint64(buf[12:]),
		ULength:     binary.BigEndian.Uint64(buf[20:]),
		Compression: Compression(buf[28]),
		Type:        EntryType(buf[29]),
	}

	name := buf[entryHeaderSize:entryLength]
	end := bytes.IndexByte(name, 0)
	if end <= 0 {
		return nil, 0, fmt.Errorf("entry name missing or unterminated: %w", ErrCorruptTOC)
	}
	e.Name = string(name[:end])

	if !e.Type.Valid() {
		return nil, 0, fmt.Errorf("%s: %s: %w", e.Name, e.Type, ErrUnsupportedType)
	}
	if e.Offset > dataEnd || e.Length > dataEnd-e.Offset {
		return nil, 0, fmt.Errorf("%s: data [%d, +%d) reads past archive end %d: %w", e.Name, e.Offset, e.Length, dataEnd, ErrTruncated)
	}
	if e.Compression == Stored && e.Length != e.ULength {
		return nil, 0, fmt.Errorf("%s: stored entry with %d/%d bytes: %w", e.Name, e.Length, e.ULength, ErrLengthMismatch)
	}

	return e, int(entryLength), nil
}

func (e *Entry) marshal() []byte {
	nameLen := len(e.Name) + 1
	if rem := (entryHeaderSize + nameLen) % nameAlignment; rem != 0 {
		nameLen += nameAlignment - rem
	}

	buf := make([]byte, entryHeaderSize+nameLen)
	binary.BigEndian.PutUint32(buf, uint32(len(buf)))
	binary.BigEndian.PutUint64(buf[4:], e.Offset)
	binary.BigEndian.PutUint64(buf[12:], e.Length)
	binary.BigEndian.PutUint64(buf[20:], e.ULength)
	buf[28] = byte(e.Compression)
	buf[29] = byte(e.Type)
	copy(buf[entryHeaderSize:], e.Name)
	return buf
}
