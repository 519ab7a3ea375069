// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic marks the trailer at the very end of an archive.
var Magic = [8]byte{'S', 'F', 'X', 0x0c, 0x0b, 0x0a, 0x0b, 0x0e}

const (
	runtimeLibSize = 64
	// TrailerSize is the fixed size of the trailer:
	// magic, length, TOC offset, TOC length, runtime version, runtime library.
	TrailerSize = 8 + 8 + 8 + 8 + 4 + runtimeLibSize

	// entryHeaderSize covers entryLength, offset, length, ulength, cflag and type.
	entryHeaderSize = 4 + 8 + 8 + 8 + 1 + 1
	nameAlignment   = 16
)

var (
	ErrBadMagic        = errors.New("archive magic not found")
	ErrTruncated       = errors.New("archive truncated")
	ErrCorruptTOC      = errors.New("corrupt table of contents")
	ErrLengthMismatch  = errors.New("entry length mismatch")
	ErrNotFound        = errors.New("entry not found")
	ErrUnsupportedType = errors.New("unsupported entry type")
)

// Compression identifies how an entry's bytes are stored.
type Compression uint8

const (
	Stored Compression = 0
	Zlib   Compression = 1
	LZ4    Compression = 2
	S2     Compression = 3
)

func (c Compression) String() string {
	switch c {
	case Stored:
		return "stored"
	case Zlib:
		return "zlib"
	case LZ4:
		return "lz4"
	case S2:
		return "s2"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression maps a compression name back to its flag.
func ParseCompression(name string) (Compression, error) {
	for _, c := range []Compression{Stored, Zlib, LZ4, S2} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}

// EntryType is the type tag stored with every TOC entry.
type EntryType byte

const (
	TypeBinary        EntryType = 'b' // shared library
	TypeExtension     EntryType = 'e' // extension module
	TypeData          EntryType = 'x' // data file
	TypeSymlink       EntryType = 'n' // symbolic link, data is the target
	TypeDependency    EntryType = 'd' // file stored in another archive, "<archive>:<name>"
	TypeModule        EntryType = 'm' // embedded bytecode
	TypeScript        EntryType = 's' // entry script
	TypeArchive       EntryType = 'z' // archive within the archive
	TypeRuntimeOption EntryType = 'o' // runtime option, the name carries the option
)

var entryTypes = map[EntryType]string{
	TypeBinary:        "binary",
	TypeExtension:     "extension",
	TypeData:          "data",
	TypeSymlink:       "symlink",
	TypeDependency:    "dependency",
	TypeModule:        "module",
	TypeScript:        "script",
	TypeArchive:       "archive",
	TypeRuntimeOption: "option",
}

func (t EntryType) String() string {
	if name, ok := entryTypes[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%q)", byte(t))
}

// Valid reports whether t is a known type code.
func (t EntryType) Valid() bool {
	_, ok := entryTypes[t]
	return ok
}

// OnDisk reports whether entries of this type must be materialized in the
// file system, as opposed to being consumed from memory by the payload.
func (t EntryType) OnDisk() bool {
	switch t {
	case TypeBinary, TypeExtension, TypeData, TypeSymlink, TypeDependency:
		return true
	}
	return false
}

// Trailer is the fixed-layout record closing every archive.
type Trailer struct {
	Length         uint64 // whole archive, trailer included
	TOCOffset      uint64 // relative to the archive start
	TOCLength      uint64
	RuntimeVersion uint32
	RuntimeLibrary string
}

func (t *Trailer) marshal() ([]byte, error) {
	if len(t.RuntimeLibrary) >= runtimeLibSize {
		return nil, fmt.Errorf("runtime library name %q longer than %d bytes", t.RuntimeLibrary, runtimeLibSize-1)
	}

	buf := make([]byte, TrailerSize)
	copy(buf, Magic[:])
	binary.BigEndian.PutUint64(buf[8:], t.Length)
	binary.BigEndian.PutUint64(buf[16:], t.TOCOffset)
	binary.BigEndian.PutUint64(buf[24:], t.TOCLength)
	binary.BigEndian.PutUint32(buf[32:], t.RuntimeVersion)
	copy(buf[36:], t.RuntimeLibrary)
	return buf, nil
}

func unmarshalTrailer(buf []byte) (*Trailer, error) {
	if len(buf) != TrailerSize {
		return nil, ErrTruncated
	}
	if !bytes.Equal(buf[:8], Magic[:]) {
		return nil, ErrBadMagic
	}

	return &Trailer{
		Length:         binary.BigEndian.Uint64(buf[8:]),
		TOCOffset:      binary.BigEndian.Uint64(buf[16:]),
		TOCLength:      binary.BigEndian.Uint64(buf[24:]),
		RuntimeVersion: binary.BigEndian.Uint32(buf[32:]),
		RuntimeLibrary: cString(buf[36:]),
	}, nil
}

// validate checks the trailer against the size of the file holding it.
func (t *Trailer) validate(fileSize int64) error {
	if t.Length < TrailerSize || t.Length > uint64(fileSize) {
		return fmt.Errorf("declared length %d does not fit file of %d bytes: %w", t.Length, fileSize, ErrTruncated)
	}

	dataEnd := t.Length - TrailerSize
	if t.TOCOffset > dataEnd || t.TOCLength > dataEnd-t.TOCOffset {
		return fmt.Errorf("TOC [%d, +%d) outside archive data of %d bytes: %w", t.TOCOffset, t.TOCLength, dataEnd, ErrCorruptTOC)
	}
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
