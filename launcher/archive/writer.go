// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

var ErrWriterClosed = errors.New("archive writer closed")

// Writer produces an archive on w. Entries are written in the order they are
// added, which is also the order the bootloader extracts them in. The
// archive is complete only after Close.
type Writer struct {
	w       io.Writer
	written uint64
	entries []*Entry
	trailer Trailer
	closed  bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// SetRuntime records the runtime version tag and library name in the trailer.
func (aw *Writer) SetRuntime(version uint32, library string) {
	aw.trailer.RuntimeVersion = version
	aw.trailer.RuntimeLibrary = library
}

// Add compresses data with c and appends it as an entry.
func (aw *Writer) Add(name string, typ EntryType, c Compression, data []byte) error {
	if aw.closed {
		return ErrWriterClosed
	}
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("invalid entry name %q", name)
	}
	if !typ.Valid() {
		return fmt.Errorf("%s: %s: %w", name, typ, ErrUnsupportedType)
	}

	stored, err := compress(c, data)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	n, err := aw.w.Write(stored)
	aw.written += uint64(n)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	aw.entries = append(aw.entries, &Entry{
		Name:        name,
		Offset:      aw.written - uint64(n),
		Length:      uint64(n),
		ULength:     uint64(len(data)),
		Compression: c,
		Type:        typ,
	})
	return nil
}

// AddOption appends a runtime option entry, "key" or "key value".
func (aw *Writer) AddOption(option string) error {
	return aw.Add(option, TypeRuntimeOption, Stored, nil)
}

// Close writes the table of contents and the trailer. It does not close the
// underlying writer.
func (aw *Writer) Close() error {
	if aw.closed {
		return ErrWriterClosed
	}
	aw.closed = true

	var toc bytes.Buffer
	for _, e := range aw.entries {
		toc.Write(e.marshal())
	}

	aw.trailer.TOCOffset = aw.written
	aw.trailer.TOCLength = uint64(toc.Len())
	aw.trailer.Length = aw.written + uint64(toc.Len()) + TrailerSize

	trailer, err := aw.trailer.marshal()
	if err != nil {
		return err
	}
	if _, err := aw.w.Write(toc.Bytes()); err != nil {
		return fmt.Errorf("write TOC: %w", err)
	}
	if _, err := aw.w.Write(trailer); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	return nil
}

func compress(c Compression, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var wc io.WriteCloser

	switch c {
	case Stored:
		return data, nil
	case Zlib:
		wc = zlib.NewWriter(&buf)
	case LZ4:
		wc = lz4.NewWriter(&buf)
	case S2:
		wc = s2.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("%w %d", ErrUnknownCompression, uint8(c))
	}

	if _, err := wc.Write(data); err != nil {
		return nil, err
	}
	if err := wc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
