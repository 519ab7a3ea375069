// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

var ErrUnknownCompression = errors.New("unknown compression flag")

// Extract returns a reader yielding the decompressed bytes of e. The reader
// fails unless exactly e.ULength bytes come out of the stored data.
func (s *Status) Extract(e *Entry) (io.ReadCloser, error) {
	if s.file == nil {
		return nil, fmt.Errorf("%s: archive closed", s.ArchivePath)
	}

	raw := io.NewSectionReader(s.file, s.start+int64(e.Offset), int64(e.Length))

	var (
		r      io.Reader
		closer io.Closer
	)
	switch e.Compression {
	case Stored:
		r = raw
	case Zlib:
		zr, err := zlib.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: zlib header: %w", e.Name, err)
		}
		r, closer = zr, zr
	case LZ4:
		r = lz4.NewReader(raw)
	case S2:
		r = s2.NewReader(raw)
	default:
		return nil, fmt.Errorf("%s: %w %d", e.Name, ErrUnknownCompression, uint8(e.Compression))
	}

	return &sizedReader{name: e.Name, r: r, closer: closer, remaining: e.ULength}, nil
}

// ReadEntry reads the whole decompressed content of e into memory. Meant for
// small entries such as scripts and options.
func (s *Status) ReadEntry(e *Entry) ([]byte, error) {
	rc, err := s.Extract(e)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, e.ULength)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return nil, err
	}
	// Drain to the end so trailing data and checksums are verified.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return nil, err
	}
	return buf, nil
}

// sizedReader enforces the declared uncompressed length of an entry.
type sizedReader struct {
	name      string
	r         io.Reader
	closer    io.Closer
	remaining uint64
}

func (sr *sizedReader) Read(p []byte) (int, error) {
	if sr.remaining == 0 {
		// The stream must end here as well.
		var probe [1]byte
		n, err := io.ReadFull(sr.r, probe[:])
		if n > 0 {
			return 0, fmt.Errorf("%s: more data than declared: %w", sr.name, ErrLengthMismatch)
		}
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("%s: %w", sr.name, err)
		}
		return 0, io.EOF
	}

	if uint64(len(p)) > sr.remaining {
		p = p[:sr.remaining]
	}
	n, err := sr.r.Read(p)
	sr.remaining -= uint64(n)

	if err == io.EOF {
		if sr.remaining > 0 {
			return n, fmt.Errorf("%s: %d bytes short: %w", sr.name, sr.remaining, ErrLengthMismatch)
		}
		err = nil
	} else if err != nil {
		err = fmt.Errorf("%s: %w", sr.name, err)
	}
	return n, err
}

func (sr *sizedReader) Close() error {
	if sr.closer != nil {
		return sr.closer.Close()
	}
	return nil
}
