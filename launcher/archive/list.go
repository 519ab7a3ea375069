// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"

	"go.amzn.com/bootloader/launcher/pathutil"

	log "github.com/sirupsen/logrus"
)

// MaxArchives bounds the number of archives one launch may hold open: the
// main archive plus the archives its dependency entries reference.
const MaxArchives = 20

var ErrTooManyArchives = errors.New("too many archives")

// List is the fixed-size chain of archive sessions for one launch. Slot 0
// holds the main archive. Unused slots stay nil.
type List struct {
	slots [MaxArchives]*Status
	open  func(path string) (*Status, error)
}

// NewList starts a chain with main in slot 0. The list takes ownership of
// main.
func NewList(main *Status) *List {
	l := &List{open: Open}
	l.slots[0] = main
	return l
}

// Main returns the archive in slot 0.
func (l *List) Main() *Status {
	return l.slots[0]
}

// Get returns the archive called name, opening it from the main archive's
// home directory if it is not open yet.
func (l *List) Get(name string) (*Status, error) {
	free := -1
	for i, s := range l.slots {
		if s == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if s.Name() == name {
			return s, nil
		}
	}

	if name != pathutil.Basename(name) {
		return nil, fmt.Errorf("dependency archive %q is not a plain file name: %w", name, ErrCorruptTOC)
	}
	if free < 0 {
		return nil, fmt.Errorf("opening %s: %w (limit %d)", name, ErrTooManyArchives, MaxArchives)
	}

	path, err := pathutil.Join(l.Main().HomePath, name)
	if err != nil {
		return nil, err
	}
	s, err := l.open(path)
	if err != nil {
		return nil, fmt.Errorf("dependency archive: %w", err)
	}

	log.WithFields(log.Fields{"archive": path, "slot": free}).Debug("Opened dependency archive")
	l.slots[free] = s
	return s, nil
}

// All returns the open archives in slot order.
func (l *List) All() []*Status {
	var all []*Status
	for _, s := range l.slots {
		if s != nil {
			all = append(all, s)
		}
	}
	return all
}

// Close closes every open archive and empties the list.
func (l *List) Close() error {
	var errs []error
	for i, s := range l.slots {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		l.slots[i] = nil
	}
	return errors.Join(errs...)
}
