// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cleanup removes the state a launch leaves on disk.
package cleanup

import (
	"errors"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Session tracks paths created during a launch and removes them on the way
// out. Removal failures are reported, never fatal: by the time cleanup runs
// the payload has already finished.
type Session struct {
	mu      sync.Mutex
	paths   []string
	keep    bool
	done    bool
	removal func(path string) error
}

func New() *Session {
	return &Session{removal: os.RemoveAll}
}

// Track registers a path for recursive removal. Empty paths are ignored.
func (s *Session) Track(path string) {
	if path == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
}

// Keep disables removal, leaving tracked paths in place for inspection.
func (s *Session) Keep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keep = true
}

// Tracked returns the tracked paths in registration order.
func (s *Session) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Cleanup removes tracked paths, most recent first. Only the first call does
// any work.
func (s *Session) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil
	}
	s.done = true

	if s.keep {
		for _, path := range s.paths {
			log.WithField("path", path).Warn("Keeping working directory")
		}
		return nil
	}

	var errs []error
	for i := len(s.paths) - 1; i >= 0; i-- {
		path := s.paths[i]
		if err := s.removal(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("Failed to remove working directory")
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		log.WithField("path", path).Debug("Removed working directory")
	}
	return errors.Join(errs...)
}
