// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"sync"

	"go.amzn.com/bootloader/launcher/supervisor/model"

	log "github.com/sirupsen/logrus"
)

type stateMachine struct {
	mu    sync.Mutex
	state model.State
}

// State returns the current launch state.
func (m *stateMachine) State() model.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *stateMachine) transition(to model.State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()

	log.WithFields(log.Fields{"from": from, "to": to}).Debug("Launch state")
}
