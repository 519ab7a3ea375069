// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"

	"go.amzn.com/bootloader/launcher/supervisor/model"

	log "github.com/sirupsen/logrus"
)

// typecheck interface compliance
var _ model.Launcher = (*InProcess)(nil)

var ErrNoRuntime = errors.New("no payload runtime configured")

// Runtime is the call contract of the hosted payload: run the program found
// under home with args and report its exit status.
type Runtime interface {
	Run(ctx context.Context, home string, args []string) (int, error)
}

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(ctx context.Context, home string, args []string) (int, error)

func (f RuntimeFunc) Run(ctx context.Context, home string, args []string) (int, error) {
	return f(ctx, home, args)
}

// InProcess calls the payload runtime directly. There is no child to relay
// signals to: the runtime receives them like any code in this process.
type InProcess struct {
	stateMachine

	Runtime Runtime
}

func NewInProcess(rt Runtime) *InProcess {
	return &InProcess{Runtime: rt}
}

// Launch runs the payload. A runtime error means the payload could not be
// started; a nonzero status is a normal result.
func (p *InProcess) Launch(ctx context.Context, req *model.LaunchRequest) (*model.Result, error) {
	if p.Runtime == nil {
		return nil, ErrNoRuntime
	}

	clearChild()
	p.transition(model.Spawning)
	p.transition(model.Running)
	log.WithField("home", req.Home).Debug("Running payload in-process")

	code, err := p.Runtime.Run(ctx, req.Home, req.Args)
	if err != nil {
		p.transition(model.Idle)
		return nil, err
	}

	p.transition(model.Reaping)
	result := model.Exited(code)
	p.transition(result.State())
	return result, nil
}
