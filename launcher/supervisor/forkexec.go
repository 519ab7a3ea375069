// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"go.amzn.com/bootloader/launcher/runtimecmd"
	"go.amzn.com/bootloader/launcher/supervisor/model"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// typecheck interface compliance
var _ model.Launcher = (*ForkExec)(nil)

var ErrNoArgs = errors.New("empty argument vector")

// ForkExec runs the payload as a child process. Nil streams default to the
// bootloader's own.
type ForkExec struct {
	stateMachine

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewForkExec() *ForkExec {
	return &ForkExec{}
}

// Launch starts the payload and blocks until it has exited. While the payload
// runs, forwardedSignals received by the bootloader are passed on to it, and
// cancelling ctx asks it to terminate. A nil error means the payload ran; its
// outcome is in the result.
func (f *ForkExec) Launch(ctx context.Context, req *model.LaunchRequest) (*model.Result, error) {
	if len(req.Args) == 0 {
		return nil, ErrNoArgs
	}

	path := req.Path
	if path == "" {
		path = req.Args[0]
	}

	f.transition(model.Spawning)
	cmd := runtimecmd.NewPayloadCmd(append([]string{path}, req.Args[1:]...), req.Cwd, req.Env,
		orStdin(f.Stdin), orWriter(f.Stdout, os.Stdout), orWriter(f.Stderr, os.Stderr))
	cmd.Args[0] = req.Args[0]

	if err := cmd.Start(); err != nil {
		f.transition(model.Idle)
		return nil, err
	}

	// The handle must be in place before any signal can be relayed.
	setChild(cmd.Process)
	defer clearChild()

	sigs := make(chan os.Signal, len(forwardedSignals))
	signal.Notify(sigs, forwardedSignals...)
	defer signal.Reset(forwardedSignals...)
	defer signal.Stop(sigs)

	f.transition(model.Running)
	log.WithFields(log.Fields{"pid": cmd.Pid(), "path": path}).Debug("Payload started")

	exited := make(chan struct{})
	var waitErr error

	var g errgroup.Group
	g.Go(func() error {
		waitErr = cmd.Wait()
		close(exited)
		return nil
	})
	g.Go(func() error {
		relaySignals(ctx, sigs, exited)
		return nil
	})
	_ = g.Wait()

	f.transition(model.Reaping)
	result, err := resultFromWait(waitErr)
	if err != nil {
		return nil, err
	}

	f.transition(result.State())
	log.WithField("pid", cmd.Pid()).Debugf("Payload finished: %s", result)
	return result, nil
}

// relaySignals forwards every received signal to the child, exactly once,
// until the child has exited. Cancellation of ctx is forwarded as a single
// termination request.
func relaySignals(ctx context.Context, sigs <-chan os.Signal, exited <-chan struct{}) {
	done := ctx.Done()
	for {
		select {
		case <-exited:
			return
		case sig := <-sigs:
			forward(sig)
		case <-done:
			done = nil
			forward(terminateSignal)
		}
	}
}

func forward(sig os.Signal) {
	delivered, err := signalChild(sig)
	if !delivered {
		return
	}
	if err != nil {
		log.WithError(err).WithField("signal", sig).Debug("Could not forward signal")
		return
	}
	log.WithField("signal", sig).Debug("Forwarded signal to payload")
}

func orStdin(r io.Reader) io.Reader {
	if r == nil {
		return os.Stdin
	}
	return r
}

func orWriter(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
