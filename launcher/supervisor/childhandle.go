// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"os"
	"sync/atomic"
)

// child is the one live payload process of this launch, nil while running
// in-process or before spawning. It is written by the launching goroutine
// before signal relaying starts and read by the relay.
var child atomic.Pointer[os.Process]

// ChildPid returns the pid of the live payload process, if there is one.
func ChildPid() (int, bool) {
	if p := child.Load(); p != nil {
		return p.Pid, true
	}
	return 0, false
}

func setChild(p *os.Process) {
	child.Store(p)
}

func clearChild() {
	child.Store(nil)
}

// signalChild delivers sig to the live payload process. It reports false
// when there is nothing to deliver to.
func signalChild(sig os.Signal) (bool, error) {
	p := child.Load()
	if p == nil {
		return false, nil
	}
	return true, p.Signal(sig)
}
