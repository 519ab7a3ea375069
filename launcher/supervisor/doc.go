// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package supervisor launches the payload and reports how it finished.

Two launch strategies implement model.Launcher:

	ForkExec   starts the payload as a child process, relays termination
	           signals to it and waits for it to exit.
	InProcess  calls into the payload runtime directly. There is no child
	           and nothing to relay.

A launch moves through Idle, Spawning, Running and Reaping before ending in
Done or Signaled. When the child was killed by a signal the caller is
expected to Reraise it so that the bootloader dies the same way.
*/
package supervisor
