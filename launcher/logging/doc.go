// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*

The bootloader emits two kinds of output:

1. Internal logs: the bootloader's own diagnostics, written through logrus to stderr.
   They default to warnings only so that a packaged application looks like the
   application itself; SFX_LOG_LEVEL raises the level for troubleshooting.
2. Fatal reports: a single user-visible line on stderr written right before the
   bootloader exits with the reserved failure code.

The payload's stdout and stderr are inherited and never pass through here.

*/
package logging
