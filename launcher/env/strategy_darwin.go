// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package env

// Libraries resolve through @loader_path/@rpath recorded at build time.
func platformStrategy() Configurator {
	return noop{}
}
