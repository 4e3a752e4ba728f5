// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/smogmap/smogmap/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
