// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command sitepool plans, runs and submits site-indexed workloads.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
