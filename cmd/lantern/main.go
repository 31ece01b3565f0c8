// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lantern is the CLI companion to the tutor orchestrator.
//
// Usage:
//
//	lantern ask "make me flashcards about photosynthesis"
//	lantern demo
//	lantern demo --scenario anxious
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lantern",
	Short: "CLI for the Lantern tutor orchestrator",
	Long: `Lantern bridges a conversational tutoring agent and educational tool APIs.

The CLI talks to a running orchestrator server ('lantern ask') or runs
the pipeline in-process against canned tool responses ('lantern demo').`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
