// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/LanternEd/LanternFOSS/services/orchestrator"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/spf13/cobra"
)

// Flag values for the ask command.
var (
	askName    string
	askGrade   string
	askStyle   string
	askEmotion string
	askMastery string
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one student message to a running orchestrator server",
	Args:  cobra.MinimumNArgs(1),
	Run:   runAskCommand,
}

func init() {
	askCmd.Flags().StringVar(&askName, "name", "Alex", "Student name")
	askCmd.Flags().StringVar(&askGrade, "grade", "8", "Grade level")
	askCmd.Flags().StringVar(&askStyle, "style", "Visual learner, prefers diagrams", "Learning style summary")
	askCmd.Flags().StringVar(&askEmotion, "emotion", "Focused and ready to work", "Emotional state summary")
	askCmd.Flags().StringVar(&askMastery, "mastery", "Level 5: building intermediate skills", "Mastery level summary")
	rootCmd.AddCommand(askCmd)
}

// getOrchestratorBaseURL returns the server address, honoring
// LANTERN_ORCHESTRATOR_URL.
func getOrchestratorBaseURL() string {
	if url := os.Getenv("LANTERN_ORCHESTRATOR_URL"); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	return "http://localhost:8080"
}

func runAskCommand(_ *cobra.Command, args []string) {
	message := strings.Join(args, " ")
	fmt.Printf("Asking: %s\n", message)
	fmt.Println("---")

	result, err := sendOrchestrateRequest(message)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	printResult(result)
}

func sendOrchestrateRequest(message string) (datatypes.OrchestrationResult, error) {
	var result datatypes.OrchestrationResult

	body, err := json.Marshal(orchestrator.OrchestrateRequest{
		ChatHistory: []datatypes.Message{
			{Role: "user", Content: message},
		},
		StudentProfile: datatypes.StudentProfile{
			UserID:                "cli-user",
			Name:                  askName,
			GradeLevel:            askGrade,
			LearningStyleSummary:  askStyle,
			EmotionalStateSummary: askEmotion,
			MasteryLevelSummary:   askMastery,
		},
	})
	if err != nil {
		return result, fmt.Errorf("failed to create request body: %w", err)
	}

	targetURL := getOrchestratorBaseURL() + "/v1/tutor/orchestrate"
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(targetURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return result, fmt.Errorf("failed to reach orchestrator at %s: %w", targetURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("failed to read orchestrator response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("orchestrator returned an error (status %d): %s", resp.StatusCode, string(respBytes))
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return result, fmt.Errorf("failed to parse orchestrator response: %w", err)
	}
	return result, nil
}

func printResult(result datatypes.OrchestrationResult) {
	if result.NeedsClarification {
		fmt.Println("\nI need a little more information:")
		for i, q := range result.ClarificationQuestions {
			fmt.Printf("%d. %s\n", i+1, q)
		}
		return
	}

	fmt.Printf("\n%s\n", result.Message)
	if result.ToolUsed != datatypes.ToolNone {
		fmt.Printf("\nTool: %s", result.ToolUsed)
		if result.Attempts > 1 {
			fmt.Printf(" (%d attempts)", result.Attempts)
		}
		fmt.Println()
	}
	if len(result.ToolResponse) > 0 {
		pretty, err := json.MarshalIndent(result.ToolResponse, "", "  ")
		if err == nil {
			fmt.Printf("\nResponse:\n%s\n", pretty)
		}
	}
}
