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
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/LanternEd/LanternFOSS/services/orchestrator"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/extractor"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/profile"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/providers"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/schema"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/toolclient"
	"github.com/spf13/cobra"
)

var demoScenario string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the pipeline in-process against canned extraction and tool responses",
	Long: `Runs scripted tutoring scenarios through the full pipeline without a
server, an LLM, or a tool backend. Each scenario shows one pipeline path:

  flashcards - complete request, tool invoked
  clarify    - missing topic, clarification questions returned
  anxious    - difficulty stepped down for an anxious student
  chat       - conversational message, no tool needed

Run all scenarios by default, or one with --scenario.`,
	Run: runDemoCommand,
}

func init() {
	demoCmd.Flags().StringVar(&demoScenario, "scenario", "", "Run a single scenario (flashcards, clarify, anxious, chat)")
	rootCmd.AddCommand(demoCmd)
}

// demoScenarioSpec pairs a student message with the extraction the LLM
// would produce for it.
type demoScenarioSpec struct {
	name       string
	message    string
	student    datatypes.StudentProfile
	extraction string
}

func demoStudent(emotion, mastery string) datatypes.StudentProfile {
	return datatypes.StudentProfile{
		UserID:                "demo-student",
		Name:                  "Priya",
		GradeLevel:            "7",
		LearningStyleSummary:  "Visual learner, prefers diagrams and charts",
		EmotionalStateSummary: emotion,
		MasteryLevelSummary:   mastery,
	}
}

func demoScenarios() []demoScenarioSpec {
	return []demoScenarioSpec{
		{
			name:    "flashcards",
			message: "Make me 5 flashcards about photosynthesis for biology",
			student: demoStudent("Focused and ready to work", "Level 6: good grasp of fundamentals"),
			extraction: `{
				"tool_needed": "flashcard_generator",
				"confidence": 0.92,
				"parameters": {"topic": "photosynthesis", "subject": "biology", "count": 5},
				"reasoning": "student explicitly asked for flashcards",
				"missing_parameters": ["difficulty"]
			}`,
		},
		{
			name:    "clarify",
			message: "Can you make me some notes?",
			student: demoStudent("Focused and ready to work", "Level 6: good grasp of fundamentals"),
			extraction: `{
				"tool_needed": "note_maker",
				"confidence": 0.75,
				"parameters": {},
				"reasoning": "notes requested but no topic given",
				"missing_parameters": ["topic", "subject"]
			}`,
		},
		{
			name:    "anxious",
			message: "I don't get fractions at all and the test is tomorrow, can you make flashcards?",
			student: demoStudent("Anxious about the upcoming test", "Level 5: working on intermediate skills"),
			extraction: `{
				"tool_needed": "flashcard_generator",
				"confidence": 0.88,
				"parameters": {"topic": "fractions", "subject": "math"},
				"reasoning": "flashcards requested, difficulty left to the profile",
				"missing_parameters": ["difficulty", "count"]
			}`,
		},
		{
			name:    "chat",
			message: "Thanks, that really helped!",
			student: demoStudent("Focused and ready to work", "Level 6: good grasp of fundamentals"),
			extraction: `{
				"tool_needed": "none",
				"confidence": 0.95,
				"parameters": {},
				"reasoning": "student is just expressing gratitude",
				"missing_parameters": []
			}`,
		},
	}
}

// scriptedChatClient returns a fixed extraction response, standing in for
// the LLM so the demo runs offline.
type scriptedChatClient struct {
	response string
}

func (s *scriptedChatClient) Chat(_ context.Context, _ []datatypes.Message, _ providers.ChatOptions) (string, error) {
	return s.response, nil
}

func runDemoCommand(_ *cobra.Command, _ []string) {
	scenarios := demoScenarios()
	if demoScenario != "" {
		var picked []demoScenarioSpec
		for _, s := range scenarios {
			if s.name == demoScenario {
				picked = append(picked, s)
			}
		}
		if len(picked) == 0 {
			log.Fatalf("unknown scenario %q (try flashcards, clarify, anxious, chat)", demoScenario)
		}
		scenarios = picked
	}

	registry := schema.MustLoad()
	tools := toolclient.NewMockClient()

	for _, s := range scenarios {
		fmt.Printf("\n=== Scenario: %s ===\n", s.name)
		fmt.Printf("Student: %s (%s)\n", s.student.Name, s.student.EmotionalStateSummary)
		fmt.Printf("Message: %s\n\n", s.message)

		ex, err := extractor.New(&scriptedChatClient{response: s.extraction}, registry, extractor.DefaultConfig())
		if err != nil {
			log.Fatalf("extractor: %v", err)
		}
		pipeline, err := orchestrator.NewPipeline(ex, registry, tools, profile.Options{})
		if err != nil {
			log.Fatalf("pipeline: %v", err)
		}

		history := []datatypes.Message{{Role: "user", Content: s.message}}
		result := orchestrator.FormatResult(pipeline.Run(context.Background(), history, s.student))

		printResult(result)
		if len(result.ExtractedParameters) > 0 {
			params, err := json.Marshal(result.ExtractedParameters)
			if err == nil {
				fmt.Printf("\nResolved parameters: %s\n", params)
			}
		}
	}
	fmt.Println()
}
