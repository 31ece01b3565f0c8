// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profile

import (
	"testing"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
)

func TestInterpretMasteryBuckets(t *testing.T) {
	cases := []struct {
		name       string
		summary    string
		difficulty Difficulty
		depth      Depth
	}{
		{"level 1 foundational", "Level 1: Just starting out", DifficultyEasy, DepthBasic},
		{"level 3 upper foundational", "Level 3: Building foundations", DifficultyEasy, DepthBasic},
		{"level 4 developing", "Level 4: Developing understanding", DifficultyMedium, DepthIntermediate},
		{"level 6 upper developing", "Level 6: Solid grasp of fundamentals", DifficultyMedium, DepthIntermediate},
		{"level 7 advanced", "Level 7: Advanced comprehension", DifficultyHard, DepthAdvanced},
		{"level 9 upper advanced", "Level 9: Near mastery", DifficultyHard, DepthAdvanced},
		{"level 10 full mastery", "Level 10: Full mastery", DifficultyHard, DepthComprehensive},
		{"lowercase level", "level 8 with gaps in integration", DifficultyHard, DepthAdvanced},
		{"bare number", "7 out of 10 on recent assessments", DifficultyHard, DepthAdvanced},
		{"no number defaults to middle", "Comfortable with most topics", DifficultyMedium, DepthIntermediate},
		{"empty summary defaults to middle", "", DifficultyMedium, DepthIntermediate},
		{"out of range clamps", "Level 99: off the scale", DifficultyHard, DepthComprehensive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Interpret(datatypes.StudentProfile{MasteryLevelSummary: tc.summary, EmotionalStateSummary: "Focused"})
			if h.Difficulty != tc.difficulty {
				t.Errorf("difficulty = %q, want %q", h.Difficulty, tc.difficulty)
			}
			if h.Depth != tc.depth {
				t.Errorf("depth = %q, want %q", h.Depth, tc.depth)
			}
		})
	}
}

func TestInterpretEmotionalDowngrade(t *testing.T) {
	p := datatypes.StudentProfile{
		MasteryLevelSummary:   "Level 5: Developing understanding",
		EmotionalStateSummary: "Anxious about upcoming exam",
	}
	h := Interpret(p)
	if h.Difficulty != DifficultyEasy {
		t.Errorf("anxious student difficulty = %q, want %q", h.Difficulty, DifficultyEasy)
	}
	if h.Tone != ToneGentle {
		t.Errorf("anxious student tone = %q, want %q", h.Tone, ToneGentle)
	}

	// A confused high-mastery student drops one tier, not to the floor.
	p.MasteryLevelSummary = "Level 8: Advanced"
	p.EmotionalStateSummary = "Confused by the last lesson"
	h = Interpret(p)
	if h.Difficulty != DifficultyMedium {
		t.Errorf("confused student difficulty = %q, want %q", h.Difficulty, DifficultyMedium)
	}
}

func TestInterpretDowngradeSteps(t *testing.T) {
	p := datatypes.StudentProfile{
		MasteryLevelSummary:   "Level 8: Advanced",
		EmotionalStateSummary: "Anxious",
	}
	h := InterpretWithOptions(p, Options{DowngradeSteps: 2})
	if h.Difficulty != DifficultyEasy {
		t.Errorf("two-step downgrade difficulty = %q, want %q", h.Difficulty, DifficultyEasy)
	}

	// Downgrading never goes below the easiest tier.
	p.MasteryLevelSummary = "Level 2"
	h = InterpretWithOptions(p, Options{DowngradeSteps: 3})
	if h.Difficulty != DifficultyEasy {
		t.Errorf("floored downgrade difficulty = %q, want %q", h.Difficulty, DifficultyEasy)
	}
}

func TestInterpretEmotionalTone(t *testing.T) {
	cases := []struct {
		name    string
		emotion string
		tone    Tone
	}{
		{"focused is standard", "Focused and ready to learn", ToneStandard},
		{"motivated is standard", "Motivated after a good grade", ToneStandard},
		{"tired is gentle", "Tired after a long day", ToneGentle},
		{"anxious is gentle", "Anxious about the test", ToneGentle},
		{"unknown defaults to encouraging", "Feeling quite neutral", ToneEncouraging},
		{"empty defaults to encouraging", "", ToneEncouraging},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Interpret(datatypes.StudentProfile{EmotionalStateSummary: tc.emotion})
			if h.Tone != tc.tone {
				t.Errorf("tone = %q, want %q", h.Tone, tc.tone)
			}
		})
	}
}

func TestInterpretTiredMinimizesLength(t *testing.T) {
	h := Interpret(datatypes.StudentProfile{EmotionalStateSummary: "Tired but trying"})
	if !h.Has(FlagMinimizeLength) {
		t.Error("tired student should set minimize-length flag")
	}
}

func TestInterpretLearningStyleFlags(t *testing.T) {
	cases := []struct {
		name  string
		style string
		flag  Flag
	}{
		{"visual prefers examples", "Visual learner, likes diagrams", FlagPreferExamples},
		{"kinesthetic prefers practice", "Kinesthetic, learns by doing", FlagPreferPractice},
		{"auditory prefers step by step", "Auditory learner", FlagPreferStepByStep},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Interpret(datatypes.StudentProfile{LearningStyleSummary: tc.style})
			if !h.Has(tc.flag) {
				t.Errorf("style %q should set flag %q", tc.style, tc.flag)
			}
		})
	}
}

// Interpret must be total: any combination of summaries yields usable hints.
func TestInterpretTotality(t *testing.T) {
	inputs := []datatypes.StudentProfile{
		{},
		{MasteryLevelSummary: "!!!", EmotionalStateSummary: "???", LearningStyleSummary: "---"},
		{MasteryLevelSummary: "Level -3"},
		{MasteryLevelSummary: "Level 0"},
		{EmotionalStateSummary: "ANXIOUS AND CONFUSED"},
	}
	for _, p := range inputs {
		h := Interpret(p)
		if h.Difficulty == "" || h.Depth == "" || h.Tone == "" {
			t.Errorf("Interpret(%+v) left a zero hint: %+v", p, h)
		}
		if h.Flags == nil {
			t.Errorf("Interpret(%+v) returned nil flags map", p)
		}
	}
}
