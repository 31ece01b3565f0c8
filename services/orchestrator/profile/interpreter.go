// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profile turns a student profile into personalization hints.
//
// The mapping is a fixed heuristic table: the mastery level sets the base
// difficulty/depth tier, the emotional state may downgrade difficulty and
// soften tone, and the learning style sets content-shape flags. It is pure
// and total over any input string; unmatched text is a no-op, never an
// error.
package profile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
)

// Difficulty is the personalized difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Depth is the personalized explanation depth tier.
type Depth string

const (
	DepthBasic         Depth = "basic"
	DepthIntermediate  Depth = "intermediate"
	DepthAdvanced      Depth = "advanced"
	DepthComprehensive Depth = "comprehensive"
)

// Tone is the personalized response tone.
type Tone string

const (
	ToneEncouraging Tone = "encouraging"
	ToneStandard    Tone = "standard"
	ToneGentle      Tone = "gentle"
)

// Flag is a content-shape preference derived from the learning style or
// emotional state.
type Flag string

const (
	FlagPreferExamples   Flag = "prefer-examples"
	FlagPreferPractice   Flag = "prefer-practice"
	FlagPreferStepByStep Flag = "prefer-step-by-step"
	FlagMinimizeLength   Flag = "minimize-length"
)

// Hints is the interpreter's output: everything the validator needs to
// backfill parameters the extractor could not resolve.
type Hints struct {
	Difficulty Difficulty
	Depth      Depth
	Tone       Tone
	Flags      map[Flag]bool
}

// Has reports whether a content-shape flag is set.
func (h Hints) Has(f Flag) bool {
	return h.Flags[f]
}

// Options tunes the interpretation. The downgrade magnitude for negative
// emotional states is configurable rather than load-bearing.
type Options struct {
	// DowngradeSteps is how many difficulty tiers to drop for an anxious
	// or confused student. Values <= 0 mean the default of 1.
	DowngradeSteps int
}

// masteryRe matches "Level 7" style mastery summaries. A bare leading
// number ("7 out of 10") is handled separately.
var masteryRe = regexp.MustCompile(`(?i)level\s*(\d+)`)

var leadingNumberRe = regexp.MustCompile(`\b(\d+)\b`)

// defaultMastery is the middle tier used when the summary carries no
// parseable number.
const defaultMastery = 5

// Interpret maps a student profile to personalization hints.
//
// Description:
//
//	Deterministic and side-effect free. The mastery level buckets into the
//	base difficulty/depth tier (1-3 easy/basic, 4-6 medium/intermediate,
//	7-9 hard/advanced, 10 hard/comprehensive), then the emotional state
//	may downgrade difficulty one tier and set a gentle tone, and the
//	learning style sets content-shape flags.
//
// Inputs:
//   - p: The student profile. Any field may be empty or unmatched text.
//
// Outputs:
//   - Hints: The derived personalization hints. Never an error.
//
// Thread Safety: Safe for concurrent use (pure function).
func Interpret(p datatypes.StudentProfile) Hints {
	return InterpretWithOptions(p, Options{})
}

// InterpretWithOptions is Interpret with a configurable emotion downgrade.
func InterpretWithOptions(p datatypes.StudentProfile, opts Options) Hints {
	steps := opts.DowngradeSteps
	if steps <= 0 {
		steps = 1
	}

	mastery := parseMastery(p.MasteryLevelSummary)
	h := Hints{
		Tone:  ToneEncouraging,
		Flags: map[Flag]bool{},
	}

	switch {
	case mastery <= 3:
		h.Difficulty, h.Depth = DifficultyEasy, DepthBasic
	case mastery <= 6:
		h.Difficulty, h.Depth = DifficultyMedium, DepthIntermediate
	case mastery <= 9:
		h.Difficulty, h.Depth = DifficultyHard, DepthAdvanced
	default:
		h.Difficulty, h.Depth = DifficultyHard, DepthComprehensive
	}

	emotion := strings.ToLower(p.EmotionalStateSummary)
	switch {
	case strings.Contains(emotion, "anxious") || strings.Contains(emotion, "confused") || strings.Contains(emotion, "struggling"):
		h.Difficulty = downgrade(h.Difficulty, steps)
		h.Tone = ToneGentle
	case strings.Contains(emotion, "tired"):
		h.Flags[FlagMinimizeLength] = true
		h.Tone = ToneGentle
	case strings.Contains(emotion, "focused") || strings.Contains(emotion, "motivated") || strings.Contains(emotion, "confident"):
		h.Tone = ToneStandard
	}

	style := strings.ToLower(p.LearningStyleSummary)
	switch {
	case strings.Contains(style, "visual"):
		h.Flags[FlagPreferExamples] = true
	case strings.Contains(style, "kinesthetic"):
		h.Flags[FlagPreferPractice] = true
	case strings.Contains(style, "auditory"):
		h.Flags[FlagPreferStepByStep] = true
	}

	return h
}

// parseMastery extracts the numeric mastery level from the free-text
// summary. Non-numeric summaries default to the middle tier.
func parseMastery(summary string) int {
	if m := masteryRe.FindStringSubmatch(summary); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return clampMastery(n)
		}
	}
	if m := leadingNumberRe.FindStringSubmatch(summary); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 10 {
			return n
		}
	}
	return defaultMastery
}

func clampMastery(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// downgrade drops the difficulty by steps tiers, flooring at easy.
func downgrade(d Difficulty, steps int) Difficulty {
	order := []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
	idx := 0
	for i, t := range order {
		if t == d {
			idx = i
		}
	}
	idx -= steps
	if idx < 0 {
		idx = 0
	}
	return order[idx]
}
