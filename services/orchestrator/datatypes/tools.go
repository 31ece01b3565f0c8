// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// Wire payloads for the educational tool APIs. Each request carries the
// student profile plus the resolved parameters; the validate tags are the
// last line of defense before a payload leaves the process.

// NoteMakerRequest is the wire request for the note maker tool.
type NoteMakerRequest struct {
	UserInfo         StudentProfile `json:"user_info" validate:"required"`
	ChatHistory      []Message      `json:"chat_history"`
	Topic            string         `json:"topic" validate:"required"`
	Subject          string         `json:"subject" validate:"required"`
	NoteTakingStyle  string         `json:"note_taking_style" validate:"required,oneof=outline bullet_points narrative structured"`
	IncludeExamples  bool           `json:"include_examples"`
	IncludeAnalogies bool           `json:"include_analogies"`
}

// FlashcardRequest is the wire request for the flashcard generator tool.
type FlashcardRequest struct {
	UserInfo        StudentProfile `json:"user_info" validate:"required"`
	Topic           string         `json:"topic" validate:"required"`
	Count           int            `json:"count" validate:"required,gte=1,lte=20"`
	Difficulty      string         `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Subject         string         `json:"subject" validate:"required"`
	IncludeExamples bool           `json:"include_examples"`
}

// ConceptExplainerRequest is the wire request for the concept explainer tool.
type ConceptExplainerRequest struct {
	UserInfo         StudentProfile `json:"user_info" validate:"required"`
	ChatHistory      []Message      `json:"chat_history"`
	ConceptToExplain string         `json:"concept_to_explain" validate:"required"`
	CurrentTopic     string         `json:"current_topic" validate:"required"`
	DesiredDepth     string         `json:"desired_depth" validate:"required,oneof=basic intermediate advanced comprehensive"`
}

// NoteSection is one section of generated notes.
type NoteSection struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	KeyPoints []string `json:"key_points"`
	Examples  []string `json:"examples"`
	Analogies []string `json:"analogies"`
}

// NoteMakerReply is the note maker's success payload.
type NoteMakerReply struct {
	Topic                      string        `json:"topic"`
	Title                      string        `json:"title"`
	Summary                    string        `json:"summary"`
	NoteSections               []NoteSection `json:"note_sections"`
	KeyConcepts                []string      `json:"key_concepts"`
	ConnectionsToPriorLearning []string      `json:"connections_to_prior_learning"`
	PracticeSuggestions        []string      `json:"practice_suggestions"`
	SourceReferences           []string      `json:"source_references"`
	NoteTakingStyle            string        `json:"note_taking_style"`
}

// Flashcard is a single practice card.
type Flashcard struct {
	Title    string `json:"title"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Example  string `json:"example,omitempty"`
}

// FlashcardReply is the flashcard generator's success payload.
type FlashcardReply struct {
	Flashcards        []Flashcard `json:"flashcards"`
	Topic             string      `json:"topic"`
	AdaptationDetails string      `json:"adaptation_details"`
	Difficulty        string      `json:"difficulty"`
}

// ConceptExplainerReply is the concept explainer's success payload.
type ConceptExplainerReply struct {
	Explanation       string   `json:"explanation"`
	Examples          []string `json:"examples"`
	RelatedConcepts   []string `json:"related_concepts"`
	VisualAids        []string `json:"visual_aids"`
	PracticeQuestions []string `json:"practice_questions"`
	SourceReferences  []string `json:"source_references"`
}
