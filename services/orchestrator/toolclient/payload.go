// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
)

// buildPayload maps a resolved request onto the tool's typed wire struct.
// The resolver guarantees presence and types, so lookups here are
// best-effort conversions; validator tags catch anything that slips
// through.
func buildPayload(req datatypes.ResolvedRequest, student datatypes.StudentProfile, history []datatypes.Message) (any, error) {
	p := req.Params
	switch req.Tool {
	case datatypes.ToolNoteMaker:
		return datatypes.NoteMakerRequest{
			UserInfo:         student,
			ChatHistory:      history,
			Topic:            paramString(p, "topic"),
			Subject:          paramString(p, "subject"),
			NoteTakingStyle:  paramString(p, "note_taking_style"),
			IncludeExamples:  paramBool(p, "include_examples"),
			IncludeAnalogies: paramBool(p, "include_analogies"),
		}, nil

	case datatypes.ToolFlashcardGenerator:
		return datatypes.FlashcardRequest{
			UserInfo:        student,
			Topic:           paramString(p, "topic"),
			Subject:         paramString(p, "subject"),
			Count:           paramInt(p, "count"),
			Difficulty:      paramString(p, "difficulty"),
			IncludeExamples: paramBool(p, "include_examples"),
		}, nil

	case datatypes.ToolConceptExplainer:
		return datatypes.ConceptExplainerRequest{
			UserInfo:         student,
			ChatHistory:      history,
			ConceptToExplain: paramString(p, "concept_to_explain"),
			CurrentTopic:     paramString(p, "current_topic"),
			DesiredDepth:     paramString(p, "desired_depth"),
		}, nil

	default:
		return nil, fmt.Errorf("toolclient: no wire payload for tool %q", req.Tool)
	}
}

// parseReply checks a 2xx body against the tool's typed reply struct and
// returns the generic payload map the rest of the pipeline consumes. A body
// that does not fit the reply shape (unknown fields, mistyped fields) is an
// error; the caller classifies it as a malformed reply.
func parseReply(tool string, body []byte) (map[string]any, error) {
	var reply any
	switch tool {
	case datatypes.ToolNoteMaker:
		reply = &datatypes.NoteMakerReply{}
	case datatypes.ToolFlashcardGenerator:
		reply = &datatypes.FlashcardReply{}
	case datatypes.ToolConceptExplainer:
		reply = &datatypes.ConceptExplainerReply{}
	default:
		return nil, fmt.Errorf("toolclient: no reply shape for tool %q", tool)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(reply); err != nil {
		return nil, fmt.Errorf("toolclient: %s reply does not match its schema: %w", tool, err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("toolclient: unparseable success body: %w", err)
	}
	return payload, nil
}

func paramString(p map[string]any, name string) string {
	s, _ := p[name].(string)
	return s
}

func paramInt(p map[string]any, name string) int {
	switch v := p[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func paramBool(p map[string]any, name string) bool {
	b, _ := p[name].(bool)
	return b
}
