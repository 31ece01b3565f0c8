// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	"github.com/LanternEd/LanternFOSS/services/orchestrator/profile"
)

// Resolution is the outcome of validating candidate parameters against a
// tool schema. Exactly one of two shapes: Complete with a fully populated
// Request, or incomplete with one clarification question per unresolvable
// parameter.
type Resolution struct {
	Complete  bool
	Request   datatypes.ResolvedRequest
	Questions []string
}

// Resolve validates the extractor's candidate parameters against the tool's
// schema and fills every gap it can.
//
// Description:
//
//	Pure and deterministic. For each declared parameter, in order:
//	  1. A present, type-valid, constraint-valid value is kept (ints are
//	     clamped into [min, max] rather than rejected).
//	  2. A missing or invalid value with a hint tag is backfilled from the
//	     personalization hints.
//	  3. Otherwise the schema default applies.
//	  4. A required parameter with none of the above produces a
//	     clarification question and the resolution is incomplete.
//	Unknown extracted parameters are dropped. Resolving an already-complete
//	request is a no-op (idempotent).
//
// Inputs:
//   - cand: The extractor's output. cand.Params may be nil.
//   - hints: Personalization hints from the student profile.
//
// Outputs:
//   - Resolution: Complete request or clarification questions.
//   - error: Non-nil only when cand.Tool is not in the registry.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Resolve(cand datatypes.CandidateParameters, hints profile.Hints) (Resolution, error) {
	spec, ok := r.tools[cand.Tool]
	if !ok {
		return Resolution{}, fmt.Errorf("schema: unknown tool %q", cand.Tool)
	}

	res := Resolution{
		Request: datatypes.ResolvedRequest{
			Tool:   cand.Tool,
			Params: make(map[string]any, len(spec.Parameters)),
		},
	}

	for _, p := range spec.Parameters {
		if raw, present := cand.Params[p.Name]; present {
			if v, valid := coerce(p, raw); valid {
				res.Request.Params[p.Name] = v
				continue
			}
		}
		if v, ok := backfill(p, hints); ok {
			res.Request.Params[p.Name] = v
			continue
		}
		if p.Default != nil {
			if v, valid := coerce(p, p.Default); valid {
				res.Request.Params[p.Name] = v
				continue
			}
		}
		if p.Required {
			q := p.Question
			if q == "" {
				q = fmt.Sprintf("Could you provide the %s?", strings.ReplaceAll(p.Name, "_", " "))
			}
			res.Questions = append(res.Questions, q)
		}
	}

	res.Complete = len(res.Questions) == 0
	return res, nil
}

// coerce checks a raw value against the parameter spec and normalizes it to
// the canonical Go type. JSON numbers arrive as float64; whole-valued floats
// are accepted for int parameters.
func coerce(p ParamSpec, raw any) (any, bool) {
	switch p.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return s, true

	case TypeEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		s = strings.ToLower(strings.TrimSpace(s))
		for _, v := range p.Enum {
			if s == v {
				return s, true
			}
		}
		return nil, false

	case TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		}
		return nil, false

	case TypeInt:
		n, ok := asInt(raw)
		if !ok {
			return nil, false
		}
		return clampInt(p, n), true
	}
	return nil, false
}

func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func clampInt(p ParamSpec, n int) int {
	if p.Min != nil && n < *p.Min {
		n = *p.Min
	}
	if p.Max != nil && n > *p.Max {
		n = *p.Max
	}
	return n
}

// backfill supplies a missing value from the personalization hints. Only
// hint-tagged parameters are backfilled; everything else falls through to
// the schema default or a clarification question.
func backfill(p ParamSpec, hints profile.Hints) (any, bool) {
	switch p.Hint {
	case HintDifficulty:
		return string(hints.Difficulty), true
	case HintDepth:
		return string(hints.Depth), true
	case HintCount:
		n := 5
		if p.Default != nil {
			if d, ok := asInt(p.Default); ok {
				n = d
			}
		}
		if hints.Has(profile.FlagMinimizeLength) && p.Min != nil {
			n = *p.Min + (n-*p.Min)/2
		}
		return clampInt(p, n), true
	case HintStyle:
		switch {
		case hints.Has(profile.FlagPreferExamples):
			return "structured", true
		case hints.Has(profile.FlagPreferPractice):
			return "bullet_points", true
		case hints.Has(profile.FlagPreferStepByStep):
			return "outline", true
		}
		return nil, false
	case HintExamples:
		if hints.Has(profile.FlagPreferExamples) {
			return true, true
		}
		return nil, false
	case HintAnalogies:
		if hints.Has(profile.FlagPreferExamples) {
			return true, true
		}
		return nil, false
	}
	return nil, false
}
