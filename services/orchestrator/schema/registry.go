// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema owns the tool parameter schemas and the resolver that
// turns extracted candidate parameters into a validated tool request.
//
// Schemas are declarative YAML embedded at build time, so adding a tool or
// tightening a constraint is a data change, not a code change.
package schema

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Tool Schemas
// =============================================================================

//go:embed tool_schemas.yaml
var defaultToolSchemasYAML []byte

// =============================================================================
// Schema Types and Loading
// =============================================================================

// ParamType is the declared type of a tool parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeBool   ParamType = "bool"
	TypeEnum   ParamType = "enum"
)

// HintKind names which personalization hint backfills a missing parameter.
type HintKind string

const (
	HintDifficulty HintKind = "difficulty"
	HintDepth      HintKind = "depth"
	HintCount      HintKind = "count"
	HintStyle      HintKind = "style"
	HintExamples   HintKind = "examples"
	HintAnalogies  HintKind = "analogies"
)

// ParamSpec describes one tool parameter: its type, constraints, and how a
// missing value is supplied (default, personalization hint, or clarification
// question).
type ParamSpec struct {
	Name     string    `yaml:"name"`
	Type     ParamType `yaml:"type"`
	Required bool      `yaml:"required"`
	Enum     []string  `yaml:"enum"`
	Min      *int      `yaml:"min"`
	Max      *int      `yaml:"max"`
	Default  any       `yaml:"default"`
	Hint     HintKind  `yaml:"hint"`
	Question string    `yaml:"question"`
}

// ToolSpec describes one tool: its endpoint and its parameters.
type ToolSpec struct {
	Name         string      `yaml:"-"`
	Description  string      `yaml:"description"`
	EndpointPath string      `yaml:"endpoint_path"`
	Parameters   []ParamSpec `yaml:"parameters"`
}

// Registry holds the loaded tool schemas, keyed by tool name.
//
// # Thread Safety
//
// Safe for concurrent use after load (immutable).
type Registry struct {
	tools map[string]ToolSpec
	order []string
}

type schemaFile struct {
	Tools map[string]ToolSpec `yaml:"tools"`
}

var (
	cachedRegistry *Registry
	registryOnce   sync.Once
	registryErr    error
)

// Load parses and caches the embedded tool schemas. Returns the cached
// registry on subsequent calls.
//
// # Outputs
//
//   - *Registry: The loaded registry. Never nil on success.
//   - error: Non-nil if YAML parsing fails or a schema is malformed.
//
// # Thread Safety
//
// Safe for concurrent use (uses sync.Once internally).
func Load() (*Registry, error) {
	registryOnce.Do(func() {
		cachedRegistry, registryErr = parse(defaultToolSchemasYAML)
		if registryErr == nil {
			slog.Info("tool schemas loaded",
				slog.Int("tool_count", len(cachedRegistry.tools)),
			)
		}
	})
	return cachedRegistry, registryErr
}

// MustLoad loads the embedded schemas or panics. The schemas ship with the
// binary, so a parse failure is a build defect, not a runtime condition.
func MustLoad() *Registry {
	reg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("schema: embedded tool schemas invalid: %v", err))
	}
	return reg
}

func parse(raw []byte) (*Registry, error) {
	var file schemaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("schema: parsing tool_schemas.yaml: %w", err)
	}
	if len(file.Tools) == 0 {
		return nil, fmt.Errorf("schema: tool_schemas.yaml defines no tools")
	}

	reg := &Registry{tools: make(map[string]ToolSpec, len(file.Tools))}
	for name, spec := range file.Tools {
		if spec.EndpointPath == "" {
			return nil, fmt.Errorf("schema: tool %q has no endpoint_path", name)
		}
		for _, p := range spec.Parameters {
			if err := checkParamSpec(name, p); err != nil {
				return nil, err
			}
		}
		spec.Name = name
		reg.tools[name] = spec
	}

	// Deterministic catalog order for prompts and the /tools endpoint.
	for _, name := range []string{"note_maker", "flashcard_generator", "concept_explainer"} {
		if _, ok := reg.tools[name]; ok {
			reg.order = append(reg.order, name)
		}
	}
	for name := range reg.tools {
		if !contains(reg.order, name) {
			reg.order = append(reg.order, name)
		}
	}
	return reg, nil
}

func checkParamSpec(tool string, p ParamSpec) error {
	switch p.Type {
	case TypeString, TypeInt, TypeBool:
	case TypeEnum:
		if len(p.Enum) == 0 {
			return fmt.Errorf("schema: tool %q param %q is enum with no values", tool, p.Name)
		}
	default:
		return fmt.Errorf("schema: tool %q param %q has unknown type %q", tool, p.Name, p.Type)
	}
	if p.Required && p.Default == nil && p.Hint == "" && p.Question == "" {
		return fmt.Errorf("schema: tool %q param %q is required but has no question, default, or hint", tool, p.Name)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Tool returns the schema for a tool name.
func (r *Registry) Tool(name string) (ToolSpec, bool) {
	spec, ok := r.tools[name]
	return spec, ok
}

// Catalog returns all tool schemas in deterministic order.
func (r *Registry) Catalog() []ToolSpec {
	out := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the tool names in deterministic order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
