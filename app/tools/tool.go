// Package tools exposes job operations as callable functions for an external agent runtime.
// Each tool declares a JSON schema of its arguments reflected from a Go struct, the registry renders
// OpenAI-style function definitions and dispatches calls by name.
package tools

import (
	"context"
	"encoding/json"
)

// Result of a tool execution. IsError marks an expected failure reported to the agent, like a missing job.
type Result struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool defines the interface for tools that can be called by the agent
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a description of what the tool does
	Description() string

	// Parameters returns the JSON Schema for the tool's parameters
	Parameters() json.RawMessage

	// Execute runs the tool with the given arguments and returns the result
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// Definition is an OpenAI-style function tool definition
type Definition struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function part of Definition
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}
