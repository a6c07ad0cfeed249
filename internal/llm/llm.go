// Package llm defines the capability contract between the intent resolver
// and a language-model provider. The resolver never sees a provider's wire
// format; it hands over a system instruction, the conversation history and
// one output constraint (a response schema or a forced tool set) and gets a
// raw reply back.
package llm

import (
	"context"

	"ambiance/internal/ledger"
)

// Property describes one field of a response or tool-parameter schema.
type Property struct {
	Type        string   // "string" is the only type the resolver needs
	Description string
	Enum        []string // restricts the value to the catalog's ids
}

// Schema is a flat object schema. It is deliberately minimal; providers map
// it to their native schema representation.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// ToolDefinition describes a function the model is forced to invoke.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  Schema
}

// ToolCall is one function invocation returned by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// Request carries one generation call. Exactly one of Schema or Tools is
// set: Schema constrains the reply to a JSON object, Tools forces function
// calling with tool choice "any".
type Request struct {
	System  string
	History ledger.Ledger
	Schema  *Schema
	Tools   []ToolDefinition
}

// Reply is the raw upstream response, before any validation.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Client is a language-model provider. Generate blocks for at most the
// request-level timeout carried by ctx; it performs no retries of its own
// beyond transport-level courtesies - retry policy belongs to callers.
type Client interface {
	Generate(ctx context.Context, req Request) (*Reply, error)
}
