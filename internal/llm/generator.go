// Package llm calls a hosted language model for schema-constrained JSON output.
package llm

import "context"

// Schema types.
const (
	TypeObject  = "OBJECT"
	TypeArray   = "ARRAY"
	TypeNumber  = "NUMBER"
	TypeString  = "STRING"
	TypeBoolean = "BOOLEAN"
)

// Schema is the subset of OpenAPI schema accepted for structured output.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// ArrayOf wraps item in an array schema.
func ArrayOf(item *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: item}
}

// Usage reports token consumption of one call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Generator produces JSON matching schema and decodes it into out.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string, schema *Schema, out interface{}) (Usage, error)
}
