package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Makepad-fr/tada-sync/internal/model"
)

// Older servers store timestamp identifiers as JSON numbers, newer ones
// as strings. Both are accepted and kept as their literal text.
const listSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "initTodo": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id", "title"],
        "properties": {
          "id": {"type": ["string", "number"]},
          "title": {"type": "string"},
          "completed": {"type": "boolean"}
        }
      }
    }
  }
}`

var compiledListSchema = jsonschema.MustCompileString("list-response.json", listSchema)

// SchemaError reports a response body that does not match the expected shape.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return "invalid response: " + e.Err.Error() }

func (e *SchemaError) Unwrap() error { return e.Err }

func validateList(body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &SchemaError{Err: fmt.Errorf("decode: %w", err)}
	}
	if err := compiledListSchema.Validate(doc); err != nil {
		return &SchemaError{Err: err}
	}
	return nil
}

type wireItem struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	Completed bool            `json:"completed"`
}

func (w wireItem) item() model.Item {
	return model.Item{ID: idText(w.ID), Title: w.Title, Completed: w.Completed}
}

func idText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
