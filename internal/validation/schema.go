// Package validation checks loosely typed JSON documents, such as prompt
// templates and queued task payloads, against embedded JSON schemas.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrSchemaInvalid = errors.New("validation: schema invalid")
	ErrSchemaUnknown = errors.New("validation: unknown schema")
)

// Schema names accepted by Check.
const (
	SchemaPromptTemplate = "prompt_template"
	SchemaSyncTask       = "sync_task"
	SchemaVectorizeTask  = "vectorize_task"
)

type document struct {
	message string
	body    string
}

var documents = map[string]document{
	SchemaPromptTemplate: {
		message: "Invalid prompt_template",
		body: `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "tone": {"type": "string", "maxLength": 64},
    "max_length": {"type": "integer", "minimum": 1, "maximum": 10000},
    "instructions": {"type": "string", "maxLength": 2000}
  }
}`,
	},
	SchemaSyncTask: {
		message: "Invalid translation sync task",
		body: `{
  "type": "object",
  "required": ["job_id"],
  "properties": {
    "job_id": {"type": "string", "format": "uuid"},
    "tenant_id": {"type": "string"}
  }
}`,
	},
	SchemaVectorizeTask: {
		message: "Invalid vectorize task",
		body: `{
  "type": "object",
  "required": ["tenant_id"],
  "properties": {
    "tenant_id": {"type": "string", "minLength": 1},
    "scopes": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`,
	},
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*jsonschema.Schema{}
)

func lookup(name string) (*jsonschema.Schema, document, error) {
	doc, ok := documents[name]
	if !ok {
		return nil, document{}, fmt.Errorf("%w: %s", ErrSchemaUnknown, name)
	}
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if schema, ok := compiled[name]; ok {
		return schema, doc, nil
	}
	schema, err := compile(name, doc.body)
	if err != nil {
		return nil, doc, err
	}
	compiled[name] = schema
	return schema, doc, nil
}

func compile(name, body string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	url := name + ".json"
	if err := compiler.AddResource(url, strings.NewReader(body)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	return schema, nil
}

// Check validates payload against the named schema. Payloads are passed
// through encoding/json first so Go slices and numbers match their decoded
// form. A failure is a go-errors validation error with one field error per
// leaf issue.
func Check(name string, payload any) error {
	schema, doc, err := lookup(name)
	if err != nil {
		return err
	}
	value, err := normalize(payload)
	if err != nil {
		return domain.InvalidInput(doc.message)
	}
	if err := schema.Validate(value); err != nil {
		var failed *jsonschema.ValidationError
		if !errors.As(err, &failed) {
			return domain.InvalidInput(doc.message)
		}
		return goerrors.NewValidation(doc.message, fieldErrors(failed)...).
			WithTextCode(domain.TextCodeValidationFailed)
	}
	return nil
}

// ValidatePromptTemplate checks a decoded prompt template. A nil template is valid.
func ValidatePromptTemplate(payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	return Check(SchemaPromptTemplate, payload)
}

func normalize(payload any) (any, error) {
	if payload == nil {
		return map[string]any{}, nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fieldErrors(root *jsonschema.ValidationError) []goerrors.FieldError {
	var out []goerrors.FieldError
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) > 0 {
			for _, cause := range node.Causes {
				walk(cause)
			}
			return
		}
		out = append(out, goerrors.FieldError{
			Field:   fieldName(node.InstanceLocation),
			Message: strings.TrimSpace(node.Message),
		})
	}
	walk(root)
	return out
}

// fieldName turns a JSON pointer such as /scopes/1 into scopes.1.
func fieldName(pointer string) string {
	pointer = strings.Trim(strings.TrimSpace(pointer), "/")
	if pointer == "" {
		return "$"
	}
	return strings.ReplaceAll(pointer, "/", ".")
}
