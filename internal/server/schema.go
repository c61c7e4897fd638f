package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
)

// productEntrySchema describes the body of a manual product entry or edit.
const productEntrySchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "id":           {"type": "string"},
    "name":         {"type": ["string", "null"], "maxLength": 200},
    "expiry_date":  {"type": ["string", "null"], "pattern": "^(\\d{4}-\\d{2}-\\d{2})?$"},
    "clear_expiry": {"type": "boolean"},
    "manufacturer": {"type": ["string", "null"], "maxLength": 120},
    "batch_number": {"type": ["string", "null"], "maxLength": 120}
  }
}`

const parseTextSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["text"],
  "properties": {
    "text":    {"type": "string"},
    "persist": {"type": "boolean"}
  }
}`

type schemas struct {
	product *jsonschema.Schema
	parse   *jsonschema.Schema
}

func compileSchemas() (*schemas, error) {
	compiler := jsonschema.NewCompiler()
	for name, src := range map[string]string{
		"product.json": productEntrySchema,
		"parse.json":   parseTextSchema,
	} {
		if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	product, err := compiler.Compile("product.json")
	if err != nil {
		return nil, fmt.Errorf("compile product schema: %w", err)
	}
	parse, err := compiler.Compile("parse.json")
	if err != nil {
		return nil, fmt.Errorf("compile parse schema: %w", err)
	}
	return &schemas{product: product, parse: parse}, nil
}

// decodeValid checks body against schema, then decodes it into out.
func decodeValid(schema *jsonschema.Schema, body []byte, out any) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return common.InvalidArgumentErrorf("body is not valid JSON: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return common.InvalidArgumentErrorf("body does not match schema: %v", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return common.InvalidArgumentErrorf("decode body: %v", err)
	}
	return nil
}
