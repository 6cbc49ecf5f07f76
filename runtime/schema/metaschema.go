package schema

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// shapeMetaSchema is the bundled meta-schema the analyzer validates an
// incoming document against before walking it: the coarse structural
// contract (object shape; "rules"/"condition"/"table" blocks, where
// present, must themselves be objects; "$params" must be an object) that
// §1 treats as "schema parsing of layout/rule metadata" — an external
// collaborator's job the analyzer here gives a concrete boundary to call,
// rather than the deep semantic meaning of every field.
const shapeMetaSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "properties": { "type": "object" },
    "$params": { "type": "object" },
    "rules": { "type": "object" },
    "condition": { "type": "object" },
    "table": {
      "type": "object",
      "properties": {
        "columns": { "type": "object" },
        "datas": { "type": "array" }
      }
    }
  }
}`

var compiledShapeSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("formeval://shape.json", strings.NewReader(shapeMetaSchema)); err != nil {
		panic(err)
	}
	sch, err := c.Compile("formeval://shape.json")
	if err != nil {
		panic(err)
	}
	return sch
}()

// validateShape checks doc (already decoded to plain Go data via
// value.ToAny) against the bundled structural meta-schema.
func validateShape(doc any) error {
	return compiledShapeSchema.Validate(doc)
}
