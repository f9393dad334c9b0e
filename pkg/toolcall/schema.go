package toolcall

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/argonaut-dev/argonaut/pkg/api"
	"github.com/argonaut-dev/argonaut/pkg/debug"
)

// ParseSchemas validates the parameter schemas of the declared tools and
// returns them keyed by function name. A tool with no parameters gets an
// empty object schema. Broken schemas are a caller error.
func ParseSchemas(tools []api.Tool) (map[string]*openapi3.Schema, error) {
	schemas := make(map[string]*openapi3.Schema, len(tools))
	for i, tool := range tools {
		schema := openapi3.NewObjectSchema()
		if len(tool.Function.Parameters) > 0 {
			schema = &openapi3.Schema{}
			if err := schema.UnmarshalJSON(tool.Function.Parameters); err != nil {
				return nil, api.NewInvalidRequestError(
					fmt.Sprintf("tools[%d].function.parameters", i),
					fmt.Sprintf("invalid JSON Schema: %v", err))
			}
			if schema.Type != "" && schema.Type != "object" {
				return nil, api.NewInvalidRequestError(
					fmt.Sprintf("tools[%d].function.parameters", i),
					fmt.Sprintf("parameters must describe an object, got type %q", schema.Type))
			}
		}
		schemas[tool.Function.Name] = schema
	}
	return schemas, nil
}

// CheckArguments soft-validates decoded call arguments against the declared
// schema. Models drift from schemas often enough that a mismatch is logged,
// never surfaced: the caller sees the call either way and decides what to
// do with bad arguments.
func CheckArguments(schemas map[string]*openapi3.Schema, calls []api.ToolCall) {
	for _, call := range calls {
		schema, ok := schemas[call.Function.Name]
		if !ok {
			debug.Log("toolcall", "call %s targets undeclared function %q", call.ID, call.Function.Name)
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &value); err != nil {
			debug.Log("toolcall", "call %s arguments are not valid JSON: %v", call.ID, err)
			continue
		}
		if err := schema.VisitJSON(value); err != nil {
			debug.Log("toolcall", "call %s arguments do not match the %q schema: %v",
				call.ID, call.Function.Name, err)
		}
	}
}
