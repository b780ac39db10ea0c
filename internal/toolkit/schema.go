package toolkit

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	schemav5 "github.com/santhosh-tekuri/jsonschema/v5"
)

// reflector produces tool-argument JSON schemas from Go structs the same
// way internal/config.JSONSchema reflects the Config struct, tagging
// fields from their `json` tag instead of `yaml`.
var reflector = &jsonschema.Reflector{
	FieldNameTag: "json",
}

// mustSchema reflects v (a pointer to a zero-value params struct) into a
// JSON schema. Panics on a reflection failure, which can only happen for a
// struct shape this package controls, so it would indicate a programming
// error caught immediately at package init.
func mustSchema(v any) json.RawMessage {
	schema := reflector.Reflect(v)
	raw, err := json.Marshal(schema)
	if err != nil {
		panic("toolkit: schema marshal: " + err.Error())
	}
	return raw
}

// compiledSchemaCache memoizes compiled validators by their source JSON
// schema text, mirroring pluginsdk.compileSchema's sync.Map cache — a tool
// descriptor's schema is reflected once at registration and then validated
// against on every call, so recompiling per call would be wasted work.
var compiledSchemaCache sync.Map

func compileSchema(schema json.RawMessage) (*schemav5.Schema, error) {
	key := string(schema)
	if cached, ok := compiledSchemaCache.Load(key); ok {
		if compiled, ok := cached.(*schemav5.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := schemav5.CompileString("tool-args.schema.json", key)
	if err != nil {
		return nil, err
	}
	compiledSchemaCache.Store(key, compiled)
	return compiled, nil
}

// validateArguments checks raw arguments against a tool's JSON-schema
// before the handler runs, per SPEC_FULL.md §4.6 ("Arguments are validated
// against the tool's JSON-schema before the handler runs").
func validateArguments(schema json.RawMessage, args json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return fmt.Errorf("compiling tool schema: %w", err)
	}

	var decoded any
	if len(args) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(args, &decoded); err != nil {
		return fmt.Errorf("decoding tool arguments: %w", err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
