package toolrouter

import (
	"encoding/json"
	"fmt"
)

// validateArguments checks a tools/call arguments payload against a tool's
// declared input_schema before it ever reaches Tool.Call, per the
// lookup-validate-deserialize-invoke pipeline: required properties and
// per-property JSON types. schema is the raw map[string]any a
// ToolDefinition carries on the wire (there is no Go struct to decorate with
// validator/v10 tags at this layer — the schema is the only declaration of
// shape the router has), so this walks the JSON Schema subset tool
// definitions in this module actually use (object/properties/required/type)
// by hand rather than through a struct-tag validator.
func validateArguments(schema map[string]any, arguments json.RawMessage) error {
	if schema == nil {
		return nil
	}

	var decoded any
	if len(arguments) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(arguments, &decoded); err != nil {
		return fmt.Errorf("%w: arguments: invalid JSON: %v", ErrInvalidArguments, err)
	}

	return validateValue("arguments", schema, decoded)
}

func validateValue(path string, schema map[string]any, value any) error {
	if declared, ok := schema["type"].(string); ok {
		if err := checkType(path, declared, value); err != nil {
			return err
		}
	}

	if enum, ok := schema["enum"]; ok {
		if err := checkEnum(path, enum, value); err != nil {
			return err
		}
	}

	object, isObject := value.(map[string]any)
	if !isObject {
		return nil
	}

	for _, name := range requiredNames(schema["required"]) {
		if _, present := object[name]; !present {
			return fmt.Errorf("%w: %s: missing required property %q", ErrInvalidArguments, path, name)
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, propValue := range object {
		propSchema, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		if err := validateValue(fmt.Sprintf("%s.%s", path, name), propSchema, propValue); err != nil {
			return err
		}
	}

	return nil
}

func requiredNames(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return names
	default:
		return nil
	}
}

func checkType(path, declared string, value any) error {
	var ok bool
	switch declared {
	case "object":
		_, ok = value.(map[string]any)
	case "array":
		_, ok = value.([]any)
	case "string":
		_, ok = value.(string)
	case "boolean":
		_, ok = value.(bool)
	case "number":
		_, ok = value.(float64)
	case "integer":
		n, isNumber := value.(float64)
		ok = isNumber && n == float64(int64(n))
	default:
		return nil // unrecognized schema type keyword, nothing to enforce
	}
	if !ok {
		return fmt.Errorf("%w: %s: expected type %q, got %T", ErrInvalidArguments, path, declared, value)
	}
	return nil
}

func checkEnum(path string, enum any, value any) error {
	values, ok := enum.([]string)
	if !ok {
		if anyValues, isAny := enum.([]any); isAny {
			for _, v := range anyValues {
				if v == value {
					return nil
				}
			}
			return fmt.Errorf("%w: %s: %v is not one of %v", ErrInvalidArguments, path, value, anyValues)
		}
		return nil
	}
	for _, v := range values {
		if v == value {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %v is not one of %v", ErrInvalidArguments, path, value, values)
}
