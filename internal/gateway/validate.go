package gateway

import (
	"fmt"
)

// validateArguments checks call arguments against a skill's parameter schema
// (JSON-Schema shaped: type/properties/required). The check is local and
// shallow: required fields must be present and declared primitive types must
// match. Anything the schema does not constrain passes through untouched for
// the mesh to interpret.
func validateArguments(schema map[string]interface{}, arguments map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}

	if required, ok := schema["required"].([]interface{}); ok {
		for _, r := range required {
			name, ok := r.(string)
			if !ok {
				continue
			}
			if _, present := arguments[name]; !present {
				return fmt.Errorf("%w: missing required argument %q", ErrValidation, name)
			}
		}
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}
	for name, value := range arguments {
		propSchema, ok := properties[name].(map[string]interface{})
		if !ok {
			continue
		}
		declared, ok := propSchema["type"].(string)
		if !ok {
			continue
		}
		if err := checkType(name, declared, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name, declared string, value interface{}) error {
	if value == nil {
		return nil
	}

	ok := true
	switch declared {
	case "string":
		_, ok = value.(string)
	case "number":
		ok = isJSONNumber(value)
	case "integer":
		switch v := value.(type) {
		case float64:
			ok = v == float64(int64(v))
		case int, int32, int64:
		default:
			ok = false
		}
	case "boolean":
		_, ok = value.(bool)
	case "array":
		_, ok = value.([]interface{})
	case "object":
		_, ok = value.(map[string]interface{})
	}
	if !ok {
		return fmt.Errorf("%w: argument %q must be of type %s, got %T", ErrValidation, name, declared, value)
	}
	return nil
}

func isJSONNumber(value interface{}) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}
