package params

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var paramKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseSpecs parses "key=value" specs into typed integration parameters.
// Values are coerced into the scalar set the template language understands:
// bool literals, numbers, everything else stays a string.
func ParseSpecs(specs []string) (map[string]any, error) {
	params := make(map[string]any, len(specs))

	for _, spec := range specs {
		if spec == "" {
			return nil, fmt.Errorf("parameter spec cannot be empty")
		}

		key, value, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("parameter spec %q must be key=value", spec)
		}
		if !isValidKey(key) {
			return nil, fmt.Errorf("invalid parameter key %q", key)
		}

		params[key] = coerce(value)
	}

	return params, nil
}

// MergeMaps merges parameter maps, override wins on key collisions.
func MergeMaps(base map[string]any, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}

	return merged
}

func coerce(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}

	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}

	return value
}

func isValidKey(k string) bool {
	return paramKeyRegexp.MatchString(k)
}
