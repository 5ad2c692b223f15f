package toolsurface

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// validateArgs checks raw against schema the same way the pack's
// hand-rolled minimal JSON-schema validator does: decode as an object,
// confirm every required field is present and non-null, and reject any
// field name schema doesn't list under Allowed. This is deliberately not
// a general JSON-schema implementation — CaseTrack's tool roster is
// fixed and small enough that a full schema library buys nothing a
// required/allowed field-name check doesn't already cover.
func validateArgs(schema Schema, raw json.RawMessage) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}

	var missing []string
	for _, name := range schema.Required {
		v, ok := fields[name]
		if !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required argument(s): %s", strings.Join(missing, ", "))
	}

	allowed := make(map[string]bool, len(schema.Allowed))
	for _, name := range schema.Allowed {
		allowed[name] = true
	}
	var unknown []string
	for name := range fields {
		if !allowed[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown argument(s): %s", strings.Join(unknown, ", "))
	}

	return fields, nil
}

// stringArg reads a required or optional string field already validated
// by validateArgs. A missing optional field returns "".
func stringArg(fields map[string]interface{}, name string) string {
	if v, ok := fields[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// intArg reads an optional integer field, tolerating JSON's float64
// decoding of numeric literals.
func intArg(fields map[string]interface{}, name string) int {
	if v, ok := fields[name]; ok {
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return 0
}

// boolArg reads an optional boolean field.
func boolArg(fields map[string]interface{}, name string) bool {
	if v, ok := fields[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// stringSliceArg reads an optional array-of-string field.
func stringSliceArg(fields map[string]interface{}, name string) []string {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
