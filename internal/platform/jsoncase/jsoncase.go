// Package jsoncase rewrites JSON object keys from the server's snake_case
// naming to the camelCase naming every struct tag in this module uses.
package jsoncase

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ErrInvalidJSON is returned when the input is not a single JSON value.
var ErrInvalidJSON = errors.New("jsoncase: invalid JSON")

// Normalize returns data with every object key, at any depth, converted to
// camelCase. Keys that are already camelCase are left as they are. Values,
// including strings that look like keys, are never touched. Numbers keep
// their original textual form.
func Normalize(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		// scalars have no keys
		if !json.Valid(trimmed) {
			return nil, ErrInvalidJSON
		}
		return data, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrInvalidJSON
	}
	return json.Marshal(rewrite(v))
}

func rewrite(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[Camel(k)] = rewrite(child)
		}
		return out
	case []interface{}:
		for i, child := range val {
			val[i] = rewrite(child)
		}
		return val
	default:
		return v
	}
}

// Camel converts a snake_case (or kebab-case) identifier to camelCase.
// "task_id" becomes "taskId"; "taskId" is returned unchanged.
func Camel(s string) string {
	if !strings.ContainsAny(s, "_-") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	upper := false
	for i, r := range s {
		if r == '_' || r == '-' {
			// leading separators are dropped, interior ones capitalize
			upper = b.Len() > 0
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		if i == 0 {
			b.WriteString(strings.ToLower(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
