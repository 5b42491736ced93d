// Package jsonutil decodes JSON objects embedded in free-form model output.
package jsonutil

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoObject is returned when no well-formed JSON object can be found.
var ErrNoObject = errors.New("no JSON object found in response")

// ExtractObject returns the first well-formed JSON object inside raw.
// Models often wrap JSON in prose or markdown fences, so every '{' is tried
// as a starting point until one decodes cleanly.
func ExtractObject(raw string) (json.RawMessage, error) {
	for i := strings.IndexByte(raw, '{'); i >= 0; {
		var obj json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&obj); err == nil {
			return obj, nil
		}
		next := strings.IndexByte(raw[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, ErrNoObject
}

// DecodeObject extracts the first JSON object from raw and unmarshals it into v.
func DecodeObject(raw string, v any) error {
	obj, err := ExtractObject(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(obj, v)
}
