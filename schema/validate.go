package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// Validate decodes data as JSON and checks it against s. Every violation is
// reported, each one prefixed with its JSON path ($.alerts[2].type).
//
// Enumerations are closed: values outside them are rejected, never coerced.
// Properties unknown to the schema are ignored.
func Validate(s *genai.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("response is not valid JSON: trailing data after the top-level value")
	}
	var errs []error
	walk(s, v, "$", &errs)
	return errors.Join(errs...)
}

// Decode validates text against s and unmarshals it into v.
// Text is only trimmed: markdown fences or prose around the JSON are errors.
func Decode(s *genai.Schema, text string, v any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("empty response")
	}
	if err := Validate(s, []byte(text)); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("cannot decode response: %w", err)
	}
	return nil
}

func walk(s *genai.Schema, v any, path string, errs *[]error) {
	if s == nil {
		return
	}
	fail := func(format string, args ...any) {
		*errs = append(*errs, fmt.Errorf("%s: "+format, append([]any{path}, args...)...))
	}

	if v == nil {
		if s.Nullable != nil && *s.Nullable {
			return
		}
		fail("null is not allowed")
		return
	}

	switch s.Type {
	case genai.TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			fail("expected an object, got %s", kind(v))
			return
		}
		for _, name := range s.Required {
			if _, ok := obj[name]; !ok {
				fail("missing required property %q", name)
			}
		}
		// sorted for stable error messages
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if pv, ok := obj[name]; ok {
				walk(s.Properties[name], pv, path+"."+name, errs)
			}
		}

	case genai.TypeArray:
		arr, ok := v.([]any)
		if !ok {
			fail("expected an array, got %s", kind(v))
			return
		}
		if s.MinItems != nil && int64(len(arr)) < *s.MinItems {
			fail("expected at least %d items, got %d", *s.MinItems, len(arr))
		}
		if s.MaxItems != nil && int64(len(arr)) > *s.MaxItems {
			fail("expected at most %d items, got %d", *s.MaxItems, len(arr))
		}
		for i, item := range arr {
			walk(s.Items, item, fmt.Sprintf("%s[%d]", path, i), errs)
		}

	case genai.TypeString:
		str, ok := v.(string)
		if !ok {
			fail("expected a string, got %s", kind(v))
			return
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			fail("%q is not one of %v", str, s.Enum)
		}

	case genai.TypeNumber, genai.TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			fail("expected a number, got %s", kind(v))
			return
		}
		f, err := n.Float64()
		if err != nil {
			fail("invalid number %s", n)
			return
		}
		if s.Type == genai.TypeInteger {
			if _, err := n.Int64(); err != nil {
				fail("expected an integer, got %s", n)
			}
		}
		if s.Minimum != nil && f < *s.Minimum {
			fail("%s is below the minimum %v", n, *s.Minimum)
		}
		if s.Maximum != nil && f > *s.Maximum {
			fail("%s is above the maximum %v", n, *s.Maximum)
		}

	case genai.TypeBoolean:
		if _, ok := v.(bool); !ok {
			fail("expected a boolean, got %s", kind(v))
		}
	}
}

func kind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
