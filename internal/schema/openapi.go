package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type openAPIField struct {
	Type        string `json:"type"`
	Format      string `json:"format"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Enum        []any  `json:"enum"`
	Default     any    `json:"default"`
	AllOf       []struct {
		Enum []any `json:"enum"`
	} `json:"allOf"`
}

// FromOpenAPIInput builds a Description from an OpenAPI-style "properties"
// object plus its "required" list. Go maps do not keep key order, and role
// resolution depends on declaration order, so the properties object is walked
// token by token instead of being decoded into a map.
func FromOpenAPIInput(properties json.RawMessage, required []string) (Description, error) {
	requiredSet := map[string]bool{}
	for _, name := range required {
		requiredSet[name] = true
	}

	var ordered []json.RawMessage
	names, err := orderedKeys(properties, &ordered)
	if err != nil {
		return Description{}, fmt.Errorf("schema: parse properties: %w", err)
	}

	desc := Description{Fields: make([]Field, 0, len(names))}
	for i, name := range names {
		var raw openAPIField
		if err := json.Unmarshal(ordered[i], &raw); err != nil {
			return Description{}, fmt.Errorf("schema: parse field %s: %w", name, err)
		}
		enum := raw.Enum
		if enum == nil {
			for _, sub := range raw.AllOf {
				if len(sub.Enum) > 0 {
					enum = sub.Enum
					break
				}
			}
		}
		desc.Fields = append(desc.Fields, Field{
			Name:        name,
			Type:        raw.Type,
			Format:      raw.Format,
			Title:       raw.Title,
			Description: raw.Description,
			Enum:        enum,
			Default:     raw.Default,
			Required:    requiredSet[name],
		})
	}
	return desc, nil
}

// orderedKeys decodes a JSON object's member names in document order and
// appends each member's raw value to values.
func orderedKeys(obj json.RawMessage, values *[]json.RawMessage) ([]string, error) {
	if len(obj) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(obj))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var names []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		names = append(names, name)
		*values = append(*values, value)
	}
	return names, nil
}
