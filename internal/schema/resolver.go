// Package schema infers which named inputs of a remote model play the roles
// the orchestrator cares about (prompt, image, duration, seed, mode selector).
// Providers rename their inputs freely, so the resolver works from keyword
// heuristics over the declared schema instead of a fixed field-name contract.
package schema

import "strings"

// Field describes one named input declared by a remote schema. All metadata
// is optional; missing values are empty strings or nil.
type Field struct {
	Name        string
	Type        string
	Format      string
	Title       string
	Description string
	Enum        []any
	Default     any
	Required    bool
}

// Description is an abstract input schema: fields in declaration order, each
// carrying its own required flag.
type Description struct {
	Fields []Field
}

// Mapping assigns schema fields to the roles the dispatcher fills in. Empty
// strings mean the role went unmatched; PromptField is always set.
type Mapping struct {
	PromptField   string
	ImageField    string
	DurationField string
	SeedField     string
	// ExtraRequiredDefaults carries required mode-selector fields that were
	// not claimed by another role, mapped to the enum value that selects
	// image-driven generation.
	ExtraRequiredDefaults map[string]any
}

// Resolve derives a best-effort Mapping. It never fails: with no matches the
// prompt role defaults to the literal field name "prompt" and the optional
// roles stay absent.
func Resolve(desc Description) Mapping {
	m := Mapping{
		PromptField:           "prompt",
		ExtraRequiredDefaults: map[string]any{},
	}

	if f, ok := firstMatch(desc, func(f Field) bool {
		return containsKeyword(f, "prompt")
	}); ok {
		m.PromptField = f.Name
	}

	if f, ok := firstMatch(desc, func(f Field) bool {
		return containsKeyword(f, "image") && f.Type == "string"
	}); ok {
		m.ImageField = f.Name
	} else if f, ok := firstMatch(desc, func(f Field) bool {
		return f.Required && f.Format == "uri"
	}); ok {
		m.ImageField = f.Name
	}

	if f, ok := firstMatch(desc, func(f Field) bool {
		return containsKeyword(f, "duration") || containsKeyword(f, "seconds")
	}); ok {
		m.DurationField = f.Name
	} else if f, ok := firstMatch(desc, func(f Field) bool {
		return containsKeyword(f, "video_length") || containsKeyword(f, "length")
	}); ok {
		m.DurationField = f.Name
	}

	if f, ok := firstMatch(desc, func(f Field) bool {
		return strings.EqualFold(f.Name, "seed") || strings.EqualFold(f.Title, "seed")
	}); ok {
		m.SeedField = f.Name
	}

	claimed := map[string]bool{
		m.PromptField:   true,
		m.ImageField:    true,
		m.DurationField: true,
		m.SeedField:     true,
	}
	for _, f := range desc.Fields {
		if !f.Required || claimed[f.Name] {
			continue
		}
		if value, ok := imageModeValue(f.Enum); ok {
			m.ExtraRequiredDefaults[f.Name] = value
		}
	}
	return m
}

func firstMatch(desc Description, pred func(Field) bool) (Field, bool) {
	for _, f := range desc.Fields {
		if pred(f) {
			return f, true
		}
	}
	return Field{}, false
}

// containsKeyword checks name, title and description case-insensitively.
func containsKeyword(f Field, keyword string) bool {
	for _, s := range []string{f.Name, f.Title, f.Description} {
		if strings.Contains(strings.ToLower(s), keyword) {
			return true
		}
	}
	return false
}

// imageModeValue picks, from a mode-selector's allowed values, the one that
// suggests image-to-video input (e.g. "image", "i2v", "img2vid").
func imageModeValue(enum []any) (any, bool) {
	for _, v := range enum {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		if strings.Contains(lower, "image") || strings.Contains(lower, "i2v") || strings.Contains(lower, "img") {
			return v, true
		}
	}
	return nil, false
}
