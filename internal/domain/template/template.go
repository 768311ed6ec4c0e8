package template

import (
	"strconv"
	"strings"
)

// DefaultCategory is assigned when a source document carries no category.
const DefaultCategory = "Other"

// Template is one automation-workflow record. The body is an arbitrary JSON
// tree; only a handful of top-level fields are meaningful to the pipeline,
// everything else is opaque and flows through untouched.
type Template map[string]any

// ID returns the source-provided identifier, stringified if numeric.
func (t Template) ID() string {
	switch v := t["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// Name returns the human-readable template name. Required at ingestion.
func (t Template) Name() string { return str(t["name"]) }

// Slug returns the assigned slug, empty if not yet assigned.
func (t Template) Slug() string { return str(t["slug"]) }

// SetSlug assigns the slug field.
func (t Template) SetSlug(s string) { t["slug"] = s }

// Description returns the optional description.
func (t Template) Description() string { return str(t["description"]) }

// Category returns the category, defaulting to DefaultCategory.
func (t Template) Category() string {
	if c := strings.TrimSpace(str(t["category"])); c != "" {
		return c
	}
	return DefaultCategory
}

// Price returns the non-negative price, defaulting to 0.
func (t Template) Price() float64 {
	p := num(t["price"])
	if p < 0 {
		return 0
	}
	return p
}

// Usage returns the popularity counter, defaulting to 0.
func (t Template) Usage() int {
	u := int(num(t["usage"]))
	if u < 0 {
		return 0
	}
	return u
}

// Tags returns the display tags: usedApps when present, otherwise tags.
func (t Template) Tags() []string {
	if apps := strSlice(t["usedApps"]); len(apps) > 0 {
		return apps
	}
	return strSlice(t["tags"])
}

// Clone deep-copies the template via structural recursion over the JSON union.
func (t Template) Clone() Template {
	if t == nil {
		return nil
	}
	c, _ := cloneValue(map[string]any(t)).(map[string]any)
	return Template(c)
}

// Merge overlays every field the overlay provides onto existing: the overlay
// wins on conflict, fields absent from the overlay are preserved. Neither
// input is mutated.
func Merge(existing, overlay Template) Template {
	merged := existing.Clone()
	if merged == nil {
		merged = Template{}
	}
	for k, v := range overlay {
		merged[k] = cloneValue(v)
	}
	return merged
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		c := make(map[string]any, len(val))
		for k, e := range val {
			c[k] = cloneValue(e)
		}
		return c
	case []any:
		c := make([]any, len(val))
		for i, e := range val {
			c[i] = cloneValue(e)
		}
		return c
	default:
		return v
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func strSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
