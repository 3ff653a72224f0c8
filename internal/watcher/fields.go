// internal/watcher/fields.go
package watcher

import (
	"strings"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/cache"
)

// categoryKeywords bucket a field by its label. First match in declaration
// order wins; anything unmatched is standard.
var categoryKeywords = []struct {
	category schemas.FieldCategory
	words    []string
}{
	{schemas.CategoryEssay, []string{"why", "describe", "tell us", "tell me", "explain", "cover letter", "motivat"}},
	{schemas.CategorySalary, []string{"salary", "compensation", "pay rate", "expected pay", "rate"}},
	{schemas.CategoryEducation, []string{"education", "degree", "school", "university", "gpa", "graduat"}},
	{schemas.CategoryExperience, []string{"experience", "years", "worked", "skill", "proficien"}},
}

// textInputTypes are the input types that accept free text.
var textInputTypes = map[string]bool{
	"":       true,
	"text":   true,
	"email":  true,
	"tel":    true,
	"url":    true,
	"search": true,
	"number": true,
}

// Categorize buckets a field label. Matching is case-insensitive substring.
func Categorize(label string) schemas.FieldCategory {
	lowered := strings.ToLower(label)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(lowered, w) {
				return ck.category
			}
		}
	}
	return schemas.CategoryStandard
}

// FieldFromElement builds a FormField from a live element. The label falls
// back through visible text, placeholder, name and id; the concept hash keys
// session-level dedup and cache lookups.
func FieldFromElement(el schemas.ElementDescription) schemas.FormField {
	label := firstNonEmpty(el.Text, el.Placeholder, el.Name, el.ID)
	f := schemas.FormField{
		Index:    el.Index,
		Label:    label,
		Category: Categorize(label),
		Hash:     cache.Hash(label),
		Required: el.Required,
		Multiline: el.Multiline ||
			el.Tag == "textarea",
		Fingerprint: schemas.ElementFingerprint{
			Tag:         el.Tag,
			ID:          el.ID,
			Classes:     el.Classes,
			Text:        el.Text,
			Name:        el.Name,
			Type:        el.Type,
			Placeholder: el.Placeholder,
			Path:        el.Path,
		},
	}
	f.IsQuestion = isQuestion(el)
	f.Priority = priorityOf(f)
	return f
}

// isQuestion reports whether the element can take a free-text answer.
func isQuestion(el schemas.ElementDescription) bool {
	switch el.Tag {
	case "textarea":
		return true
	case "input":
		return textInputTypes[el.Type]
	default:
		return el.Multiline
	}
}

// priorityOf ranks a field for answer ordering. Required fields come first,
// then long-form ones.
func priorityOf(f schemas.FormField) int {
	p := 1
	if f.Required {
		p += 2
	}
	if f.Multiline {
		p++
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
