// internal/cache/templates.go
package cache

import "strings"

// templateRule is one deterministic keyword -> answer mapping. Rules are
// checked in order against the normalized question before the entry cache
// and before any oracle call; a hit never touches the oracle.
type templateRule struct {
	keywords []string
	// answer is the canned reply, unless profileKey is set, in which case the
	// operator's profile value wins when present.
	answer     string
	profileKey string
}

var templateRules = []templateRule{
	{keywords: []string{"sponsorship", "require sponsor", "visa"}, answer: "No"},
	{keywords: []string{"authorized to work", "legally eligible", "eligible to work", "right to work"}, answer: "Yes"},
	{keywords: []string{"bachelor", "high school diploma"}, answer: "Yes"},
	{keywords: []string{"18 years", "at least 18", "over 18"}, answer: "Yes"},
	{keywords: []string{"background check", "drug test", "drug screening"}, answer: "Yes"},
	{keywords: []string{"salary", "compensation expectation", "desired pay", "pay expectation"}, answer: "Negotiable", profileKey: "desired_salary"},
	{keywords: []string{"years of experience", "years experience"}, answer: "5", profileKey: "years_experience"},
	{keywords: []string{"notice period"}, answer: "Two weeks", profileKey: "notice_period"},
	{keywords: []string{"start date", "available to start", "when can you start"}, answer: "Immediately", profileKey: "start_date"},
	{keywords: []string{"willing to relocate", "open to relocation"}, answer: "Yes"},
	{keywords: []string{"linkedin"}, answer: "", profileKey: "linkedin_url"},
	{keywords: []string{"phone"}, answer: "", profileKey: "phone"},
	{keywords: []string{"email"}, answer: "", profileKey: "email"},
}

// TemplateAnswer returns the deterministic canned answer for a question, if
// one applies. Profile values override the built-in defaults; a rule whose
// only source is an absent profile value yields no answer.
func TemplateAnswer(question string, profile map[string]string) (string, bool) {
	normalized := Normalize(question)
	for _, rule := range templateRules {
		for _, kw := range rule.keywords {
			if !strings.Contains(normalized, Normalize(kw)) {
				continue
			}
			if rule.profileKey != "" {
				if v, ok := profile[rule.profileKey]; ok && v != "" {
					return v, true
				}
			}
			if rule.answer != "" {
				return rule.answer, true
			}
			// Profile-only rule without data; keep scanning later rules.
			break
		}
	}
	return "", false
}
