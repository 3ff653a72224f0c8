// internal/cache/concepts.go
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

// Concept categories. Questions clustering to the same sorted tag set share
// one cache entry, so rephrasings of the same underlying question hit.
const (
	TagExperience         = "experience"
	TagWorkAuthorization  = "work_authorization"
	TagVisaSponsorship    = "visa_sponsorship"
	TagEducation          = "education"
	TagCompensation       = "compensation"
	TagAvailability       = "availability"
	TagLocationPreference = "location_preference"
	TagWhyInterested      = "why_interested"
	TagWhyQualified       = "why_qualified"
	TagGeneral            = "general"
)

// conceptKeywords maps each category to the keywords that vote for it. The
// match runs over the normalized question text, so keywords are lowercase.
var conceptKeywords = map[string][]string{
	TagExperience:         {"years of experience", "years experience", "how long have you", "relevant experience"},
	TagWorkAuthorization:  {"authorized to work", "work authorization", "legally eligible", "eligible to work", "right to work"},
	TagVisaSponsorship:    {"sponsorship", "visa", "h1b", "h-1b", "require sponsor"},
	TagEducation:          {"degree", "education", "bachelor", "master", "phd", "university", "diploma", "graduate"},
	TagCompensation:       {"salary", "compensation", "pay expectation", "desired pay", "rate", "wage"},
	TagAvailability:       {"start date", "available to start", "availability", "notice period", "when can you"},
	TagLocationPreference: {"relocate", "relocation", "remote", "on-site", "onsite", "hybrid", "commute", "willing to travel"},
	TagWhyInterested:      {"why do you want", "why are you interested", "why this role", "why this company", "what attracts"},
	TagWhyQualified:       {"why are you a good fit", "why should we hire", "qualified for this", "what makes you"},
}

// Normalize lowercases, strips punctuation, and collapses whitespace so that
// cosmetic differences between question phrasings do not change the tag set.
func Normalize(question string) string {
	var b strings.Builder
	b.Grow(len(question))
	for _, r := range strings.ToLower(question) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ConceptTags extracts the sorted set of concept tags for a question,
// defaulting to the general tag when no category keyword matches.
func ConceptTags(question string) []string {
	normalized := Normalize(question)

	set := make(map[string]struct{})
	for tag, keywords := range conceptKeywords {
		for _, kw := range keywords {
			if strings.Contains(normalized, Normalize(kw)) {
				set[tag] = struct{}{}
				break
			}
		}
	}
	if len(set) == 0 {
		set[TagGeneral] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Hash encodes the sorted concept tag set of a question as the cache key, so
// rephrasings that cluster to the same concepts share one entry. Questions
// that match no category carry only the general tag; those fold in the
// normalized text as well, otherwise every uncategorized question on a page
// would collide into a single entry.
func Hash(question string) string {
	tags := ConceptTags(question)
	key := strings.Join(tags, "|")
	if len(tags) == 1 && tags[0] == TagGeneral {
		key += "|" + Normalize(question)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}
