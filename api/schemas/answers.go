// api/schemas/answers.go
package schemas

import "time"

// FieldCategory buckets a detected form field for answer resolution. Standard
// fields are always answered from deterministic templates; the remaining
// categories may consult the answer cache and, as a last resort, the oracle.
type FieldCategory string

const (
	CategoryExperience FieldCategory = "experience"
	CategoryEducation  FieldCategory = "education"
	CategorySalary     FieldCategory = "salary"
	CategoryEssay      FieldCategory = "essay"
	CategoryStandard   FieldCategory = "standard"
)

// FormField is a lightweight description of a form control discovered on a
// live page, either during a fast-fill pass or by the change watcher.
type FormField struct {
	Index       int                `json:"index"`
	Label       string             `json:"label"`
	Fingerprint ElementFingerprint `json:"fingerprint"`
	Category    FieldCategory      `json:"category"`
	IsQuestion  bool               `json:"is_question"`
	Hash        string             `json:"hash"` // Concept hash, used for session-level dedup.
	Priority    int                `json:"priority"`
	Required    bool               `json:"required"`
	Multiline   bool               `json:"multiline"`
}

// AnswerContext carries the page-level substitution values injected into
// cached answers and oracle prompts. All values are sanitized free text.
type AnswerContext struct {
	Company  string `json:"company,omitempty"`
	Job      string `json:"job,omitempty"`
	Industry string `json:"industry,omitempty"`
	Position string `json:"position,omitempty"`
}

// CachedAnswer is one entry of the concept-keyed question cache.
type CachedAnswer struct {
	ConceptHash string        `json:"concept_hash"`
	Question    string        `json:"question"` // Truncated to 200 chars for audit.
	Answer      string        `json:"answer"`
	Confidence  float64       `json:"confidence"`
	CreatedAt   time.Time     `json:"created_at"`
	LastUsed    time.Time     `json:"last_used"`
	UseCount    int           `json:"use_count"`
	Context     AnswerContext `json:"context"`
}

// OracleRequest is one batched call to the external reasoning service. The
// questions share a category so a single prompt can cover all of them;
// answers come back by position.
type OracleRequest struct {
	Category  FieldCategory `json:"category"`
	Questions []string      `json:"questions"`
	Context   AnswerContext `json:"context"`
}
