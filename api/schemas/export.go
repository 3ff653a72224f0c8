// api/schemas/export.go
package schemas

import (
	"encoding/json"
	"time"
)

// ExportVersion identifies the current backup document layout.
const ExportVersion = "1.0"

// ExportStats summarizes the entries of a backup document.
type ExportStats struct {
	EntryCount int     `json:"entry_count"`
	Kind       string  `json:"kind"` // "workflows" or "answers".
	AvgSuccess float64 `json:"avg_success,omitempty"`
}

// ExportEnvelope is the self-describing backup format shared by workflow and
// answer-cache exports. Entries holds the raw serialized collection so the
// envelope itself stays schema-stable across entry layout changes.
type ExportEnvelope struct {
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Entries   json.RawMessage `json:"entries"`
	Stats     ExportStats     `json:"stats"`
}
