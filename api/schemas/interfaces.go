// api/schemas/interfaces.go
package schemas

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by DocumentStore implementations when a key has no
// document. Callers on the answer path treat it (and any other read failure)
// as a cache miss, never as fatal.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the persistent key-value collaborator. Documents are
// opaque JSON; no transactions are assumed.
type DocumentStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, doc json.RawMessage) error
}

// PageController is the page-control collaborator the core depends on but
// does not own. Implementations drive a real browser tab; tests substitute
// an in-memory fake. All calls are suspension points.
type PageController interface {
	// GetState resolves a fresh snapshot of the page's interactive elements.
	GetState(ctx context.Context) (*PageSnapshot, error)
	// Evaluate runs a script in page context and returns its serialized result.
	// The boundary is message passing only; no closures cross it.
	Evaluate(ctx context.Context, script string, out any) error
	InputText(ctx context.Context, el ElementDescription, text string) error
	ClickElement(ctx context.Context, el ElementDescription) error
	SelectOption(ctx context.Context, el ElementDescription, text string) error
	DropdownOptions(ctx context.Context, el ElementDescription) ([]DropdownOption, error)
	SendKeys(ctx context.Context, keys string) error
	NavigateTo(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	WaitForLoad(ctx context.Context, timeout time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// ProfileProvider exposes the operator's auto-fill data as a flat map of
// semantic field name to value.
type ProfileProvider interface {
	AutoFillData(ctx context.Context) (map[string]string, error)
}

// OracleClient is the external natural-language reasoning collaborator. It is
// consulted only when deterministic templates and the answer cache are
// insufficient, and only under rate-limiter permission.
type OracleClient interface {
	// AnswerBatch answers req.Questions in order; the returned slice always
	// has len(req.Questions) entries.
	AnswerBatch(ctx context.Context, req OracleRequest) ([]string, error)
	Close() error
}
