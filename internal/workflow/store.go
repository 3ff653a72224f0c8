// internal/workflow/store.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// storeKey is the document under which the workflow collection persists.
const storeKey = "workflows"

// ErrWorkflowNotFound is returned when an ID is absent from the collection.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Store owns the persisted workflow collection. Updates are last-writer-wins;
// the intended deployment is single-process, single-tab.
type Store struct {
	docs schemas.DocumentStore
	now  func() time.Time
	log  *zap.Logger
}

// NewStore creates a workflow store over the document store.
func NewStore(docs schemas.DocumentStore, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{docs: docs, now: time.Now, log: logger.Named("workflows")}
}

// List returns all saved workflows, most recently recorded first.
func (s *Store) List(ctx context.Context) ([]schemas.SavedWorkflow, error) {
	flows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].RecordedAt.After(flows[j].RecordedAt) })
	return flows, nil
}

// Get returns the workflow with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*schemas.SavedWorkflow, error) {
	flows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range flows {
		if flows[i].ID == id {
			return &flows[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
}

// Save upserts a workflow by ID.
func (s *Store) Save(ctx context.Context, flow schemas.SavedWorkflow) error {
	flows, err := s.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range flows {
		if flows[i].ID == flow.ID {
			flows[i] = flow
			replaced = true
			break
		}
	}
	if !replaced {
		flows = append(flows, flow)
	}
	return s.persist(ctx, flows)
}

// Delete removes a workflow by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	flows, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := flows[:0]
	found := false
	for _, f := range flows {
		if f.ID == id {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return s.persist(ctx, kept)
}

// Duplicate copies a workflow under a fresh ID with reset usage counters.
func (s *Store) Duplicate(ctx context.Context, id, newName string) (*schemas.SavedWorkflow, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := *src
	dup.ID = uuid.NewString()
	dup.Steps = append([]schemas.WorkflowStep(nil), src.Steps...)
	dup.UsageCount = 0
	dup.SuccessRate = 0
	dup.LastUsed = time.Time{}
	dup.RecordedAt = s.now()
	if newName != "" {
		dup.Name = newName
	} else {
		dup.Name = src.Name + " (copy)"
	}

	if err := s.Save(ctx, dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// RecordUse folds one execution outcome into the workflow's usage stats with
// the incremental average: rate' = (rate*(n-1) + outcome) / n after n is
// bumped. The result stays in [0,1] for any outcome sequence.
func (s *Store) RecordUse(ctx context.Context, id string, succeeded bool) error {
	flow, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	outcome := 0.0
	if succeeded {
		outcome = 1.0
	}
	flow.UsageCount++
	flow.SuccessRate = (flow.SuccessRate*float64(flow.UsageCount-1) + outcome) / float64(flow.UsageCount)
	flow.LastUsed = s.now()

	return s.Save(ctx, *flow)
}

// Export renders the collection as a self-describing backup envelope.
func (s *Store) Export(ctx context.Context) (*schemas.ExportEnvelope, error) {
	flows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(flows)
	if err != nil {
		return nil, err
	}

	avg := 0.0
	for _, f := range flows {
		avg += f.SuccessRate
	}
	if len(flows) > 0 {
		avg /= float64(len(flows))
	}
	return &schemas.ExportEnvelope{
		Version:   schemas.ExportVersion,
		Timestamp: s.now(),
		Entries:   raw,
		Stats:     schemas.ExportStats{EntryCount: len(flows), Kind: "workflows", AvgSuccess: avg},
	}, nil
}

// Import merges a backup envelope; imported IDs overwrite existing ones.
func (s *Store) Import(ctx context.Context, envelope *schemas.ExportEnvelope) (int, error) {
	var incoming []schemas.SavedWorkflow
	if err := json.Unmarshal(envelope.Entries, &incoming); err != nil {
		return 0, fmt.Errorf("malformed workflow backup: %w", err)
	}

	flows, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]int, len(flows))
	for i, f := range flows {
		byID[f.ID] = i
	}

	imported := 0
	for _, f := range incoming {
		if f.ID == "" {
			continue
		}
		if i, ok := byID[f.ID]; ok {
			flows[i] = f
		} else {
			byID[f.ID] = len(flows)
			flows = append(flows, f)
		}
		imported++
	}
	if err := s.persist(ctx, flows); err != nil {
		return 0, err
	}
	return imported, nil
}

// load reads the collection; an absent document is an empty collection.
func (s *Store) load(ctx context.Context) ([]schemas.SavedWorkflow, error) {
	raw, err := s.docs.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, schemas.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load workflow collection: %w", err)
	}
	var flows []schemas.SavedWorkflow
	if err := json.Unmarshal(raw, &flows); err != nil {
		return nil, fmt.Errorf("corrupt workflow collection: %w", err)
	}
	return flows, nil
}

func (s *Store) persist(ctx context.Context, flows []schemas.SavedWorkflow) error {
	raw, err := json.Marshal(flows)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow collection: %w", err)
	}
	if err := s.docs.Set(ctx, storeKey, raw); err != nil {
		return fmt.Errorf("failed to persist workflow collection: %w", err)
	}
	return nil
}
