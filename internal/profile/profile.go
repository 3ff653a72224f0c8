// internal/profile/profile.go
package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// storeKey is the document holding the operator's auto-fill profile.
const storeKey = "profile"

// fingerprintHints maps substrings of a field's identifying attributes to
// profile keys. Checked in order; the first hit wins.
var fingerprintHints = []struct {
	hint string
	key  string
}{
	{"email", "email"},
	{"phone", "phone"},
	{"first", "first_name"},
	{"last", "last_name"},
	{"linkedin", "linkedin_url"},
	{"salary", "desired_salary"},
}

// Provider serves the operator's auto-fill data from the document store.
// The profile is a flat string map; absent documents read as empty, not as
// errors, so callers can treat profile data as best effort.
type Provider struct {
	store schemas.DocumentStore
	log   *zap.Logger
}

var _ schemas.ProfileProvider = (*Provider)(nil)

// New creates a provider.
func New(store schemas.DocumentStore, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{store: store, log: logger.Named("profile")}
}

// AutoFillData loads the profile map. A missing document yields an empty map.
func (p *Provider) AutoFillData(ctx context.Context) (map[string]string, error) {
	raw, err := p.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, schemas.ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("corrupt profile document: %w", err)
	}
	return data, nil
}

// Set upserts one profile value. An empty value deletes the key.
func (p *Provider) Set(ctx context.Context, key, value string) error {
	data, err := p.AutoFillData(ctx)
	if err != nil {
		return err
	}
	if value == "" {
		delete(data, key)
	} else {
		data[key] = value
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, storeKey, raw)
}

// Keys lists the profile's keys in sorted order.
func (p *Provider) Keys(ctx context.Context) ([]string, error) {
	data, err := p.AutoFillData(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// MatchField returns the profile value for a field whose name, id or
// placeholder names a profile-backed hint.
func MatchField(fp schemas.ElementFingerprint, data map[string]string) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	source := strings.ToLower(strings.Join([]string{fp.Name, fp.ID, fp.Placeholder}, " "))
	for _, h := range fingerprintHints {
		if strings.Contains(source, h.hint) {
			if v, ok := data[h.key]; ok && v != "" {
				return v, true
			}
		}
	}
	return "", false
}
