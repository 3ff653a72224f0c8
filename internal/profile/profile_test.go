// internal/profile/profile_test.go
package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/store"
)

func TestProvider_MissingDocumentReadsEmpty(t *testing.T) {
	p := New(store.NewMemory(), zaptest.NewLogger(t))

	data, err := p.AutoFillData(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestProvider_SetAndRead(t *testing.T) {
	p := New(store.NewMemory(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "email", "jane@example.com"))
	require.NoError(t, p.Set(ctx, "first_name", "Jane"))

	data, err := p.AutoFillData(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", data["email"])
	assert.Equal(t, "Jane", data["first_name"])

	keys, err := p.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "first_name"}, keys)
}

func TestProvider_EmptyValueDeletesKey(t *testing.T) {
	p := New(store.NewMemory(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "phone", "555-0100"))
	require.NoError(t, p.Set(ctx, "phone", ""))

	data, err := p.AutoFillData(ctx)
	require.NoError(t, err)
	assert.NotContains(t, data, "phone")
}

func TestMatchField(t *testing.T) {
	data := map[string]string{
		"email":      "jane@example.com",
		"phone":      "555-0100",
		"first_name": "Jane",
	}

	tests := []struct {
		name string
		fp   schemas.ElementFingerprint
		want string
		ok   bool
	}{
		{"by name", schemas.ElementFingerprint{Name: "applicant_email"}, "jane@example.com", true},
		{"by id", schemas.ElementFingerprint{ID: "phone-number"}, "555-0100", true},
		{"by placeholder", schemas.ElementFingerprint{Placeholder: "First name"}, "Jane", true},
		{"no hint", schemas.ElementFingerprint{Name: "favorite_color"}, "", false},
		{"hint without data", schemas.ElementFingerprint{Name: "linkedin_profile"}, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MatchField(tc.fp, data)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchField_EmptyProfile(t *testing.T) {
	_, ok := MatchField(schemas.ElementFingerprint{Name: "email"}, nil)
	assert.False(t, ok)
}
