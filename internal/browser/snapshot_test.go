// internal/browser/snapshot_test.go
package browser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

const sampleForm = `<!DOCTYPE html>
<html><body>
<h1>Apply for Senior Widget Engineer</h1>
<form action="/apply">
  <input type="text" id="first-name" name="first_name" placeholder="First name" required>
  <input type="email" name="email" class="field wide">
  <textarea id="essay" aria-required="true">Why do you want to work here?</textarea>
  <select name="country">
    <option value="us">United States</option>
    <option value="ca">Canada</option>
  </select>
  <div>not interactive</div>
  <button type="submit">Submit Application</button>
</form>
<a href="/jobs">Back to listings</a>
</body></html>`

func TestParseSnapshot_ExtractsInteractiveElements(t *testing.T) {
	snap, err := ParseSnapshot("https://jobs.example.com/apply", sampleForm)
	require.NoError(t, err)

	assert.Equal(t, "https://jobs.example.com/apply", snap.URL)

	// form, 2 inputs, textarea, select, button, a, in document order.
	require.Len(t, snap.Elements, 7)

	tags := make([]string, len(snap.Elements))
	for i, el := range snap.Elements {
		tags[i] = el.Tag
		assert.Equal(t, i, el.Index)
	}
	assert.Equal(t, []string{"form", "input", "input", "textarea", "select", "button", "a"}, tags)
}

func TestParseSnapshot_ElementAttributes(t *testing.T) {
	snap, err := ParseSnapshot("https://x", sampleForm)
	require.NoError(t, err)

	first := snap.Elements[1]
	assert.Equal(t, "first-name", first.ID)
	assert.Equal(t, "first_name", first.Name)
	assert.Equal(t, "text", first.Type)
	assert.Equal(t, "First name", first.Placeholder)
	assert.True(t, first.Required)
	assert.False(t, first.Multiline)

	email := snap.Elements[2]
	assert.Equal(t, []string{"field", "wide"}, email.Classes)

	essay := snap.Elements[3]
	assert.True(t, essay.Required, "aria-required counts as required")
	assert.True(t, essay.Multiline)
	assert.Equal(t, "Why do you want to work here?", essay.Text)

	button := snap.Elements[5]
	assert.Equal(t, "Submit Application", button.Text)
}

func TestParseSnapshot_StructuralPath(t *testing.T) {
	snap, err := ParseSnapshot("https://x", sampleForm)
	require.NoError(t, err)

	// Two inputs share a parent, so they carry nth-of-type qualifiers.
	assert.Contains(t, snap.Elements[1].Path, "input:nth-of-type(1)")
	assert.Contains(t, snap.Elements[2].Path, "input:nth-of-type(2)")
	// The lone textarea does not.
	assert.Contains(t, snap.Elements[3].Path, "textarea")
	assert.NotContains(t, snap.Elements[3].Path, "textarea:nth-of-type")
}

func TestParseSnapshot_Contenteditable(t *testing.T) {
	snap, err := ParseSnapshot("https://x", `<html><body><div contenteditable="true" id="rich">Notes</div></body></html>`)
	require.NoError(t, err)

	require.Len(t, snap.Elements, 1)
	assert.Equal(t, "div", snap.Elements[0].Tag)
	assert.True(t, snap.Elements[0].Multiline)
}

func TestParseSnapshot_TextCapped(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	snap, err := ParseSnapshot("https://x", `<html><body><button>`+string(long)+`</button></body></html>`)
	require.NoError(t, err)
	require.Len(t, snap.Elements, 1)
	assert.Len(t, snap.Elements[0].Text, textCapLen)
}

func TestParseSnapshot_Deterministic(t *testing.T) {
	first, err := ParseSnapshot("https://x", sampleForm)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ParseSnapshot("https://x", sampleForm)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("snapshot differs between parses (-want +got):\n%s", diff)
		}
	}
}

func TestParseSnapshot_EmptyDocument(t *testing.T) {
	snap, err := ParseSnapshot("https://x", "")
	require.NoError(t, err)
	assert.Empty(t, snap.Elements)
}

func TestSelectorPriority(t *testing.T) {
	tests := []struct {
		name string
		el   schemas.ElementDescription
		want string
	}{
		{"id wins", schemas.ElementDescription{Tag: "input", ID: "email", Name: "email_field"}, "#email"},
		{"name next", schemas.ElementDescription{Tag: "input", Name: "email_field"}, `input[name="email_field"]`},
		{"path next", schemas.ElementDescription{Tag: "input", Path: "form>input"}, "form>input"},
		{"tag last", schemas.ElementDescription{Tag: "button"}, "button"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.el.Selector())
		})
	}
}
