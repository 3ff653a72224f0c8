// api/schemas/browser.go
package schemas

// ElementDescription is an entry of a live page snapshot: one interactive
// element in document order. It is ephemeral and never persisted; every
// lookup resolves a fresh snapshot.
type ElementDescription struct {
	Index       int      `json:"index"`
	Tag         string   `json:"tag"`
	ID          string   `json:"id,omitempty"`
	Classes     []string `json:"classes,omitempty"`
	Name        string   `json:"name,omitempty"`
	Type        string   `json:"type,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Text        string   `json:"text,omitempty"`
	Value       string   `json:"value,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Multiline   bool     `json:"multiline,omitempty"`
	Path        string   `json:"path,omitempty"`
}

// Selector builds the most specific CSS selector available for the element.
func (e ElementDescription) Selector() string {
	switch {
	case e.ID != "":
		return "#" + e.ID
	case e.Name != "":
		return e.Tag + `[name="` + e.Name + `"]`
	case e.Path != "":
		return e.Path
	default:
		return e.Tag
	}
}

// PageSnapshot is the interactive-element view of a page at one instant.
type PageSnapshot struct {
	URL      string               `json:"url"`
	Elements []ElementDescription `json:"elements"`
}

// DropdownOption is one choice of a select element.
type DropdownOption struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Value string `json:"value"`
}
