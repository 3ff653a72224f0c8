// internal/browser/snapshot.go
package browser

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// interactiveTags are the element tags that make it into a page snapshot.
var interactiveTags = map[string]bool{
	"input":    true,
	"textarea": true,
	"select":   true,
	"button":   true,
	"a":        true,
	"form":     true,
}

// textCapLen caps the visible-text excerpt per element.
const textCapLen = 100

// multilineInputTag marks tags whose value spans lines.
func isMultiline(tag string) bool { return tag == "textarea" }

// ParseSnapshot extracts the interactive elements of a rendered document in
// document order. Pure function over the serialized DOM; the browser session
// feeds it outerHTML, tests feed it literals.
func ParseSnapshot(pageURL, rawHTML string) (*schemas.PageSnapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	snap := &schemas.PageSnapshot{URL: pageURL}
	walk(doc, snap)
	return snap, nil
}

func walk(n *html.Node, snap *schemas.PageSnapshot) {
	if n.Type == html.ElementNode && isInteractive(n) {
		snap.Elements = append(snap.Elements, describe(n, len(snap.Elements)))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, snap)
	}
}

func isInteractive(n *html.Node) bool {
	if interactiveTags[n.Data] {
		return true
	}
	return attr(n, "contenteditable") == "true"
}

func describe(n *html.Node, index int) schemas.ElementDescription {
	tag := n.Data
	el := schemas.ElementDescription{
		Index:       index,
		Tag:         tag,
		ID:          attr(n, "id"),
		Name:        attr(n, "name"),
		Type:        attr(n, "type"),
		Placeholder: attr(n, "placeholder"),
		Value:       attr(n, "value"),
		Text:        excerpt(visibleText(n)),
		Required:    hasAttr(n, "required") || attr(n, "aria-required") == "true",
		Multiline:   isMultiline(tag) || attr(n, "contenteditable") == "true",
		Path:        structuralPath(n),
	}
	if classes := strings.Fields(attr(n, "class")); len(classes) > 0 {
		el.Classes = classes
	}
	return el
}

// visibleText concatenates the text nodes under n.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteByte(' ')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

// structuralPath renders an nth-of-type CSS path, capped at six levels, the
// same shape the capture scripts emit so fingerprints and snapshots agree.
func structuralPath(n *html.Node) string {
	var parts []string
	for node := n; node != nil && node.Type == html.ElementNode && len(parts) < 6; node = node.Parent {
		part := node.Data
		if pos, siblings := nthOfType(node); siblings > 1 {
			part += ":nth-of-type(" + strconv.Itoa(pos) + ")"
		}
		parts = append([]string{part}, parts...)
	}
	return strings.Join(parts, ">")
}

// nthOfType reports the node's 1-based position among same-tag siblings and
// the sibling count.
func nthOfType(n *html.Node) (pos, count int) {
	if n.Parent == nil {
		return 1, 1
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != n.Data {
			continue
		}
		count++
		if c == n {
			pos = count
		}
	}
	return pos, count
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > textCapLen {
		s = s[:textCapLen]
	}
	return s
}
