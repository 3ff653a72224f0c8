// internal/watcher/scripts.go
package watcher

import (
	"fmt"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// observerInstallScript installs a MutationObserver that records form
// controls revealed after page load into a page-side buffer, whether they
// were inserted or un-hidden in place (hidden/disabled/style/class flips on
// an existing node). The host drains the buffer by polling; an unread buffer
// keeps accumulating, so a skipped drain defers work instead of losing it.
// Attribute flips can re-record a control; the host dedups by concept hash.
const observerInstallScript = `(() => {
	if (window.__fpObserver) { return true; }
	window.__fpFields = [];

	const excerpt = (s) => (s || '').replace(/\s+/g, ' ').trim().slice(0, 200);

	const labelFor = (el) => {
		if (el.labels && el.labels.length > 0) { return excerpt(el.labels[0].innerText); }
		if (el.getAttribute('aria-label')) { return excerpt(el.getAttribute('aria-label')); }
		const wrapper = el.closest('label, .form-group, .field, [role="group"]');
		if (wrapper) { return excerpt(wrapper.innerText); }
		return '';
	};

	const structuralPath = (el) => {
		const parts = [];
		let node = el;
		while (node && node.nodeType === 1 && parts.length < 6) {
			let part = node.tagName.toLowerCase();
			if (node.parentElement) {
				const siblings = Array.from(node.parentElement.children)
					.filter(c => c.tagName === node.tagName);
				if (siblings.length > 1) {
					part += ':nth-of-type(' + (siblings.indexOf(node) + 1) + ')';
				}
			}
			parts.unshift(part);
			node = node.parentElement;
		}
		return parts.join('>');
	};

	const record = (el) => {
		window.__fpFields.push({
			tag: el.tagName.toLowerCase(),
			id: el.id || '',
			classes: el.classList ? Array.from(el.classList) : [],
			name: el.getAttribute('name') || '',
			type: el.getAttribute('type') || '',
			placeholder: el.getAttribute('placeholder') || '',
			text: labelFor(el) || excerpt(el.innerText || ''),
			required: el.required === true || el.getAttribute('aria-required') === 'true',
			multiline: el.tagName.toLowerCase() === 'textarea',
			path: structuralPath(el)
		});
	};

	const scan = (root) => {
		if (!root.querySelectorAll) { return; }
		root.querySelectorAll('input, textarea, select').forEach(record);
		if (root.matches && root.matches('input, textarea, select')) { record(root); }
	};

	window.__fpObserver = new MutationObserver((mutations) => {
		for (const m of mutations) {
			if (m.type === 'attributes') { scan(m.target); continue; }
			for (const node of m.addedNodes) { scan(node); }
		}
	});
	window.__fpObserver.observe(document.body, {
		childList: true,
		subtree: true,
		attributes: true,
		attributeFilter: ['hidden', 'disabled', 'style', 'class']
	});
	return true;
})()`

// observerDrainScript empties the field buffer atomically.
const observerDrainScript = `(() => {
	const fields = window.__fpFields || [];
	window.__fpFields = [];
	return fields;
})()`

// syntheticEventScript dispatches input and change events on the selector so
// framework-bound forms notice a programmatic fill.
func syntheticEventScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) { return false; }
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, selector)
}

// elementFor rebuilds an addressable element description from a field's
// fingerprint. Watcher fields were observed moments ago, so the structural
// identifiers are still fresh.
func elementFor(f schemas.FormField) schemas.ElementDescription {
	return schemas.ElementDescription{
		Tag:         f.Fingerprint.Tag,
		ID:          f.Fingerprint.ID,
		Classes:     f.Fingerprint.Classes,
		Name:        f.Fingerprint.Name,
		Type:        f.Fingerprint.Type,
		Placeholder: f.Fingerprint.Placeholder,
		Text:        f.Fingerprint.Text,
		Path:        f.Fingerprint.Path,
		Required:    f.Required,
		Multiline:   f.Multiline,
	}
}
