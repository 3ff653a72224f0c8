// internal/recorder/scripts.go
package recorder

// captureInstallScript installs the event capture hooks once per page. Matched
// events append lightweight records to a page-side buffer; the host drains it
// by polling. Only serializable data crosses the boundary.
const captureInstallScript = `(() => {
	if (window.__fpCapture) { return true; }
	window.__fpCapture = [];

	const excerpt = (s) => (s || '').replace(/\s+/g, ' ').trim().slice(0, 100);

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

	const fingerprint = (el) => ({
		tag: el.tagName ? el.tagName.toLowerCase() : '',
		id: el.id || '',
		classes: el.classList ? Array.from(el.classList) : [],
		text: excerpt(el.innerText || el.textContent),
		name: el.getAttribute ? (el.getAttribute('name') || '') : '',
		type: el.getAttribute ? (el.getAttribute('type') || '') : '',
		placeholder: el.getAttribute ? (el.getAttribute('placeholder') || '') : '',
		path: structuralPath(el)
	});

	const push = (type, el, payload) => {
		window.__fpCapture.push({
			type: type,
			ts: Date.now(),
			payload: payload || '',
			fp: fingerprint(el)
		});
	};

	document.addEventListener('click', (e) => {
		if (e.target) { push('click', e.target, ''); }
	}, true);

	document.addEventListener('change', (e) => {
		const el = e.target;
		if (!el || !el.tagName) { return; }
		const tag = el.tagName.toLowerCase();
		if (tag === 'select') {
			const opt = el.selectedOptions && el.selectedOptions[0];
			push('select', el, opt ? opt.text : el.value);
		} else if (tag === 'input' || tag === 'textarea') {
			push('input', el, el.value || '');
		}
	}, true);

	const specialKeys = new Set(['Tab', 'Enter', 'Escape']);
	document.addEventListener('keydown', (e) => {
		const combo = (e.ctrlKey ? 'Control+' : '') + (e.altKey ? 'Alt+' : '') +
			(e.metaKey ? 'Meta+' : '') + e.key;
		if (specialKeys.has(e.key) || e.ctrlKey || e.altKey || e.metaKey) {
			push('keypress', e.target || document.body, combo);
		}
	}, true);

	return true;
})()`

// captureDrainScript empties the page-side buffer atomically, so each event
// batch is drained at most once.
const captureDrainScript = `(() => {
	const events = window.__fpCapture || [];
	window.__fpCapture = [];
	return events;
})()`
