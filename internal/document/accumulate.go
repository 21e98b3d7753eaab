// ABOUTME: Append-only accumulation of formatted fragments into the proposal document
// ABOUTME: Also provides Process, the full reply-to-document pipeline

package document

// Divider separates successive fragments in the accumulated document.
const Divider = `<hr class="section-divider"/>`

// Append returns the document with fragment added. The first fragment is
// stored as-is; later ones are preceded by Divider. Repeated fragments are
// appended again.
func Append(current, fragment string) string {
	if current == "" {
		return fragment
	}
	return current + Divider + fragment
}

// Reset returns the empty document.
func Reset() string {
	return ""
}

// Process runs a raw reply through Extract, Format and Append. When the reply
// carries no fragment the document is returned unchanged.
func Process(current, raw string) (Extraction, string) {
	ext := Extract(raw)
	if !ext.HasFragment() {
		return ext, current
	}
	return ext, Append(current, Format(ext.Fragment))
}
