// Package document turns assistant replies into proposal document content.
//
// # Overview
//
// The model embeds document updates in its replies inside an instruction
// block:
//
//	Great idea! [UPDATE EDITOR]# General
//	**Goal:** detect fraud[/UPDATE EDITOR] Let's discuss technical details next.
//
// The block is meant for the editor, not the chat transcript. Three pure
// steps split and render it:
//
//   - Extract: returns the cleaned message and the raw fragment
//   - Format: renders the fragment's lightweight markup as HTML
//   - Append: adds the formatted fragment to the running document
//
// Process chains all three.
//
// # Grammar
//
// Only the first [UPDATE EDITOR]...[/UPDATE EDITOR] pair is used as the
// fragment, but every pair is removed from the message. A start marker
// without an end marker is not a block; the reply passes through unchanged.
// Empty code fences left behind by block removal are dropped.
//
// # Formatting
//
// Format applies these passes in order:
//
//  1. "# ", "## ", "### " line prefixes become h1, h2, h3
//  2. **text** becomes strong
//  3. *text* becomes em
//  4. "- " line prefixes become li
//  5. newlines become <br/>
//
// Anything else is left as written.
//
// # Accumulation
//
// Fragments are joined with Divider. There is no dedup: applying the same
// reply twice yields two copies. Drafts keeps one document per session for
// server-side callers.
package document
