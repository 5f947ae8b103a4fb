package engine

import "github.com/rcowham/gitrewrite/internal/element"

// ProcessBlob applies the blob pipeline (spec.md §4.6 "Blob"): size
// strip, strip-by-id, the replacement table, and the user blob
// callback. Returns the (possibly mutated) blob and whether it should
// be emitted. A new engine mark is always allocated and the orig-id
// <-> mark mapping recorded before the skip decision, so that later
// M-line references to this blob's original id can be rewritten to the
// mark even when the blob itself is skipped.
func (e *Engine) ProcessBlob(b *element.Blob) (*element.Blob, bool) {
	oldMark := b.Mark
	newMark := e.marks.New()
	if oldMark != 0 {
		e.marks.RecordRename(oldMark, newMark, true)
	}
	b.Mark = newMark

	if b.OrigID != "" {
		e.blobOrigToMark[b.OrigID] = newMark
		e.blobMarkToOrig[newMark] = b.OrigID
	}

	if e.opts.MaxBlobSize > 0 && int64(len(b.Data)) > e.opts.MaxBlobSize {
		b.Skipped = true
	}
	if e.opts.StripBlobsWithIDs != nil && e.opts.StripBlobsWithIDs[b.OrigID] {
		b.Skipped = true
	}
	if !b.Skipped && e.opts.ReplaceText != nil {
		b.Data = e.opts.ReplaceText.Apply(b.Data)
	}
	if e.opts.Callbacks.Blob != nil {
		e.opts.Callbacks.Blob(b)
	}

	if b.Skipped {
		b.State = element.Skipped
		e.skippedBlobs[newMark] = true
		return b, false
	}
	b.State = element.Written
	return b, true
}
