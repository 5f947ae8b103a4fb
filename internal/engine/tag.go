package engine

import (
	"strings"

	"github.com/rcowham/gitrewrite/internal/element"
)

// ProcessTag applies the tag pipeline: hash rewriting and the user
// message callback, mailmap/identity on the tagger (if any), tag-name
// renaming and the refname callback, and target translation. A tag
// whose target was pruned to nothing entirely is dropped (spec.md
// §4.6).
func (e *Engine) ProcessTag(t *element.Tag) (*element.Tag, bool) {
	oldMark := t.Mark
	if oldMark != 0 {
		newMark := e.marks.New()
		e.marks.RecordRename(oldMark, newMark, true)
		if e.opts.SuppressTagMarks {
			t.Mark = 0
		} else {
			t.Mark = newMark
		}
	}

	t.Message = e.TranslateCommitHash(t.Message)
	if e.opts.Callbacks.Message != nil {
		t.Message = e.opts.Callbacks.Message(t.Message)
	}

	if t.Tagger != nil {
		id := e.applyIdentityCallback(*t.Tagger)
		t.Tagger = &id
	}

	t.Name = e.renameTagName(t.Name)
	fullRef := e.applyRefnameCallback("refs/tags/" + t.Name)
	t.Name = strings.TrimPrefix(fullRef, "refs/tags/")

	t.Target = e.translateRef(t.Target)
	if t.Target.IsZero() {
		t.Skipped = true
		t.State = element.Skipped
		return t, false
	}

	if e.opts.Callbacks.Tag != nil {
		e.opts.Callbacks.Tag(t)
	}
	t.State = element.Written
	return t, true
}

// renameTagName applies tag_rename's OLD:NEW prefix rewrite directly
// to a bare tag name (as opposed to a full refs/tags/ refname).
func (e *Engine) renameTagName(name string) string {
	tr := e.opts.TagRename
	if tr == nil {
		return name
	}
	if len(name) < len(tr.Old) || name[:len(tr.Old)] != tr.Old {
		return name
	}
	return tr.New + name[len(tr.Old):]
}
