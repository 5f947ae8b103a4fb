package engine

import (
	"github.com/rcowham/gitrewrite/internal/element"
	"github.com/rcowham/gitrewrite/internal/filetree"
)

// commitOrigRef returns the Ref a later commit's implicit "from" would
// have used to point at c in the original stream: its own original
// mark when it had one, its original id otherwise.
func commitOrigRef(c *element.Commit) element.Ref {
	if c.OldMark != 0 {
		return element.MarkRef(c.OldMark)
	}
	return element.HexRef(c.OrigID)
}

// translateParentsAligned translates each parent through the mark
// table, keeping the result the same length as refs: a parent that
// resolves to "no surviving commit at all" becomes a zero Ref at that
// index rather than being dropped, so the caller can still compare
// index-for-index against the untranslated original parent list.
func (e *Engine) translateParentsAligned(refs []element.Ref) []element.Ref {
	out := make([]element.Ref, len(refs))
	for i, r := range refs {
		if r.IsZero() {
			continue
		}
		if !r.IsMark() {
			out[i] = r
			continue
		}
		if nm := e.marks.Translate(r.Mark); nm != 0 {
			out[i] = element.MarkRef(nm)
		}
	}
	return out
}

// recordOldGraph adds c to the original-history ancestry graph, using
// its own pre-rewrite identity and the pre-rewrite (but
// implicit-parent-filled) parent list.
func (e *Engine) recordOldGraph(c *element.Commit, rawParents []element.Ref) {
	var keys []interface{}
	for _, p := range rawParents {
		if p.IsZero() {
			continue
		}
		k := refKey(p)
		e.oldGraph.RecordExternal(k)
		keys = append(keys, k)
	}
	e.oldGraph.Add(refKey(commitOrigRef(c)), keys)
}

// ProcessCommit runs the commit pipeline of spec.md §4.7: message and
// identity rewriting, branch and path transforms, implicit-parent
// filling, parent trimming, the prunability test, and ancestry-graph
// bookkeeping. The commit is always recorded into the original-history
// graph and the hash/commit-map tables, whether or not it ends up
// being emitted.
func (e *Engine) ProcessCommit(c *element.Commit) (*element.Commit, bool) {
	origID := c.OrigID
	hadChanges := len(c.FileChanges) > 0

	oldMark := c.Mark
	c.OldMark = oldMark
	newMark := e.marks.New()
	if oldMark != 0 {
		e.marks.RecordRename(oldMark, newMark, true)
	}
	c.Mark = newMark

	c.Message = e.TranslateCommitHash(c.Message)
	if e.opts.Callbacks.Message != nil {
		c.Message = e.opts.Callbacks.Message(c.Message)
	}

	c.Committer = e.applyIdentityCallback(c.Committer)
	if c.Author.Name == "" && c.Author.Email == "" && c.Author.Date == "" {
		c.Author = c.Committer
	} else {
		c.Author = e.applyIdentityCallback(c.Author)
	}

	c.Branch = e.applyRefnameCallback(c.Branch)
	c.FileChanges = e.processFileChanges(c.Branch, c.FileChanges)

	rawParents := append([]element.Ref(nil), c.Parents...)
	hadMergeOriginally := len(rawParents) >= 2
	if !c.HasFrom {
		if prevMark, ok := e.latestCommit[c.Branch]; ok {
			rawParents = append([]element.Ref{e.latestOrigCommit[c.Branch]}, rawParents...)
			c.Parents = append([]element.Ref{element.MarkRef(prevMark)}, c.Parents...)
		}
	}

	e.recordOldGraph(c, rawParents)

	aligned := e.translateParentsAligned(c.Parents)
	trimmed := e.trimExtraParents(rawParents, aligned)
	c.Parents = trimmed.Parents

	if hadMergeOriginally && len(trimmed.Parents) < 2 && e.issues != nil {
		e.issues.NoLongerMerge(origID)
	}

	prunable := e.Prunable(prunabilityInput{
		HadFileChanges: hadChanges,
		FinalChanges:   c.FileChanges,
		FinalParents:   trimmed.Parents,
		Collapsed:      trimmed.Collapsed,
		NewFirstParent: trimmed.NewFirstParent,
	})

	if prunable {
		e.pruneCommit(c, origID, newMark, trimmed)
		return c, false
	}

	if trimmed.Collapsed && len(c.FileChanges) > 0 {
		// The commit's own diff was computed against its original first
		// parent, but trimming moved the effective first parent to
		// trimmed.NewFirstParent. A degenerate merge that fast-export
		// gave no changes of its own needs no fix-up (the overwhelming
		// common case); one that did carry an explicit diff would need
		// that diff recomputed against the new baseline, which requires
		// a full tree-diff the importer handle's ls/get-mark surface
		// doesn't provide (see DESIGN.md). Flagged rather than silently
		// emitted with a possibly-stale diff.
		e.log.Warnf("engine: commit %s collapsed to a non-merge with its own file changes; diff not recomputed against new first parent", origID)
	}

	if e.opts.Callbacks.Commit != nil {
		e.opts.Callbacks.Commit(c)
	}

	var parentKeys []interface{}
	for _, p := range trimmed.Parents {
		k := refKey(p)
		e.graph.RecordExternal(k)
		parentKeys = append(parentKeys, k)
	}
	e.graph.Add(newMark, parentKeys)

	e.recordCommit(origID, newMark, false)
	e.latestCommit[c.Branch] = newMark
	e.latestOrigCommit[c.Branch] = commitOrigRef(c)
	delete(e.pendingTipReset, c.Branch)

	c.State = element.Written
	return c, true
}

// pruneCommit handles the bookkeeping for a commit the prunability
// test dropped: it redirects the commit's own mark to whatever
// surviving ancestor remains (or to nothing), so any later reference
// to it — a parent, a hash back-reference, the commit-map — resolves
// straight through it (spec.md §4.7 step 9).
func (e *Engine) pruneCommit(c *element.Commit, origID string, newMark int, trimmed trimResult) {
	var survivor element.Ref
	if len(trimmed.Parents) > 0 {
		survivor = trimmed.Parents[0]
	}

	switch {
	case survivor.IsZero():
		e.marks.RecordRename(newMark, 0, true)
		e.recordCommit(origID, 0, true)
	case survivor.IsMark():
		e.marks.RecordRename(newMark, survivor.Mark, true)
		e.recordCommit(origID, survivor.Mark, false)
		e.latestCommit[c.Branch] = survivor.Mark
	default:
		e.marks.RecordRename(newMark, 0, true)
		e.recordCommitDirect(origID, survivor.Hex)
	}

	c.Skipped = true
	c.State = element.Skipped
	e.skipped[newMark] = true
	e.pendingTipReset[c.Branch] = true
	e.latestOrigCommit[c.Branch] = commitOrigRef(c)
}

// processFileChanges applies the path filter/rename transform, the
// filename callback, blob-skip-to-delete downgrade, collision
// resolution, and branch-tree reconciliation to a commit's file-change
// list (spec.md §4.7).
func (e *Engine) processFileChanges(branch string, changes []element.FileChange) []element.FileChange {
	var out []element.FileChange
	for _, fc := range changes {
		if fc.Op == element.DeleteAll {
			out = append(out, fc)
			continue
		}

		if fc.Op == element.Rename {
			srcPath, keepSrc := e.transformPath(fc.SrcPath)
			if !keepSrc {
				continue
			}
			dstPath, keepDst := e.transformPath(fc.Path)
			if !keepDst {
				continue
			}
			fc.SrcPath, fc.Path = srcPath, dstPath
			out = append(out, fc)
			continue
		}

		path, keep := e.transformPath(fc.Path)
		if !keep {
			continue
		}
		fc.Path = path

		if fc.Op == element.Modify && fc.Blob.IsMark() {
			newBlobMark := e.marks.Translate(fc.Blob.Mark)
			if e.skippedBlobs[newBlobMark] {
				fc.Op = element.Delete
				fc.Blob = element.Ref{}
				fc.Mode = ""
			} else {
				fc.Blob = element.MarkRef(newBlobMark)
			}
		} else if fc.Op == element.Modify && fc.Blob.Hex != "" {
			if newBlobMark, ok := e.blobOrigToMark[fc.Blob.Hex]; ok {
				if e.skippedBlobs[newBlobMark] {
					fc.Op = element.Delete
					fc.Blob = element.Ref{}
					fc.Mode = ""
				} else {
					fc.Blob = element.MarkRef(newBlobMark)
				}
			}
		}

		out = append(out, fc)
	}
	return e.reconcileBranchTree(branch, e.resolveFileChangeCollisions(out))
}

// reconcileBranchTree applies changes to branch's tracked file layout
// in order, dropping a Delete whose path is no longer tracked (a stale
// delete that filtering, blob skipping, or collision resolution
// exposed) instead of passing it through to be rejected downstream.
func (e *Engine) reconcileBranchTree(branch string, changes []element.FileChange) []element.FileChange {
	tree := e.trees[branch]
	if tree == nil {
		tree = filetree.NewNode("", false)
		e.trees[branch] = tree
	}

	var out []element.FileChange
	for _, fc := range changes {
		switch fc.Op {
		case element.DeleteAll:
			tree = filetree.NewNode("", false)
			e.trees[branch] = tree
			out = append(out, fc)
		case element.Delete:
			path := string(fc.Path)
			if !tree.FindFile(path) {
				continue
			}
			tree.DeleteFile(path)
			out = append(out, fc)
		case element.Rename:
			tree.DeleteFile(string(fc.SrcPath))
			tree.AddFile(string(fc.Path))
			out = append(out, fc)
		case element.Modify:
			tree.AddFile(string(fc.Path))
			out = append(out, fc)
		default:
			out = append(out, fc)
		}
	}
	return out
}

// transformPath applies the path filter/rename transform (if any) and
// the filename callback, returning the final path and whether the
// change should be kept at all.
func (e *Engine) transformPath(path []byte) ([]byte, bool) {
	newPath := string(path)
	if e.opts.Transform != nil {
		var keep bool
		newPath, keep = e.opts.Transform.Apply(newPath)
		if !keep {
			return nil, false
		}
	}
	out := e.applyFilenameCallback([]byte(newPath))
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// resolveFileChangeCollisions implements spec.md §4.7's file-change
// collision rules once every change has its final destination path: a
// Delete colliding with anything else is discarded in favor of the
// other change; identical Modify entries collapse to one; anything
// else colliding is a configuration error, surfaced via the logger
// since there is no good per-commit place to return it synchronously.
// The result is sorted by destination path, with deleteall entries (if
// any) kept first in their original order.
func (e *Engine) resolveFileChangeCollisions(changes []element.FileChange) []element.FileChange {
	var deleteAlls []element.FileChange
	byPath := make(map[string][]element.FileChange)
	var order []string
	for _, fc := range changes {
		if fc.Op == element.DeleteAll {
			deleteAlls = append(deleteAlls, fc)
			continue
		}
		key := string(fc.Path)
		if _, ok := byPath[key]; !ok {
			order = append(order, key)
		}
		byPath[key] = append(byPath[key], fc)
	}

	var resolved []element.FileChange
	for _, key := range order {
		group := byPath[key]
		if len(group) == 1 {
			resolved = append(resolved, group[0])
			continue
		}

		var nonDeletes []element.FileChange
		for _, fc := range group {
			if fc.Op != element.Delete {
				nonDeletes = append(nonDeletes, fc)
			}
		}
		if len(nonDeletes) == 0 {
			// every entry was a delete of the same path: keep one.
			resolved = append(resolved, group[0])
			continue
		}
		if len(nonDeletes) == 1 {
			resolved = append(resolved, nonDeletes[0])
			continue
		}
		if allIdenticalModifies(nonDeletes) {
			resolved = append(resolved, nonDeletes[0])
			continue
		}
		e.log.Errorf("engine: conflicting file changes for path %q in one commit", key)
		resolved = append(resolved, nonDeletes[len(nonDeletes)-1])
	}

	sortFileChangesByPath(resolved)
	return append(deleteAlls, resolved...)
}

func allIdenticalModifies(changes []element.FileChange) bool {
	for _, fc := range changes {
		if fc.Op != element.Modify {
			return false
		}
		if fc.Mode != changes[0].Mode || fc.Blob != changes[0].Blob {
			return false
		}
	}
	return true
}

func sortFileChangesByPath(changes []element.FileChange) {
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0 && string(changes[j].Path) < string(changes[j-1].Path); j-- {
			changes[j], changes[j-1] = changes[j-1], changes[j]
		}
	}
}
