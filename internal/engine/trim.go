package engine

import "github.com/rcowham/gitrewrite/internal/element"

// trimResult is the output of trimExtraParents: the parent list to
// emit, and, when a merge collapsed to a single effective parent, the
// surviving parent to use as the tree-comparison baseline in the
// prunability test and the diff recompute of spec.md §4.7 step 8.
type trimResult struct {
	Parents         []element.Ref
	NewFirstParent  element.Ref
	Collapsed       bool // true once a >=2-parent commit reduced to one
	OrigParentCount int
}

// trimExtraParents implements spec.md §4.7 step 6. alignedOrig and
// alignedTranslated are parallel, equal-length slices: alignedOrig is
// the untranslated parent list exactly as the input stream gave it
// (used to tell a naturally-duplicated parent apart from one that only
// collapsed because of rewriting); alignedTranslated is the same
// parents run through mark translation, with a zero Ref standing in
// wherever a parent resolved to "no surviving commit" at all. Dropping
// those zero entries happens unconditionally, before prune_degenerate
// is consulted, since a commit can never literally reference a parent
// that no longer exists.
func (e *Engine) trimExtraParents(alignedOrig, alignedTranslated []element.Ref) trimResult {
	var orig, translated []element.Ref
	for i, t := range alignedTranslated {
		if t.IsZero() {
			continue
		}
		translated = append(translated, t)
		orig = append(orig, alignedOrig[i])
	}
	res := trimResult{OrigParentCount: len(alignedOrig)}

	if e.opts.PruneDegenerate == PruneNever {
		res.Parents = translated
		return res
	}
	if len(translated) < 2 {
		res.Parents = translated
		return res
	}

	parents := append([]element.Ref(nil), translated...)

	if e.opts.PruneDegenerate == PruneAuto {
		parents = dedupRewrittenDuplicates(orig, parents)
	}

	removed := make([]bool, len(parents))
	for i := range parents {
		for j := range parents {
			if i == j || removed[i] {
				continue
			}
			if !e.graph.IsAncestor(refKey(parents[i]), refKey(parents[j])) {
				continue
			}
			if e.opts.PruneDegenerate == PruneAlways {
				removed[i] = true
				continue
			}
			// auto: only drop it if this ancestor relationship is new,
			// i.e. did not already hold in the original history.
			oi, oj := origParentAt(orig, i), origParentAt(orig, j)
			if !e.oldGraph.IsAncestor(refKey(oi), refKey(oj)) {
				removed[i] = true
			}
		}
	}

	var final []element.Ref
	for i, p := range parents {
		if !removed[i] {
			final = append(final, p)
		}
	}

	if len(final) == 1 && len(translated) >= 2 {
		res.Collapsed = true
		res.NewFirstParent = final[0]
	}
	res.Parents = final
	return res
}

// dedupRewrittenDuplicates removes a duplicate parent only when the
// corresponding original parents at those positions were distinct
// (i.e. the duplication was introduced by rewriting, not present in
// the original history).
func dedupRewrittenDuplicates(orig, parents []element.Ref) []element.Ref {
	seen := make(map[element.Ref]int) // value -> first index
	keep := make([]bool, len(parents))
	for i, p := range parents {
		if first, ok := seen[p]; ok {
			oi, oj := origParentAt(orig, first), origParentAt(orig, i)
			if oi != oj {
				// rewritten duplicate: drop this later occurrence.
				continue
			}
		} else {
			seen[p] = i
		}
		keep[i] = true
	}
	var out []element.Ref
	for i, p := range parents {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func origParentAt(orig []element.Ref, i int) element.Ref {
	if i < len(orig) {
		return orig[i]
	}
	return element.Ref{}
}

// refKey turns a Ref into the comparable key the ancestry graphs are
// keyed on: mark refs key on their int mark, hex refs key on their
// string id.
func refKey(r element.Ref) interface{} {
	if r.IsMark() {
		return r.Mark
	}
	return r.Hex
}

// prunabilityInput bundles everything the prunability test of spec.md
// §4.7 step 7 needs.
type prunabilityInput struct {
	HadFileChanges bool
	FinalChanges   []element.FileChange
	FinalParents   []element.Ref
	Collapsed      bool // trimExtraParents reduced a merge to one parent
	NewFirstParent element.Ref
}

// Prunable decides whether a commit should be skipped entirely,
// per spec.md §4.7 step 7.
func (e *Engine) Prunable(in prunabilityInput) bool {
	if e.opts.PruneEmpty == PruneNever {
		return false
	}

	isMerge := len(in.FinalParents) >= 2 && !in.Collapsed
	if isMerge {
		return false
	}

	if !in.HadFileChanges {
		switch e.opts.PruneEmpty {
		case PruneAlways:
			return len(in.FinalChanges) == 0
		case PruneAuto:
			return len(in.FinalChanges) == 0 && len(in.FinalParents) == 0
		}
		return false
	}

	// Commit originally had file changes.
	if len(in.FinalChanges) == 0 {
		return true
	}

	if e.opts.Importer == nil {
		return false
	}
	return e.treeEquivalent(in)
}

// treeEquivalent runs the synchronous tree-equivalence check against
// the importer: every remaining change must already be reflected in
// the new first parent's tree.
func (e *Engine) treeEquivalent(in prunabilityInput) bool {
	baseline := in.FinalParents[0]
	if in.Collapsed {
		baseline = in.NewFirstParent
	}
	if !baseline.IsMark() {
		return false // can't query an external commit's tree synchronously
	}

	for _, fc := range in.FinalChanges {
		res, err := e.opts.Importer.Ls(baseline.Mark, fc.Path)
		if err != nil {
			return false
		}
		switch fc.Op {
		case element.Delete, element.DeleteAll:
			if !res.Missing {
				return false
			}
		case element.Modify:
			if res.Missing {
				return false
			}
			if res.Mode != fc.Mode {
				return false
			}
			if fc.Blob.IsMark() {
				hex, err := e.opts.Importer.GetMark(fc.Blob.Mark)
				if err != nil || hex != res.Hex {
					return false
				}
			} else if fc.Blob.Hex != res.Hex {
				return false
			}
		default:
			return false
		}
	}
	return true
}
