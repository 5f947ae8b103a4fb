// Package engine implements the rewrite engine: per-element transforms,
// the commit pipeline (hash rewriting, mailmap/identity, path
// transform, parent trimming, prunability), and commit-hash
// back-reference rewriting (spec.md §4.6-§4.8). It is the orchestrator
// that the stream codec drives via callbacks (spec.md §2, §9): all
// state that the original tool kept as module-level globals (the id
// allocator, the skipped-commit set, the hash<->mark maps) is a field
// on Engine, passed explicitly, per spec.md §9's design note.
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/rcowham/gitrewrite/internal/ancestry"
	"github.com/rcowham/gitrewrite/internal/element"
	"github.com/rcowham/gitrewrite/internal/fastexport"
	"github.com/rcowham/gitrewrite/internal/filetree"
	"github.com/rcowham/gitrewrite/internal/importer"
	"github.com/rcowham/gitrewrite/internal/mark"
	"github.com/rcowham/gitrewrite/internal/pathtransform"
	"github.com/rcowham/gitrewrite/internal/replacetext"
	"github.com/rcowham/gitrewrite/internal/report"
)

// PruneMode is the three-way policy spec.md §6 names for both
// prune_empty and prune_degenerate.
type PruneMode int

const (
	PruneNever PruneMode = iota
	PruneAuto
	PruneAlways
)

// Callbacks are the user-supplied hooks spec.md §6 lists; any of them
// may be nil, in which case the value is passed through unchanged.
type Callbacks struct {
	Filename func([]byte) []byte
	Message  func([]byte) []byte
	Identity func(element.Identity) element.Identity
	Refname  func(string) string
	Blob     func(*element.Blob)
	Commit   func(*element.Commit)
	Tag      func(*element.Tag)
	Reset    func(*element.Reset)
	Done     func()
}

// TagRename is the OLD:NEW prefix rewrite applied to tag refnames
// under refs/tags/ (spec.md §6).
type TagRename struct {
	Old, New string
}

// Options is the session configuration the engine needs (spec.md §6);
// CLI/YAML parsing into this shape lives in internal/config.
type Options struct {
	Transform              *pathtransform.Transform
	InvertPaths            bool
	ReplaceText            *replacetext.Table
	MaxBlobSize            int64
	StripBlobsWithIDs      map[string]bool
	TagRename              *TagRename
	Mailmap                func(element.Identity) element.Identity
	PreserveCommitHashes   bool
	PreserveCommitEncoding bool
	PruneEmpty             PruneMode
	PruneDegenerate        PruneMode
	Partial                bool

	// SuppressTagMarks drops the "mark :N" line the tag serializer would
	// otherwise emit for annotated tags, for an exporter/importer pair
	// that doesn't negotiate marked-tag support. It is a per-run
	// boolean derived from capability detection and passed in
	// explicitly (see gitutil.SupportsMarkedTags), never a shared flag read
	// from another package.
	SuppressTagMarks bool
	Callbacks              Callbacks
	Importer               *importer.Handle
	Logger                 *logrus.Logger
}

// Engine owns every piece of state one run needs: the mark table, the
// two ancestry graphs (rewritten and original; auto-mode parent
// trimming consults the original one), the pending-rename queue, and
// the persisted-state writers.
type Engine struct {
	opts Options
	log  *logrus.Logger

	marks   *mark.Table
	graph   *ancestry.Graph // rewritten-history graph, keyed by engine mark
	oldGraph *ancestry.Graph // original-history graph, keyed by old_mark/orig_parents

	writer *fastexport.Writer

	// Blob bookkeeping: bidirectional orig-id <-> engine-mark, needed so
	// M lines can be rewritten from hex ids to mark references.
	blobOrigToMark map[string]int
	blobMarkToOrig map[int]string

	// commitOrigToMark backs the exact-match step of commit-hash
	// back-reference rewriting (spec.md §4.8 step 1).
	commitOrigToMark map[string]int

	// Per-branch implicit-parent tracking (spec.md §4.7).
	latestCommit     map[string]int
	latestOrigCommit map[string]element.Ref

	// Commit-hash back-reference rewriting state (spec.md §4.8).
	shortOldHashes map[string][]string       // 7-prefix -> orig ids
	hashNew        map[string]string         // orig id -> resolved new hex, once known
	pendingRenames []pendingRename           // ordered; orig id -> engine mark awaiting resolution
	pendingWatermark int

	// §4.7 step 9/10 bookkeeping.
	commitRename map[string]string // orig commit hex -> resolved hex or report.ZeroHex
	skipped      map[int]bool      // engine mark -> skipped

	// skippedBlobs records which engine blob marks were dropped (size/id
	// strip), so a Modify referencing one can be downgraded to a Delete
	// in the owning commit's file-change list.
	skippedBlobs map[int]bool

	// trees tracks each branch's current rewritten file layout, so a
	// Delete that no longer corresponds to a tracked path (because
	// filtering, blob skipping, or collision resolution removed it
	// first) can be caught and dropped instead of handed to an importer
	// that would reject it.
	trees map[string]*filetree.Node

	// pendingTipReset tracks branches whose most recent emitted state is
	// stale because their tip commit(s) were pruned; Finish flushes a
	// synthetic reset for each so the ref still lands on the surviving
	// commit (spec.md §4.7 "reset emission for a pruned tip").
	pendingTipReset map[string]bool

	commitMap *report.CommitMap
	refMap    *report.RefMap
	issues    *report.Issues
}

type pendingRename struct {
	OrigID string
	Mark   int
}

// New builds an Engine ready to process one run's worth of elements.
func New(opts Options, w *fastexport.Writer, commitMap *report.CommitMap, refMap *report.RefMap, issues *report.Issues) *Engine {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		opts:             opts,
		log:              log,
		marks:            mark.NewTable(),
		graph:            ancestry.NewGraph(),
		oldGraph:         ancestry.NewGraph(),
		writer:           w,
		blobOrigToMark:   make(map[string]int),
		blobMarkToOrig:   make(map[int]string),
		commitOrigToMark: make(map[string]int),
		latestCommit:     make(map[string]int),
		latestOrigCommit: make(map[string]element.Ref),
		shortOldHashes:   make(map[string][]string),
		hashNew:          make(map[string]string),
		commitRename:     make(map[string]string),
		skipped:          make(map[int]bool),
		skippedBlobs:     make(map[int]bool),
		trees:            make(map[string]*filetree.Node),
		pendingTipReset:  make(map[string]bool),
		commitMap:        commitMap,
		refMap:           refMap,
		issues:           issues,
		pendingWatermark: 40, // matches the pending-rename backlog limit the upstream tool uses
	}
}

// Graph returns the rewritten-history ancestry graph accumulated so
// far, for tools that render it (cmd/gitrewrite-graph) rather than
// query it during a run.
func (e *Engine) Graph() *ancestry.Graph { return e.graph }

// OldGraph returns the original-history ancestry graph accumulated so
// far (spec.md §9).
func (e *Engine) OldGraph() *ancestry.Graph { return e.oldGraph }

// applyFilenameCallback runs the user filename callback, if any.
func (e *Engine) applyFilenameCallback(path []byte) []byte {
	if e.opts.Callbacks.Filename != nil {
		return e.opts.Callbacks.Filename(path)
	}
	return path
}

func (e *Engine) applyIdentityCallback(id element.Identity) element.Identity {
	if e.opts.Mailmap != nil {
		id = e.opts.Mailmap(id)
	}
	if e.opts.Callbacks.Identity != nil {
		id = e.opts.Callbacks.Identity(id)
	}
	return id
}

func (e *Engine) applyRefnameCallback(ref string) string {
	if e.opts.Callbacks.Refname != nil {
		return e.opts.Callbacks.Refname(ref)
	}
	return ref
}

// ProcessReset applies tag rename and refname callback to a reset's
// ref, and tracks per-branch "latest commit" memory (spec.md §4.6,
// §4.7).
func (e *Engine) ProcessReset(r *element.Reset) (*element.Reset, bool) {
	r.Ref = e.renameRef(r.Ref)
	r.Ref = e.applyRefnameCallback(r.Ref)

	if r.From.IsZero() {
		// A reset with no "from" clears the engine's per-branch memory
		// and is not emitted (spec.md §4.6).
		delete(e.latestCommit, r.Ref)
		delete(e.latestOrigCommit, r.Ref)
		return nil, false
	}
	r.From = e.translateRef(r.From)
	if e.opts.Callbacks.Reset != nil {
		e.opts.Callbacks.Reset(r)
	}
	return r, true
}

// renameRef applies the tag_rename prefix rewrite under refs/tags/.
func (e *Engine) renameRef(ref string) string {
	tr := e.opts.TagRename
	if tr == nil {
		return ref
	}
	const prefix = "refs/tags/"
	if len(ref) <= len(prefix) || ref[:len(prefix)] != prefix {
		return ref
	}
	name := ref[len(prefix):]
	if len(name) < len(tr.Old) || name[:len(tr.Old)] != tr.Old {
		return ref
	}
	return prefix + tr.New + name[len(tr.Old):]
}

// translateRef resolves a parent/target Ref through the mark table
// when it names a mark, leaving hex refs untouched.
func (e *Engine) translateRef(r element.Ref) element.Ref {
	if r.IsZero() || !r.IsMark() {
		return r
	}
	return element.MarkRef(e.marks.Translate(r.Mark))
}

// Finish flushes any remaining pending-rename queue entries, emits a
// synthetic reset for every branch left pointing stale by a pruned tip
// commit, and runs the user done callback (spec.md §6).
func (e *Engine) Finish() {
	e.flushPendingRenames(0)
	e.flushTipResets()
	if e.opts.Callbacks.Done != nil {
		e.opts.Callbacks.Done()
	}
}

// flushTipResets writes the trailing reset commands queued by pruned
// branch tips.
func (e *Engine) flushTipResets() {
	if e.writer == nil || len(e.pendingTipReset) == 0 {
		return
	}
	for branch := range e.pendingTipReset {
		mark, ok := e.latestCommit[branch]
		r := &element.Reset{Ref: branch}
		if ok && mark != 0 {
			r.From = element.MarkRef(mark)
		}
		if err := e.writer.WriteReset(r); err != nil {
			e.log.Warnf("engine: failed to write trailing reset for %s: %v", branch, err)
		}
	}
	e.pendingTipReset = make(map[string]bool)
}
