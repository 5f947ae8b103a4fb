package engine

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/gitrewrite/internal/element"
	"github.com/rcowham/gitrewrite/internal/fastexport"
	"github.com/rcowham/gitrewrite/internal/report"
)

func newTestEngine() *Engine {
	return New(Options{PruneEmpty: PruneAuto, PruneDegenerate: PruneAuto}, nil,
		report.NewCommitMap(io.Discard), report.NewRefMap(io.Discard), report.NewIssues(io.Discard))
}

func sampleCommit(mark int, origID, branch string, hasFrom bool, parents []element.Ref, changes []element.FileChange) *element.Commit {
	return &element.Commit{
		Mark:        mark,
		OrigID:      origID,
		Branch:      branch,
		Committer:   element.Identity{Name: "A", Email: "a@x.com", Date: "1 +0000"},
		Message:     []byte("msg\n"),
		HasFrom:     hasFrom,
		Parents:     parents,
		FileChanges: changes,
	}
}

func TestProcessCommitRootGetsNoParents(t *testing.T) {
	e := newTestEngine()
	c := sampleCommit(1, "aaaa000000000000000000000000000000000a", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef("deadbeef")}})

	out, keep := e.ProcessCommit(c)
	require.True(t, keep)
	assert.Empty(t, out.Parents)
	assert.Equal(t, 1, out.Mark)
}

func TestProcessCommitImplicitParentChain(t *testing.T) {
	e := newTestEngine()
	c1 := sampleCommit(1, "1111111111111111111111111111111111111a", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef("deadbeef")}})
	out1, keep1 := e.ProcessCommit(c1)
	require.True(t, keep1)

	c2 := sampleCommit(2, "2222222222222222222222222222222222222b", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("g"), Mode: "100644", Blob: element.HexRef("beadfeed")}})
	out2, keep2 := e.ProcessCommit(c2)
	require.True(t, keep2)

	require.Len(t, out2.Parents, 1)
	assert.Equal(t, out1.Mark, out2.Parents[0].Mark)
}

func TestProcessCommitPrunesEmptyRoot(t *testing.T) {
	e := newTestEngine()
	c := sampleCommit(1, "3333333333333333333333333333333333333c", "refs/heads/main", false, nil, nil)

	out, keep := e.ProcessCommit(c)
	assert.False(t, keep)
	assert.True(t, out.Skipped)
}

func TestProcessCommitMergeDedupsRedundantAncestor(t *testing.T) {
	// prune_degenerate=always, since this redundant-ancestor relationship
	// already held in the original history (base really was an ancestor
	// of both branches before any rewriting) and auto mode deliberately
	// leaves a degenerate merge alone when rewriting didn't introduce it.
	e := New(Options{PruneEmpty: PruneAuto, PruneDegenerate: PruneAlways}, nil,
		report.NewCommitMap(io.Discard), report.NewRefMap(io.Discard), report.NewIssues(io.Discard))

	base := sampleCommit(1, "4444444444444444444444444444444444444d", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef("deadbeef")}})
	baseOut, _ := e.ProcessCommit(base)

	feature := sampleCommit(2, "5555555555555555555555555555555555555e", "refs/heads/feature", true,
		[]element.Ref{element.MarkRef(baseOut.Mark)},
		[]element.FileChange{{Op: element.Modify, Path: []byte("g"), Mode: "100644", Blob: element.HexRef("beadfeed")}})
	featureOut, _ := e.ProcessCommit(feature)

	// main advances again, independent of feature.
	mainTip := sampleCommit(3, "6666666666666666666666666666666666666f", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("h"), Mode: "100644", Blob: element.HexRef("cafef00d")}})
	mainTipOut, _ := e.ProcessCommit(mainTip)

	// Merge feature into main: parents are [mainTip, feature, base]. base
	// is an ancestor of both other parents, so it should be trimmed.
	merge := sampleCommit(4, "7777777777777777777777777777777777777a", "refs/heads/main", true,
		[]element.Ref{
			element.MarkRef(mainTipOut.Mark),
			element.MarkRef(featureOut.Mark),
			element.MarkRef(baseOut.Mark),
		}, nil)
	mergeOut, keep := e.ProcessCommit(merge)
	require.True(t, keep)

	assert.Len(t, mergeOut.Parents, 2)
	for _, p := range mergeOut.Parents {
		assert.NotEqual(t, baseOut.Mark, p.Mark)
	}
}

func TestProcessTagDropsWhenTargetPruned(t *testing.T) {
	e := newTestEngine()
	c := sampleCommit(1, "8888888888888888888888888888888888888b", "refs/heads/main", false, nil, nil)
	_, keep := e.ProcessCommit(c) // pruned, empty root
	require.False(t, keep)

	tag := &element.Tag{
		Mark:    99,
		Name:    "v1",
		Target:  element.MarkRef(1),
		Message: []byte("release\n"),
	}
	_, keep = e.ProcessTag(tag)
	assert.False(t, keep, "tag pointing at a fully-pruned commit should be dropped")
}

func TestProcessCommitDropsStaleDelete(t *testing.T) {
	e := newTestEngine()

	c1 := sampleCommit(1, "9999999999999999999999999999999999999c", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef("deadbeef")}})
	out1, keep1 := e.ProcessCommit(c1)
	require.True(t, keep1)

	// "f" is a real delete of a tracked file and should survive;
	// "never-existed" never appeared in this branch's rewritten tree
	// (e.g. its Modify was dropped earlier by filtering or collision
	// resolution) and its delete should be suppressed.
	c2 := sampleCommit(2, "aaaa000000000000000000000000000000000d", "refs/heads/main", true,
		[]element.Ref{element.MarkRef(out1.Mark)},
		[]element.FileChange{
			{Op: element.Delete, Path: []byte("f")},
			{Op: element.Delete, Path: []byte("never-existed")},
		})
	out2, keep2 := e.ProcessCommit(c2)
	require.True(t, keep2)

	require.Len(t, out2.FileChanges, 1)
	assert.Equal(t, "f", string(out2.FileChanges[0].Path))
	assert.Equal(t, element.Delete, out2.FileChanges[0].Op)
}

func TestProcessTagSuppressesMarkWhenRequested(t *testing.T) {
	e := New(Options{PruneEmpty: PruneAuto, PruneDegenerate: PruneAuto, SuppressTagMarks: true}, nil,
		report.NewCommitMap(io.Discard), report.NewRefMap(io.Discard), report.NewIssues(io.Discard))

	c := sampleCommit(1, "bbbb000000000000000000000000000000000e", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef("deadbeef")}})
	out, keep := e.ProcessCommit(c)
	require.True(t, keep)

	tag := &element.Tag{
		Mark:    7,
		Name:    "v1",
		Target:  element.MarkRef(out.Mark),
		Message: []byte("release\n"),
	}
	got, keep := e.ProcessTag(tag)
	require.True(t, keep)
	assert.Equal(t, 0, got.Mark, "SuppressTagMarks should clear the tag's allocated mark before emission")
}

// TestProcessFileChangesTranslatesHexReferencedBlob covers spec.md
// §4.6's bidirectional orig-id<->mark blob bookkeeping from the read
// side: a Modify whose blob is named by its original hex id (rather
// than a mark within this stream, e.g. a boundary commit in a partial
// export referencing a blob exported earlier by hex) must still be
// rewritten to reference the blob's new engine mark.
func TestProcessFileChangesTranslatesHexReferencedBlob(t *testing.T) {
	e := newTestEngine()

	b := &element.Blob{Mark: 1, OrigID: "cafebabecafebabecafebabecafebabecafebabe", Data: []byte("hi")}
	_, keep := e.ProcessBlob(b)
	require.True(t, keep)

	c := sampleCommit(2, "1010101010101010101010101010101010101010", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef(b.OrigID)}})
	out, keep := e.ProcessCommit(c)
	require.True(t, keep)

	require.Len(t, out.FileChanges, 1)
	assert.True(t, out.FileChanges[0].Blob.IsMark())
	assert.Equal(t, b.Mark, out.FileChanges[0].Blob.Mark)
}

// TestProcessFileChangesDowngradesHexReferencedSkippedBlob covers the
// other half: a Modify hex-referencing a blob that was skipped
// (max_blob_size/strip_blobs_with_ids) must be downgraded to a Delete
// rather than emitted with a dangling blob reference. The path is
// tracked by an earlier commit, so the Delete is a real one.
func TestProcessFileChangesDowngradesHexReferencedSkippedBlob(t *testing.T) {
	e := newTestEngine()
	e.opts.MaxBlobSize = 1

	c1 := sampleCommit(1, "3030303030303030303030303030303030303030", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef("beadfeed")}})
	_, keep1 := e.ProcessCommit(c1)
	require.True(t, keep1)

	b := &element.Blob{Mark: 2, OrigID: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", Data: []byte("too big")}
	_, keep := e.ProcessBlob(b)
	require.False(t, keep, "blob over max size should be skipped")

	c := sampleCommit(3,"2020202020202020202020202020202020202020", "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef(b.OrigID)}})
	out, keep := e.ProcessCommit(c)
	require.True(t, keep)

	require.Len(t, out.FileChanges, 1)
	assert.Equal(t, element.Delete, out.FileChanges[0].Op)
	assert.True(t, out.FileChanges[0].Blob.IsZero())
}

func TestRunEndToEnd(t *testing.T) {
	input := "blob\n" +
		"mark :1\n" +
		"data 5\n" +
		"hello\n" +
		"reset refs/heads/main\n" +
		"commit refs/heads/main\n" +
		"mark :2\n" +
		"committer A <a@x.com> 1 +0000\n" +
		"data 3\n" +
		"hi\n" +
		"M 100644 :1 file.txt\n"

	e := New(Options{PruneEmpty: PruneAuto, PruneDegenerate: PruneAuto}, nil,
		report.NewCommitMap(io.Discard), report.NewRefMap(io.Discard), report.NewIssues(io.Discard))

	r := fastexport.NewReader(bytes.NewBufferString(input))
	var out bytes.Buffer
	w := fastexport.NewWriter(&out)

	err := Run(r, w, e)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "blob\n")
	assert.Contains(t, out.String(), "commit refs/heads/main\n")
	assert.Contains(t, out.String(), "M 100644 :1 file.txt\n")
}
