package engine

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/gitrewrite/internal/element"
	"github.com/rcowham/gitrewrite/internal/report"
)

// TestTranslateCommitHashResolvesDeletedCommit exercises step 1's
// exact-match path: a commit pruned with no surviving
// ancestor resolves straight to report.ZeroHex via recordCommit,
// without needing an importer round trip.
func TestTranslateCommitHashResolvesDeletedCommit(t *testing.T) {
	e := newTestEngine()
	origID := "ccc000000000000000000000000000000000000c"
	c := sampleCommit(1, origID, "refs/heads/main", false, nil, nil)
	_, keep := e.ProcessCommit(c) // pruned: empty root, no file changes
	require.False(t, keep)

	msg := []byte("see commit " + origID + " for details\n")
	got := e.TranslateCommitHash(msg)
	assert.Contains(t, string(got), report.ZeroHex)
	assert.NotContains(t, string(got), origID)
}

// TestTranslateCommitHashShortPrefixResolvesDeletedCommit exercises
// the 7-prefix unambiguous-match half of step 2, also against a
// pruned commit so resolution doesn't depend on an importer.
func TestTranslateCommitHashShortPrefixResolvesDeletedCommit(t *testing.T) {
	e := newTestEngine()
	origID := "ddd111111111111111111111111111111111111d"
	c := sampleCommit(1, origID, "refs/heads/main", false, nil, nil)
	_, keep := e.ProcessCommit(c)
	require.False(t, keep)

	shortHash := origID[:7]
	msg := []byte("fixes " + shortHash + "\n")
	got := e.TranslateCommitHash(msg)
	assert.Contains(t, string(got), report.ZeroHex[:7])
}

// TestTranslateCommitHashUnresolvedIsFlagged covers two unresolved
// shapes: a hex token that never matched any recorded commit at all,
// and a known origID still waiting on the importer to report its
// final hash (no importer is wired in this harness, so it never
// resolves). Both must be left untouched in the message and recorded
// via Issues.ReferencedButRemoved, matching
// _translate_commit_hash's unconditional add-to-referenced-but-removed
// behavior on every unresolved token.
func TestTranslateCommitHashUnresolvedIsFlagged(t *testing.T) {
	var issuesBuf bytes.Buffer
	e := New(Options{PruneEmpty: PruneAuto, PruneDegenerate: PruneAuto}, nil,
		report.NewCommitMap(io.Discard), report.NewRefMap(io.Discard), report.NewIssues(&issuesBuf))

	survivingOrigID := "eee222222222222222222222222222222222222e"
	c := sampleCommit(1, survivingOrigID, "refs/heads/main", false, nil,
		[]element.FileChange{{Op: element.Modify, Path: []byte("f"), Mode: "100644", Blob: element.HexRef("deadbeef")}})
	_, keep := e.ProcessCommit(c)
	require.True(t, keep)

	neverSeen := "abcdef0123456789abcdef0123456789abcdef01"

	msg := []byte("touches " + survivingOrigID + " and " + neverSeen + "\n")
	got := e.TranslateCommitHash(msg)

	assert.Contains(t, string(got), survivingOrigID, "unresolved known commit left untouched")
	assert.Contains(t, string(got), neverSeen, "never-recorded hex token left untouched")

	e.issues.Flush()
	out := issuesBuf.String()
	assert.Contains(t, out, survivingOrigID[:7])
	assert.Contains(t, out, neverSeen[:7])
}

// TestTranslateCommitHashPreserveCommitHashesSkipsRewrite covers the
// preserve_commit_hashes escape hatch: no lookup, no flagging.
func TestTranslateCommitHashPreserveCommitHashesSkipsRewrite(t *testing.T) {
	e := New(Options{PruneEmpty: PruneAuto, PruneDegenerate: PruneAuto, PreserveCommitHashes: true}, nil,
		report.NewCommitMap(io.Discard), report.NewRefMap(io.Discard), report.NewIssues(io.Discard))

	origID := "fff333333333333333333333333333333333333f"
	c := sampleCommit(1, origID, "refs/heads/main", false, nil, nil)
	e.ProcessCommit(c)

	msg := []byte("references " + origID + "\n")
	got := e.TranslateCommitHash(msg)
	assert.Equal(t, string(msg), string(got))
}
