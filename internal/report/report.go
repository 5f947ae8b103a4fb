// Package report writes the run's persisted-state artifacts (spec.md
// §6): commit-map, ref-map, suboptimal-issues, and the already_ran
// marker. Adapted from journal.Journal's idiom of a small struct
// wrapping an io.Writer and exposing Write* methods that emit
// structured text records, one record format per artifact here
// instead of one Perforce journal format.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ZeroHex is the 40-zero-hex placeholder used for a commit-map entry
// whose commit was pruned with no surviving ancestor.
const ZeroHex = "0000000000000000000000000000000000000000"

// CommitMap writes the commit-map artifact: one "<orig> <new>" line
// per rewritten commit, preceded by a header row.
type CommitMap struct {
	w         io.Writer
	wroteHead bool
}

func NewCommitMap(w io.Writer) *CommitMap { return &CommitMap{w: w} }

func (c *CommitMap) header() {
	if !c.wroteHead {
		fmt.Fprintln(c.w, "old", "new")
		c.wroteHead = true
	}
}

// Record appends one orig->new mapping. newHex is ZeroHex when the
// commit was pruned with no surviving ancestor.
func (c *CommitMap) Record(origHex, newHex string) {
	c.header()
	fmt.Fprintf(c.w, "%s %s\n", origHex, newHex)
}

// RefMap writes the ref-map artifact: one "<old> <new> <refname>" line
// per rewritten ref.
type RefMap struct{ w io.Writer }

func NewRefMap(w io.Writer) *RefMap { return &RefMap{w: w} }

func (r *RefMap) Record(oldHex, newHex, refname string) {
	fmt.Fprintf(r.w, "%s %s %s\n", oldHex, newHex, refname)
}

// Issues writes the human-readable suboptimal-issues report: commits
// that stopped being merges, and hash references that could no longer
// be resolved.
type Issues struct {
	w                io.Writer
	noLongerMerges   []string
	referencedRemoved []string
}

func NewIssues(w io.Writer) *Issues { return &Issues{w: w} }

// NoLongerMerge records a commit that had >=2 original parents but
// fewer than 2 after rewriting (spec.md §4.7 step 10).
func (i *Issues) NoLongerMerge(origHex string) {
	i.noLongerMerges = append(i.noLongerMerges, origHex)
}

// ReferencedButRemoved records a short hash left untranslated because
// its target commit no longer resolves (spec.md §4.8 step 3).
func (i *Issues) ReferencedButRemoved(shortHash string) {
	i.referencedRemoved = append(i.referencedRemoved, shortHash)
}

// Flush writes the accumulated report sections.
func (i *Issues) Flush() error {
	if len(i.noLongerMerges) > 0 {
		fmt.Fprintln(i.w, "Commits that are no longer merge commits:")
		for _, h := range i.noLongerMerges {
			fmt.Fprintf(i.w, "  %s\n", h)
		}
	}
	if len(i.referencedRemoved) > 0 {
		fmt.Fprintln(i.w, "Hashes referenced in messages that no longer resolve:")
		for _, h := range i.referencedRemoved {
			fmt.Fprintf(i.w, "  %s\n", h)
		}
	}
	return nil
}

// AlreadyRan checks for and, on Mark, creates the already_ran marker
// file under gitDir/filter-repo/, enabling a second run to refuse
// unless force is requested.
type AlreadyRan struct {
	path string
}

func NewAlreadyRan(gitDir string) *AlreadyRan {
	return &AlreadyRan{path: filepath.Join(gitDir, "filter-repo", "already_ran")}
}

// Exists reports whether a previous run already marked this repository.
func (a *AlreadyRan) Exists() bool {
	_, err := os.Stat(a.path)
	return err == nil
}

// Mark creates the marker file (and its parent directory) after a
// successful run.
func (a *AlreadyRan) Mark() error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return err
	}
	f, err := os.Create(a.path)
	if err != nil {
		return err
	}
	return f.Close()
}
