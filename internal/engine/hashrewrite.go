package engine

import (
	"regexp"
	"strings"

	"github.com/rcowham/gitrewrite/internal/report"
)

// hashTokenRE matches the 7-to-40-hex-character tokens that may be
// commit hash back-references inside a commit or tag message (spec.md
// §4.8).
var hashTokenRE = regexp.MustCompile(`\b[0-9a-f]{7,40}\b`)

// recordCommit indexes a just-processed commit's original id by both
// its full value and its 7-character prefix, so later messages
// referencing it can be resolved (spec.md §4.8), and schedules its
// commit-map entry. resolvedMark is this commit's own new mark when it
// was emitted, or its surviving ancestor's mark when it was pruned; a
// pruned commit with no surviving ancestor at all passes deleted=true
// and resolves to report.ZeroHex immediately rather than waiting on
// the importer.
func (e *Engine) recordCommit(origID string, resolvedMark int, deleted bool) {
	if origID == "" {
		return
	}
	e.commitOrigToMark[origID] = resolvedMark
	if len(origID) >= 7 {
		prefix := origID[:7]
		e.shortOldHashes[prefix] = append(e.shortOldHashes[prefix], origID)
	}
	if deleted {
		e.hashNew[origID] = report.ZeroHex
		if e.commitMap != nil {
			e.commitMap.Record(origID, report.ZeroHex)
		}
		return
	}
	e.enqueuePendingRename(origID, resolvedMark)
}

// recordCommitDirect is recordCommit's counterpart for the rare case
// where a pruned commit's surviving parent is itself an external
// (already-known, non-mark) hex id: there is no mark to wait on, so
// the resolution is known immediately.
func (e *Engine) recordCommitDirect(origID, hex string) {
	if origID == "" {
		return
	}
	e.commitOrigToMark[origID] = 0
	if len(origID) >= 7 {
		prefix := origID[:7]
		e.shortOldHashes[prefix] = append(e.shortOldHashes[prefix], origID)
	}
	e.hashNew[origID] = hex
	if e.commitMap != nil {
		e.commitMap.Record(origID, hex)
	}
}

// enqueuePendingRename queues (origID -> engineMark) for lazy
// resolution once the importer has written that commit and can report
// its final hash, and drains the queue if it has grown past the
// backlog watermark (spec.md §4.8, §5).
func (e *Engine) enqueuePendingRename(origID string, engineMark int) {
	if origID == "" {
		return
	}
	e.pendingRenames = append(e.pendingRenames, pendingRename{OrigID: origID, Mark: engineMark})
	if len(e.pendingRenames) > e.pendingWatermark {
		e.flushPendingRenames(e.pendingWatermark)
	}
}

// flushPendingRenames resolves pending renames, oldest first, down to
// keepAtMost remaining entries.
func (e *Engine) flushPendingRenames(keepAtMost int) {
	if e.opts.Importer == nil {
		return
	}
	for len(e.pendingRenames) > keepAtMost {
		pr := e.pendingRenames[0]
		e.pendingRenames = e.pendingRenames[1:]
		hex, err := e.opts.Importer.GetMark(pr.Mark)
		if err != nil {
			e.log.Warnf("hashrewrite: get-mark failed for %s: %v", pr.OrigID, err)
			continue
		}
		e.hashNew[pr.OrigID] = hex
		if e.commitMap != nil {
			e.commitMap.Record(pr.OrigID, hex)
		}
	}
}

// resolveHash returns the new hash for origID, forcing a queue flush if
// it is still pending.
func (e *Engine) resolveHash(origID string) (string, bool) {
	if hex, ok := e.hashNew[origID]; ok {
		return hex, true
	}
	for i, pr := range e.pendingRenames {
		if pr.OrigID == origID {
			e.flushPendingRenames(len(e.pendingRenames) - i - 1)
			hex, ok := e.hashNew[origID]
			return hex, ok
		}
	}
	return "", false
}

// TranslateCommitHash rewrites every hash-shaped token in message per
// spec.md §4.8's three-step lookup. Any token matching the hash-token
// shape that step 1 or 2 doesn't resolve is left untouched and
// recorded in the suboptimal-issues report as "referenced but
// removed" — whether or not its prefix was ever known at all, matching
// `_translate_commit_hash`'s own unconditional
// `_commits_referenced_but_removed.add(old_hash)` on every unresolved
// token — unless hash rewriting has been disabled via
// preserve_commit_hashes.
func (e *Engine) TranslateCommitHash(message []byte) []byte {
	if e.opts.PreserveCommitHashes {
		return message
	}
	return hashTokenRE.ReplaceAllFunc(message, func(tok []byte) []byte {
		token := string(tok)
		resolved, ok := e.lookupHashToken(token)
		if !ok {
			if e.issues != nil {
				e.issues.ReferencedButRemoved(token)
			}
			return tok
		}
		if len(resolved) > len(token) {
			resolved = resolved[:len(token)]
		}
		return []byte(resolved)
	})
}

// lookupHashToken implements the three-step lookup, returning the
// resolved hash and whether it resolved at all. A token whose prefix
// was never recorded, one that matches more than one candidate, and
// one that is a known origID still awaiting resolution are all
// reported as unresolved identically, since none of them yields a
// usable replacement.
func (e *Engine) lookupHashToken(token string) (resolved string, ok bool) {
	// Step 1: exact full-length match.
	if len(token) == 40 {
		if _, known := e.commitOrigToMark[token]; known {
			hex, hok := e.resolveHash(token)
			return hex, hok && hex != ""
		}
	}
	// Step 2: unambiguous 7-prefix match.
	if len(token) < 7 {
		return "", false
	}
	prefix := token[:7]
	candidates, known := e.shortOldHashes[prefix]
	if !known {
		return "", false
	}
	var match string
	for _, c := range candidates {
		if strings.HasPrefix(c, token) {
			if match != "" && match != c {
				return "", false // ambiguous, more than one candidate shares this prefix
			}
			match = c
		}
	}
	if match == "" {
		return "", false
	}
	hex, hok := e.resolveHash(match)
	return hex, hok && hex != ""
}
