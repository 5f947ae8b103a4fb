// Package importer implements the synchronous request/response handle
// the rewrite engine uses to ask a downstream fast-import process to
// resolve marks and look up tree entries (spec.md §4.5).
package importer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rcowham/gitrewrite/internal/fastexport"
)

// LsResult is the parsed response to an `ls` directive.
type LsResult struct {
	Missing bool
	Mode    string
	Kind    string // "blob" or "tree"
	Hex     string
	Path    string
}

// Handle wraps the write side (directives, shared with the bulk
// element emitter) and the read side (responses) of the pipe pair to
// the downstream importer. Requests and responses are strictly FIFO;
// the caller must ensure the writer is flushed before a response is
// read, which Handle does for every call it issues itself.
type Handle struct {
	w *fastexport.Writer
	r *bufio.Reader
}

// NewHandle builds a handle from the element writer already in use for
// bulk output (so directives and elements share one write stream, per
// spec.md §5) and a reader for the importer's responses.
func NewHandle(w *fastexport.Writer, respReader io.Reader) *Handle {
	return &Handle{w: w, r: bufio.NewReader(respReader)}
}

func (h *Handle) readLine() (string, error) {
	line, err := h.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("importer: protocol error reading response: %w", err)
	}
	if err == io.EOF && line == "" {
		return "", fmt.Errorf("importer: unexpected EOF waiting for response")
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// GetMark resolves mark to its 40-hex object id (or a still-pending
// mark placeholder the importer guarantees to have flushed).
func (h *Handle) GetMark(mark int) (string, error) {
	if err := h.w.WriteGetMark(mark); err != nil {
		return "", err
	}
	return h.readLine()
}

// Ls looks up path in the tree of commitMark.
func (h *Handle) Ls(commitMark int, path []byte) (LsResult, error) {
	if err := h.w.WriteLs(commitMark, path); err != nil {
		return LsResult{}, err
	}
	line, err := h.readLine()
	if err != nil {
		return LsResult{}, err
	}
	return parseLsResponse(line)
}

func parseLsResponse(line string) (LsResult, error) {
	if strings.HasPrefix(line, "missing ") {
		return LsResult{Missing: true, Path: strings.TrimPrefix(line, "missing ")}, nil
	}
	// "<mode> <type> <hex>\t<path>" per git ls-tree convention, or the
	// space-delimited "<mode> <type> <hex> <path>" form fast-import
	// directives use; accept either by splitting on the first run of
	// whitespace/tab boundaries.
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 3 {
		return LsResult{}, fmt.Errorf("importer: malformed ls response %q", line)
	}
	sep := strings.IndexAny(fields[2], "\t ")
	if sep < 0 {
		return LsResult{}, fmt.Errorf("importer: malformed ls response %q", line)
	}
	mode, kind, hex, path := fields[0], fields[1], fields[2][:sep], fields[2][sep+1:]
	if _, err := strconv.ParseInt(mode, 8, 32); err != nil {
		return LsResult{}, fmt.Errorf("importer: malformed ls mode in %q", line)
	}
	return LsResult{Mode: mode, Kind: kind, Hex: hex, Path: path}, nil
}
