package fastexport

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rcowham/gitrewrite/internal/element"
)

// Writer serializes Elements back into canonical fast-import wire
// format text, matching what the upstream exporter would have produced
// for an object with that content.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter wraps w for element-at-a-time emission.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, 64*1024)}
}

// Flush flushes any buffered output; callers must call this before
// reading a response on an associated importer handle (spec.md §4.5,
// §5).
func (w *Writer) Flush() error { return w.bw.Flush() }

func refString(r element.Ref) string {
	if r.IsZero() {
		return ""
	}
	if r.IsMark() {
		return fmt.Sprintf(":%d", r.Mark)
	}
	return r.Hex
}

// writeData writes the "data N\n<payload>" form followed by an
// unconditional trailing newline, matching the upstream exporter's own
// Blob.dump() exactly rather than only adding one when the payload
// doesn't already end in one.
func (w *Writer) writeData(data []byte) {
	fmt.Fprintf(w.bw, "data %d\n", len(data))
	w.bw.Write(data)
	w.bw.WriteByte('\n')
}

func writeIdentity(w *bufio.Writer, kind string, id element.Identity) {
	fmt.Fprintf(w, "%s %s <%s> %s\n", kind, id.Name, id.Email, id.Date)
}

// WriteBlob emits a blob element.
func (w *Writer) WriteBlob(b *element.Blob) error {
	w.bw.WriteString("blob\n")
	if b.Mark != 0 {
		fmt.Fprintf(w.bw, "mark :%d\n", b.Mark)
	}
	if b.OrigID != "" {
		fmt.Fprintf(w.bw, "original-oid %s\n", b.OrigID)
	}
	w.writeData(b.Data)
	return w.bw.Flush()
}

// WriteReset emits a reset element.
func (w *Writer) WriteReset(r *element.Reset) error {
	fmt.Fprintf(w.bw, "reset %s\n", r.Ref)
	if !r.From.IsZero() {
		fmt.Fprintf(w.bw, "from %s\n", refString(r.From))
	}
	return w.bw.Flush()
}

func writeFileChange(w *bufio.Writer, fc element.FileChange) {
	switch fc.Op {
	case element.Modify:
		fmt.Fprintf(w, "M %s %s %s\n", fc.Mode, refString(fc.Blob), Enquote(fc.Path))
	case element.Delete:
		fmt.Fprintf(w, "D %s\n", Enquote(fc.Path))
	case element.DeleteAll:
		w.WriteString("deleteall\n")
	case element.Rename:
		fmt.Fprintf(w, "R %s %s\n", Enquote(fc.SrcPath), Enquote(fc.Path))
	}
}

// WriteCommit emits a commit element and its file changes.
func (w *Writer) WriteCommit(c *element.Commit) error {
	fmt.Fprintf(w.bw, "commit %s\n", c.Branch)
	if c.Mark != 0 {
		fmt.Fprintf(w.bw, "mark :%d\n", c.Mark)
	}
	if c.OrigID != "" {
		fmt.Fprintf(w.bw, "original-oid %s\n", c.OrigID)
	}
	if c.Author.Name != "" || c.Author.Email != "" {
		writeIdentity(w.bw, "author", c.Author)
	}
	writeIdentity(w.bw, "committer", c.Committer)
	if c.Encoding != "" {
		fmt.Fprintf(w.bw, "encoding %s\n", c.Encoding)
	}
	w.writeData(c.Message)

	if len(c.Parents) > 0 {
		fmt.Fprintf(w.bw, "from %s\n", refString(c.Parents[0]))
		for _, m := range c.Parents[1:] {
			fmt.Fprintf(w.bw, "merge %s\n", refString(m))
		}
	}
	for _, fc := range c.FileChanges {
		writeFileChange(w.bw, fc)
	}
	return w.bw.Flush()
}

// WriteTag emits an annotated tag element.
func (w *Writer) WriteTag(t *element.Tag) error {
	fmt.Fprintf(w.bw, "tag %s\n", t.Name)
	if t.Mark != 0 {
		fmt.Fprintf(w.bw, "mark :%d\n", t.Mark)
	}
	fmt.Fprintf(w.bw, "from %s\n", refString(t.Target))
	if t.OrigID != "" {
		fmt.Fprintf(w.bw, "original-oid %s\n", t.OrigID)
	}
	if t.Tagger != nil {
		writeIdentity(w.bw, "tagger", *t.Tagger)
	}
	w.writeData(t.Message)
	return w.bw.Flush()
}

// WriteLiteral emits a feature/option/#/done passthrough line verbatim.
func (w *Writer) WriteLiteral(l *element.Literal) error {
	w.bw.WriteString(l.Line)
	w.bw.WriteByte('\n')
	return w.bw.Flush()
}

// WriteGetMark emits a get-mark importer directive.
func (w *Writer) WriteGetMark(mark int) error {
	fmt.Fprintf(w.bw, "get-mark :%d\n", mark)
	return w.bw.Flush()
}

// WriteLs emits an ls importer directive against the given commit mark
// and path.
func (w *Writer) WriteLs(commitMark int, path []byte) error {
	fmt.Fprintf(w.bw, "ls :%d %s\n", commitMark, Enquote(path))
	return w.bw.Flush()
}
