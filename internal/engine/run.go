package engine

import (
	"io"

	"github.com/rcowham/gitrewrite/internal/fastexport"
)

// Run drives the single-threaded cooperative pipeline of spec.md §2,
// §5: pull one element at a time from r, run it through eng, and write
// whatever survives to w. Checkpoint and progress directives are never
// re-emitted; everything else is written only when the engine decides
// to keep it.
func Run(r *fastexport.Reader, w *fastexport.Writer, eng *Engine) error {
	for {
		el, err := r.ReadElement()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch el.Kind {
		case fastexport.KindBlob:
			b, keep := eng.ProcessBlob(el.Blob)
			if keep {
				if err := w.WriteBlob(b); err != nil {
					return err
				}
			}
		case fastexport.KindCommit:
			c, keep := eng.ProcessCommit(el.Commit)
			if keep {
				if err := w.WriteCommit(c); err != nil {
					return err
				}
			}
		case fastexport.KindTag:
			t, keep := eng.ProcessTag(el.Tag)
			if keep {
				if err := w.WriteTag(t); err != nil {
					return err
				}
			}
		case fastexport.KindReset:
			rst, keep := eng.ProcessReset(el.Reset)
			if keep {
				if err := w.WriteReset(rst); err != nil {
					return err
				}
			}
		case fastexport.KindCheckpoint, fastexport.KindProgress:
			// Never re-emitted by default (spec.md §4.6).
		case fastexport.KindLiteral:
			if err := w.WriteLiteral(el.Literal); err != nil {
				return err
			}
		}
	}

	eng.Finish()
	return w.Flush()
}
