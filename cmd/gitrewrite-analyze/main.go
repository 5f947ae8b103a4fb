package main

// gitrewrite-analyze runs a read-only pass over a fast-export stream
// and tabulates per-extension and per-path blob size statistics, a
// minimal analogue of repoanalyze.py's RepoAnalyze kept deliberately
// small (spec.md §1 excludes full analyze/report-mode from the
// rewrite engine's core, but still names it a useful external
// collaborator to give the remaining pack dependencies, in particular
// alitto/pond, a home outside the single-threaded engine loop).

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	"github.com/perforce/p4prometheus/version"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/gitrewrite/internal/blobstat"
	"github.com/rcowham/gitrewrite/internal/element"
	"github.com/rcowham/gitrewrite/internal/fastexport"
)

func main() {
	var (
		streamIn = kingpin.Arg(
			"stream",
			"Git fast-export stream file to analyze (- for stdin).",
		).String()
		topN = kingpin.Flag(
			"top",
			"How many extensions/paths to list in each ranking.",
		).Default("10").Int()
		poolSize = kingpin.Flag(
			"workers",
			"Worker pool size for the concurrent blob-size pass.",
		).Default("10").Int()
		debug = kingpin.Flag(
			"debug",
			"Enable debug-level logging.",
		).Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("gitrewrite-analyze")).Author("")
	kingpin.CommandLine.Help = "Tabulates blob/path/extension size statistics from a fast-export stream.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}

	var in io.Reader
	if *streamIn == "" || *streamIn == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(*streamIn)
		if err != nil {
			logger.Errorf("error opening %s: %v", *streamIn, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	blobs, paths, err := scanStream(in)
	if err != nil {
		logger.Errorf("error reading stream: %v", err)
		os.Exit(1)
	}

	sizes := blobstat.Scan(blobs, *poolSize)

	extTotals := make(map[string]int64)
	pathTotals := make(map[string]int64)
	for markHex, p := range paths {
		n, ok := sizes.Get(markHex)
		if !ok {
			continue
		}
		extTotals[extensionOf(p)] += n
		pathTotals[p] += n
	}

	fmt.Printf("Blobs scanned: %d\n\n", len(blobs))
	printRanking("Extensions by total size", extTotals, *topN)
	printRanking("Paths by total size", pathTotals, *topN)
}

// scanStream reads every blob and every commit's final (Modify) file
// changes out of the stream, returning the blob payloads to size and a
// map from a blob's original id (or synthetic mark key) to the last
// path it was seen at.
func scanStream(in io.Reader) ([]blobstat.Blob, map[string]string, error) {
	r := fastexport.NewReader(in)
	var blobs []blobstat.Blob
	markKey := make(map[int]string)
	paths := make(map[string]string)

	for {
		el, err := r.ReadElement()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch el.Kind {
		case fastexport.KindBlob:
			b := el.Blob
			key := b.OrigID
			if key == "" {
				key = fmt.Sprintf("mark:%d", b.Mark)
			}
			markKey[b.Mark] = key
			blobs = append(blobs, blobstat.Blob{OrigID: key, Data: b.Data})
		case fastexport.KindCommit:
			for _, fc := range el.Commit.FileChanges {
				if fc.Op != element.Modify || !fc.Blob.IsMark() {
					continue
				}
				if key, ok := markKey[fc.Blob.Mark]; ok {
					paths[key] = string(fc.Path)
				}
			}
		}
	}
	return blobs, paths, nil
}

func extensionOf(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return "(no extension)"
	}
	return ext
}

func printRanking(title string, totals map[string]int64, topN int) {
	type row struct {
		key string
		n   int64
	}
	rows := make([]row, 0, len(totals))
	for k, n := range totals {
		rows = append(rows, row{k, n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].n > rows[j].n })
	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	fmt.Printf("%s:\n", title)
	for _, rr := range rows {
		fmt.Printf("  %10d  %s\n", rr.n, rr.key)
	}
	fmt.Println()
}
