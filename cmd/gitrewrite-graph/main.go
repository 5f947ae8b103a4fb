package main

// gitrewrite-graph runs the rewrite engine over a fast-export stream
// and renders its ancestry graphs to Graphviz DOT, adapted from
// cmd/gitgraph's map[int]*GitCommit/dot.Graph construction: rather
// than building its own commit map from raw CmdCommit values, it walks
// the engine's own rewritten-history and original-history
// ancestry.Graph values (spec.md §9) after a full run.

import (
	"fmt"
	"io"
	"os"

	"github.com/emicklei/dot"
	"github.com/perforce/p4prometheus/version"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/gitrewrite/internal/ancestry"
	"github.com/rcowham/gitrewrite/internal/config"
	"github.com/rcowham/gitrewrite/internal/engine"
	"github.com/rcowham/gitrewrite/internal/fastexport"
	"github.com/rcowham/gitrewrite/internal/report"
)

func main() {
	var (
		streamIn = kingpin.Arg(
			"stream",
			"Git fast-export stream file to process (- for stdin).",
		).String()
		configFile = kingpin.Flag(
			"config",
			"Session configuration YAML file to apply before graphing.",
		).Short('c').String()
		graphFile = kingpin.Flag(
			"graph",
			"Graphviz dot file to write.",
		).Default("gitrewrite.dot").Short('g').String()
		original = kingpin.Flag(
			"original",
			"Graph the original (pre-rewrite) history instead of the rewritten one.",
		).Bool()
		debug = kingpin.Flag(
			"debug",
			"Enable debug-level logging.",
		).Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("gitrewrite-graph")).Author("")
	kingpin.CommandLine.Help = "Renders a rewritten (or original) commit ancestry graph to Graphviz DOT.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadConfigFile(*configFile)
	} else {
		cfg, err = config.Unmarshal(nil)
	}
	if err != nil {
		logger.Errorf("error loading config: %v", err)
		os.Exit(1)
	}

	opts, err := cfg.Build(logger)
	if err != nil {
		logger.Errorf("error building engine options: %v", err)
		os.Exit(1)
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

	writer := fastexport.NewWriter(io.Discard)
	eng := engine.New(opts, writer,
		report.NewCommitMap(io.Discard), report.NewRefMap(io.Discard), report.NewIssues(io.Discard))
	reader := fastexport.NewReader(in)

	if err := engine.Run(reader, writer, eng); err != nil {
		logger.Errorf("error processing stream: %v", err)
		os.Exit(1)
	}

	g := eng.Graph()
	if *original {
		g = eng.OldGraph()
	}

	out, err := os.Create(*graphFile)
	if err != nil {
		logger.Errorf("error creating %s: %v", *graphFile, err)
		os.Exit(1)
	}
	defer out.Close()

	writeDot(g, out)
	logger.Infof("wrote %s", *graphFile)
}

// writeDot renders g's commits and parent edges as a Graphviz digraph,
// in the node/edge construction style of cmd/gitgraph's createGraphEdges.
func writeDot(g *ancestry.Graph, out io.Writer) {
	commits, edges := g.Export()

	gv := dot.NewGraph(dot.Directed)
	nodes := make(map[interface{}]dot.Node, len(commits))
	for _, c := range commits {
		n := gv.Node(fmt.Sprintf("%v", c))
		nodes[c] = n
	}
	for _, e := range edges {
		parent, ok := nodes[e.Parent]
		child, ok2 := nodes[e.Commit]
		if ok && ok2 {
			gv.Edge(parent, child)
		}
	}
	fmt.Fprint(out, gv.String())
}
