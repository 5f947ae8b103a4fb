package main

// gitrewrite rewrites a git fast-export stream: it reads elements from
// a source (a live repository via `git fast-export`, a stream file, or
// stdin), runs them through the rewrite engine, and writes the result
// to a target (a live repository via `git fast-import`, a stream file,
// or stdout), producing the commit-map/ref-map/suboptimal-issues
// reports alongside.

import (
	"io"
	"os"
	"time"

	"github.com/perforce/p4prometheus/version"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/gitrewrite/internal/config"
	"github.com/rcowham/gitrewrite/internal/engine"
	"github.com/rcowham/gitrewrite/internal/fastexport"
	"github.com/rcowham/gitrewrite/internal/gitutil"
	"github.com/rcowham/gitrewrite/internal/importer"
	"github.com/rcowham/gitrewrite/internal/report"
)

func main() {
	var (
		configFile = kingpin.Flag(
			"config",
			"Session configuration YAML file.",
		).Short('c').String()
		source = kingpin.Flag(
			"source",
			"Path to a live repository to read history from (runs git fast-export internally).",
		).String()
		target = kingpin.Flag(
			"target",
			"Path to a live repository to write rewritten history into (runs git fast-import internally). Defaults to --source.",
		).String()
		refs = kingpin.Arg(
			"refs",
			"Refs to export when --source is given (defaults to --all).",
		).Strings()
		streamIn = kingpin.Flag(
			"stream-in",
			"Read a fast-export stream from this file instead of a live repository (- for stdin).",
		).String()
		streamOut = kingpin.Flag(
			"stream-out",
			"Write the rewritten fast-export stream to this file instead of a live repository (- for stdout).",
		).String()
		reportDir = kingpin.Flag(
			"report-dir",
			"Directory to write commit-map/ref-map/suboptimal-issues into.",
		).Default(".").String()
		force = kingpin.Flag(
			"force",
			"Run even if this repository already has an already_ran marker from a previous run.",
		).Bool()
		dryRun = kingpin.Flag(
			"dry-run",
			"Run the engine and write reports, but discard the rewritten stream.",
		).Bool()
		debug = kingpin.Flag(
			"debug",
			"Enable debug-level logging.",
		).Bool()
	)

	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("gitrewrite")).Author("")
	kingpin.CommandLine.Help = "Rewrites git history by filtering and transforming a fast-export stream.\n"
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
	if *dryRun {
		cfg.DryRun = true
	}

	startTime := time.Now()
	logger.Infof("%v", version.Print("gitrewrite"))
	logger.Infof("Starting %s, source=%q target=%q", startTime, *source, *target)

	if *source != "" {
		gitDir := *source
		already := report.NewAlreadyRan(gitDir)
		if already.Exists() && !*force {
			logger.Errorf("repository %s already has an already_ran marker; pass --force to rerun", gitDir)
			os.Exit(1)
		}
	}

	opts, err := cfg.Build(logger)
	if err != nil {
		logger.Errorf("error building engine options: %v", err)
		os.Exit(1)
	}
	if *source != "" || *target != "" {
		opts.SuppressTagMarks = !gitutil.SupportsMarkedTags()
	}

	reportPath := func(name string) string {
		if *reportDir == "" {
			return name
		}
		return *reportDir + string(os.PathSeparator) + name
	}

	commitMapFile, err := os.Create(reportPath("commit-map"))
	if err != nil {
		logger.Errorf("error creating commit-map: %v", err)
		os.Exit(1)
	}
	defer commitMapFile.Close()
	refMapFile, err := os.Create(reportPath("ref-map"))
	if err != nil {
		logger.Errorf("error creating ref-map: %v", err)
		os.Exit(1)
	}
	defer refMapFile.Close()
	issuesFile, err := os.Create(reportPath("suboptimal-issues"))
	if err != nil {
		logger.Errorf("error creating suboptimal-issues: %v", err)
		os.Exit(1)
	}
	defer issuesFile.Close()

	commitMap := report.NewCommitMap(commitMapFile)
	refMap := report.NewRefMap(refMapFile)
	issues := report.NewIssues(issuesFile)

	in, inCloser, err := openInput(*source, *streamIn, *refs)
	if err != nil {
		logger.Errorf("error opening input: %v", err)
		os.Exit(1)
	}
	if inCloser != nil {
		defer inCloser()
	}

	var writer *fastexport.Writer
	var imp *importer.Handle
	if cfg.DryRun {
		writer = fastexport.NewWriter(io.Discard)
	} else {
		w, outCloser, h, err := openOutput(*target, *source, *streamOut, logger)
		if err != nil {
			logger.Errorf("error opening output: %v", err)
			os.Exit(1)
		}
		if outCloser != nil {
			defer outCloser()
		}
		writer, imp = w, h
	}

	opts.Importer = imp

	eng := engine.New(opts, writer, commitMap, refMap, issues)
	reader := fastexport.NewReader(in)

	if err := engine.Run(reader, writer, eng); err != nil {
		logger.Errorf("error rewriting stream: %v", err)
		os.Exit(1)
	}
	if err := issues.Flush(); err != nil {
		logger.Warnf("error flushing suboptimal-issues report: %v", err)
	}

	if *source != "" && !cfg.DryRun {
		if err := report.NewAlreadyRan(*source).Mark(); err != nil {
			logger.Warnf("error writing already_ran marker: %v", err)
		}
	}

	logger.Infof("Finished in %s", time.Since(startTime))
}

// openInput resolves the stream source: a live repository (git
// fast-export), an explicit stream file, stdin, or - when neither is
// given - stdin, matching the teacher's convention of falling back to
// stdin for pipeline composition.
func openInput(source, streamIn string, refs []string) (io.Reader, func(), error) {
	if source != "" {
		if len(refs) == 0 {
			refs = []string{"--all"}
		}
		exp, err := gitutil.NewExporter(source, refs)
		if err != nil {
			return nil, nil, err
		}
		return exp.Stdout, func() { exp.Wait() }, nil
	}
	if streamIn != "" && streamIn != "-" {
		f, err := os.Open(streamIn)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
	return os.Stdin, nil, nil
}

// openOutput resolves the stream target: a live repository (git
// fast-import, with its response pipe wired into an importer.Handle
// for the ls/get-mark round trip), an explicit stream file, or stdout.
// The bulk element writer and the importer handle's directive writer
// are the same *fastexport.Writer, since directives and elements share
// one write stream (spec.md §4.5).
func openOutput(target, source, streamOut string, logger *logrus.Logger) (*fastexport.Writer, func(), *importer.Handle, error) {
	dir := target
	if dir == "" {
		dir = source
	}
	if dir != "" {
		imp, err := gitutil.NewImporter(dir)
		if err != nil {
			return nil, nil, nil, err
		}
		writer := fastexport.NewWriter(imp.Stdin)
		handle := importer.NewHandle(writer, imp.ResponsesIn)
		closer := func() {
			imp.Stdin.Close()
			if err := imp.Wait(); err != nil {
				logger.Warnf("fast-import exited with error: %v", err)
			}
		}
		return writer, closer, handle, nil
	}
	if streamOut != "" && streamOut != "-" {
		f, err := os.Create(streamOut)
		if err != nil {
			return nil, nil, nil, err
		}
		return fastexport.NewWriter(f), func() { f.Close() }, nil, nil
	}
	return fastexport.NewWriter(os.Stdout), nil, nil, nil
}
