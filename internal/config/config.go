// Package config loads and validates the YAML session configuration
// (spec.md §6), in the same Unmarshal/LoadConfigFile/validate shape as
// the teacher's config package, generalized from Perforce import
// settings to the rewrite engine's path rules, identity/text
// rewriting, and pruning policy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/rcowham/gitrewrite/internal/engine"
	"github.com/rcowham/gitrewrite/internal/mailmap"
	"github.com/rcowham/gitrewrite/internal/pathtransform"
	"github.com/rcowham/gitrewrite/internal/replacetext"
)

const (
	DefaultPruneEmpty      = "auto"
	DefaultPruneDegenerate = "auto"
)

// PathRuleSpec is one path rule exactly as the YAML file names it;
// Kind "subdirectory-filter" and "to-subdirectory-filter" are shortcut
// forms that Build expands into one or two ordinary rules (spec.md
// §4.3).
type PathRuleSpec struct {
	Kind  string `yaml:"kind"`  // filter | rename | subdirectory-filter | to-subdirectory-filter
	Match string `yaml:"match"` // literal | glob | regex (ignored by the two shortcut kinds)
	Value string `yaml:"value"`
}

// Config is the rewrite engine's YAML session configuration.
type Config struct {
	Paths                  []PathRuleSpec `yaml:"paths"`
	InvertPaths            bool           `yaml:"invert_paths"`
	UseBaseName            bool           `yaml:"use_base_name"`
	ReplaceTextFile        string         `yaml:"replace_text_file"`
	MailmapFile            string         `yaml:"mailmap_file"`
	MaxBlobSize            string         `yaml:"max_blob_size"`
	StripBlobsWithIDs      []string       `yaml:"strip_blobs_with_ids"`
	TagRename              string         `yaml:"tag_rename"` // "OLD:NEW"
	PruneEmpty             string         `yaml:"prune_empty"`
	PruneDegenerate        string         `yaml:"prune_degenerate"`
	PreserveCommitHashes   bool           `yaml:"preserve_commit_hashes"`
	PreserveCommitEncoding bool           `yaml:"preserve_commit_encoding"`
	Partial                bool           `yaml:"partial"`
	Refs                   []string       `yaml:"refs"`
	DryRun                 bool           `yaml:"dry_run"`
}

// Unmarshal parses and validates a YAML configuration document.
func Unmarshal(content []byte) (*Config, error) {
	cfg := &Config{
		PruneEmpty:      DefaultPruneEmpty,
		PruneDegenerate: DefaultPruneDegenerate,
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters (like match patterns)", err.Error())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile loads and validates a YAML configuration file.
func LoadConfigFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	cfg, err := Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.PruneEmpty {
	case "", "never", "auto", "always":
	default:
		return fmt.Errorf("prune_empty must be one of never/auto/always, got %q", c.PruneEmpty)
	}
	switch c.PruneDegenerate {
	case "", "never", "auto", "always":
	default:
		return fmt.Errorf("prune_degenerate must be one of never/auto/always, got %q", c.PruneDegenerate)
	}
	if c.TagRename != "" && !strings.Contains(c.TagRename, ":") {
		return fmt.Errorf("tag_rename must be of the form OLD:NEW, got %q", c.TagRename)
	}
	if c.MaxBlobSize != "" {
		if _, err := parseByteSize(c.MaxBlobSize); err != nil {
			return fmt.Errorf("max_blob_size: %v", err)
		}
	}
	for _, p := range c.Paths {
		switch p.Kind {
		case "filter", "rename":
			switch p.Match {
			case "literal", "glob", "regex":
			default:
				return fmt.Errorf("path rule %+v: match must be literal/glob/regex", p)
			}
		case "subdirectory-filter", "to-subdirectory-filter":
		default:
			return fmt.Errorf("path rule %+v: kind must be filter/rename/subdirectory-filter/to-subdirectory-filter", p)
		}
	}
	if c.UseBaseName {
		for _, p := range c.Paths {
			if p.Kind == "rename" {
				return fmt.Errorf("use_base_name is incompatible with rename rules")
			}
		}
	}
	return nil
}

func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	mult := int64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'k', 'K':
		mult = 1024
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

func parsePruneMode(s string) engine.PruneMode {
	switch s {
	case "never":
		return engine.PruneNever
	case "always":
		return engine.PruneAlways
	default:
		return engine.PruneAuto
	}
}

// pathRuleSpecs expands the configuration's path rules into
// pathtransform.RuleSpecs, resolving the subdirectory-filter shortcut
// kinds (spec.md §4.3).
func pathRuleSpecs(paths []PathRuleSpec) ([]pathtransform.RuleSpec, error) {
	var out []pathtransform.RuleSpec
	matchKind := func(m string) pathtransform.MatchKind {
		switch m {
		case "glob":
			return pathtransform.Glob
		case "regex":
			return pathtransform.Regex
		default:
			return pathtransform.Literal
		}
	}
	for _, p := range paths {
		switch p.Kind {
		case "filter":
			out = append(out, pathtransform.RuleSpec{Kind: pathtransform.Filter, Match: matchKind(p.Match), Value: p.Value})
		case "rename":
			out = append(out, pathtransform.RuleSpec{Kind: pathtransform.Rename, Match: matchKind(p.Match), Value: p.Value})
		case "subdirectory-filter":
			out = append(out, pathtransform.ExpandSubdirectoryFilter(p.Value)...)
		case "to-subdirectory-filter":
			out = append(out, pathtransform.ExpandToSubdirectoryFilter(p.Value)...)
		default:
			return nil, fmt.Errorf("unknown path rule kind %q", p.Kind)
		}
	}
	return out, nil
}

// Build loads the mailmap and replace-text side files this
// configuration names (if any), compiles the path transform, and
// assembles the resulting engine.Options. Callbacks, the importer
// handle, and the logger's destination are the caller's
// responsibility to fill in afterward.
func (c *Config) Build(logger *logrus.Logger) (engine.Options, error) {
	opts := engine.Options{
		InvertPaths:            c.InvertPaths,
		PreserveCommitHashes:   c.PreserveCommitHashes,
		PreserveCommitEncoding: c.PreserveCommitEncoding,
		Partial:                c.Partial,
		PruneEmpty:             parsePruneMode(c.PruneEmpty),
		PruneDegenerate:        parsePruneMode(c.PruneDegenerate),
		Logger:                 logger,
	}

	specs, err := pathRuleSpecs(c.Paths)
	if err != nil {
		return opts, err
	}
	if len(specs) > 0 || c.UseBaseName {
		t, err := pathtransform.New(specs, pathtransform.Options{UseBaseName: c.UseBaseName, Inclusive: !c.InvertPaths})
		if err != nil {
			return opts, fmt.Errorf("path rules: %w", err)
		}
		opts.Transform = t
	}

	if c.MaxBlobSize != "" {
		size, err := parseByteSize(c.MaxBlobSize)
		if err != nil {
			return opts, err
		}
		opts.MaxBlobSize = size
	}

	if len(c.StripBlobsWithIDs) > 0 {
		ids := make(map[string]bool, len(c.StripBlobsWithIDs))
		for _, id := range c.StripBlobsWithIDs {
			ids[id] = true
		}
		opts.StripBlobsWithIDs = ids
	}

	if c.TagRename != "" {
		parts := strings.SplitN(c.TagRename, ":", 2)
		opts.TagRename = &engine.TagRename{Old: parts[0], New: parts[1]}
	}

	if c.ReplaceTextFile != "" {
		f, err := os.Open(c.ReplaceTextFile)
		if err != nil {
			return opts, fmt.Errorf("replace_text_file: %w", err)
		}
		defer f.Close()
		table, err := replacetext.Load(f)
		if err != nil {
			return opts, fmt.Errorf("replace_text_file: %w", err)
		}
		opts.ReplaceText = table
	}

	if c.MailmapFile != "" {
		f, err := os.Open(c.MailmapFile)
		if err != nil {
			return opts, fmt.Errorf("mailmap_file: %w", err)
		}
		defer f.Close()
		m, err := mailmap.Parse(f)
		if err != nil {
			return opts, fmt.Errorf("mailmap_file: %w", err)
		}
		opts.Mailmap = m.Callback()
	}

	return opts, nil
}
