// Package pathtransform implements the filter + rename rule pipeline
// applied to every file-change path (spec.md §4.3): literal, glob and
// regex matching, longest-literal-prefix rename, and the
// subdirectory-filter / to-subdirectory-filter shortcut expansions.
package pathtransform

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleKind distinguishes a filter rule (decides whether a path is
// kept) from a rename rule (rewrites a path).
type RuleKind int

const (
	Filter RuleKind = iota
	Rename
)

// MatchKind is the three ways a rule's pattern can be compared against
// a path.
type MatchKind int

const (
	Literal MatchKind = iota
	Glob
	Regex
)

// RuleSpec is the uncompiled, user-facing form of one path rule.
type RuleSpec struct {
	Kind  RuleKind
	Match MatchKind
	// Value is the match pattern for a Filter rule, or "OLD:NEW" for a
	// literal Rename rule, or the regex-with-replacement source for a
	// regex Rename rule (Go RE2 syntax, replacement separated by "==>
	// ").
	Value string
}

// compiledRule is a RuleSpec after validation and pattern compilation.
type compiledRule struct {
	kind  RuleKind
	match MatchKind
	re    *regexp.Regexp // Glob (translated) or Regex match/rename
	repl  string         // regex rename replacement, Go ${n} syntax

	// literal rename fields
	literalOld string
	literalNew string
}

// Transform is a compiled, ready-to-apply rule pipeline.
type Transform struct {
	rules       []compiledRule
	useBaseName bool
	inclusive   bool
	hasFilters  bool
}

// Options configures pipeline-wide behavior orthogonal to individual
// rules.
type Options struct {
	UseBaseName bool
	Inclusive   bool
}

// New validates and compiles rule specs into a Transform. Configuration
// errors (mis-trailing slashes on a literal rename, use_base_name
// combined with any rename rule) are returned here, before any stream
// I/O, per spec.md §7.
func New(specs []RuleSpec, opts Options) (*Transform, error) {
	t := &Transform{useBaseName: opts.UseBaseName, inclusive: opts.Inclusive}
	for _, s := range specs {
		if s.Kind == Rename {
			if opts.UseBaseName {
				return nil, fmt.Errorf("pathtransform: use_base_name is incompatible with rename rules")
			}
		} else {
			t.hasFilters = true
		}
		cr, err := compile(s)
		if err != nil {
			return nil, err
		}
		t.rules = append(t.rules, cr)
	}
	return t, nil
}

func compile(s RuleSpec) (compiledRule, error) {
	cr := compiledRule{kind: s.Kind, match: s.Match}
	switch s.Kind {
	case Filter:
		switch s.Match {
		case Literal:
			cr.literalOld = s.Value
		case Glob:
			re, err := globToRegexp(s.Value)
			if err != nil {
				return cr, err
			}
			cr.re = re
		case Regex:
			re, err := regexp.Compile(s.Value)
			if err != nil {
				return cr, fmt.Errorf("pathtransform: bad filter regex %q: %w", s.Value, err)
			}
			cr.re = re
		}
	case Rename:
		switch s.Match {
		case Literal:
			old, new, err := splitLiteralRename(s.Value)
			if err != nil {
				return cr, err
			}
			cr.literalOld, cr.literalNew = old, new
		case Glob:
			return cr, fmt.Errorf("pathtransform: glob match is not valid for rename rules")
		case Regex:
			old, new := splitRegexRename(s.Value)
			re, err := regexp.Compile(old)
			if err != nil {
				return cr, fmt.Errorf("pathtransform: bad rename regex %q: %w", old, err)
			}
			cr.re = re
			cr.repl = new
		}
	}
	return cr, nil
}

// splitLiteralRename parses "OLD:NEW" and enforces the trailing-slash
// configuration-error rule from spec.md §4.3.
func splitLiteralRename(spec string) (string, string, error) {
	idx := strings.IndexByte(spec, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("pathtransform: literal rename %q missing ':'", spec)
	}
	old, new := spec[:idx], spec[idx+1:]
	if old != "" && new != "" {
		oldSlash := strings.HasSuffix(old, "/")
		newSlash := strings.HasSuffix(new, "/")
		if oldSlash != newSlash {
			return "", "", fmt.Errorf(
				"pathtransform: rename %q->%q: exactly one side ends with '/'", old, new)
		}
	}
	return old, new, nil
}

// splitRegexRename splits a "PATTERN==>REPLACEMENT" rename spec.
func splitRegexRename(spec string) (string, string) {
	if idx := strings.Index(spec, "==>"); idx >= 0 {
		return spec[:idx], spec[idx+3:]
	}
	return spec, ""
}

// globToRegexp translates a shell-style glob (`*`, `?`, `[...]`) into
// an anchored regular expression, the same translation
// filteringoptions.py applies before compiling its path rules.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '.', '+', '(', ')', '|', '^', '$', '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '[':
			j := i + 1
			for j < len(glob) && glob[j] != ']' {
				j++
			}
			if j < len(glob) {
				b.WriteString(glob[i : j+1])
				i = j
			} else {
				b.WriteString("\\[")
			}
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// matchesFilter reports whether the filter rule matches key. Literal
// matching is leading-directory-boundary-aware: a value of "a/b"
// matches "a/b" itself and anything under "a/b/", but not "a/bc".
func (r compiledRule) matchesFilter(key string) bool {
	switch r.match {
	case Literal:
		return filenameMatches(r.literalOld, key)
	default:
		return r.re.MatchString(key)
	}
}

func filenameMatches(prefix, key string) bool {
	if key == prefix {
		return true
	}
	p := strings.TrimSuffix(prefix, "/")
	return strings.HasPrefix(key, p+"/")
}

// basename returns the final path component, mirroring use_base_name
// filtering (spec.md §4.3 step 1).
func basename(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// applyRename rewrites full against one rename rule, or returns it
// unchanged if the rule does not apply.
func (r compiledRule) applyRename(full string) string {
	switch r.match {
	case Literal:
		if strings.HasPrefix(full, r.literalOld) {
			return r.literalNew + strings.TrimPrefix(full, r.literalOld)
		}
		return full
	case Regex:
		if !r.re.MatchString(full) {
			return full
		}
		return r.re.ReplaceAllString(full, r.repl)
	}
	return full
}

// Apply runs the full pipeline against one path: returns the
// (possibly renamed) path and whether it should be kept.
func (t *Transform) Apply(path string) (string, bool) {
	key := path
	if t.useBaseName {
		key = basename(path)
	}

	wanted := !t.hasFilters
	filterMatched := false
	full := path

	for _, r := range t.rules {
		switch r.kind {
		case Filter:
			if !filterMatched && r.matchesFilter(key) {
				wanted = true
				filterMatched = true
			}
		case Rename:
			full = r.applyRename(full)
		}
	}

	return full, wanted == t.inclusive
}

// ExpandSubdirectoryFilter pre-expands `subdirectory-filter=D/` into
// its two constituent rules: a literal filter on D/, and a literal
// rename stripping D/ to the repository root.
func ExpandSubdirectoryFilter(dir string) []RuleSpec {
	return []RuleSpec{
		{Kind: Filter, Match: Literal, Value: dir},
		{Kind: Rename, Match: Literal, Value: dir + ":"},
	}
}

// ExpandToSubdirectoryFilter pre-expands `to-subdirectory-filter=D/`
// into a single rule renaming every path under the new prefix D/.
func ExpandToSubdirectoryFilter(dir string) []RuleSpec {
	return []RuleSpec{
		{Kind: Rename, Match: Literal, Value: ":" + dir},
	}
}
