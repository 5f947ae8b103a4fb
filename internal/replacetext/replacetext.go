// Package replacetext loads the replace-text table (spec.md §4.6,
// §6): an ordered list of literal-then-regex rules applied to blob
// contents, each rule's match replaced by a fixed replacement
// string, defaulting to "***REMOVED***".
package replacetext

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
)

const defaultReplacement = "***REMOVED***"

type rule struct {
	literal     []byte
	re          *regexp.Regexp
	replacement []byte
}

// Table is an ordered, compiled replace-text rule set: literal rules
// run first, in file order, followed by regex rules, in file order —
// matching the ordering spec.md §4.6 specifies ("ordered literal then
// compiled regexes").
type Table struct {
	literals []rule
	regexes  []rule
}

// Load parses one rule per line. A line is either a bare literal
// (replaced with the default replacement), "literal==>replacement", or
// "regex:PATTERN==>replacement" for a regex rule.
func Load(r io.Reader) (*Table, error) {
	t := &Table{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		pattern, replacement := line, defaultReplacement
		if idx := strings.Index(line, "==>"); idx >= 0 {
			pattern, replacement = line[:idx], line[idx+3:]
		}
		if strings.HasPrefix(pattern, "regex:") {
			re, err := regexp.Compile(strings.TrimPrefix(pattern, "regex:"))
			if err != nil {
				return nil, err
			}
			t.regexes = append(t.regexes, rule{re: re, replacement: []byte(replacement)})
			continue
		}
		t.literals = append(t.literals, rule{literal: []byte(pattern), replacement: []byte(replacement)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Apply runs every rule against data in order, returning the
// transformed bytes.
func (t *Table) Apply(data []byte) []byte {
	for _, r := range t.literals {
		data = bytes.ReplaceAll(data, r.literal, r.replacement)
	}
	for _, r := range t.regexes {
		data = r.re.ReplaceAll(data, r.replacement)
	}
	return data
}
