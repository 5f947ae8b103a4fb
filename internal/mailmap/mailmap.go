// Package mailmap parses the plain-text mailmap format and returns a
// callback-shaped identity rewriter, matching spec.md §1's treatment of
// mailmap parsing as "a pure helper function that returns a
// transformation table."
package mailmap

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rcowham/gitrewrite/internal/element"
)

// entry is one parsed mailmap line, in the four forms the format
// supports:
//
//	Proper Name <proper@email>
//	Proper Name <proper@email> <commit@email>
//	Proper Name <proper@email> Commit Name <commit@email>
//	<proper@email> <commit@email>
type entry struct {
	properName  string
	properEmail string
	commitName  string
	commitEmail string
}

// Map is a compiled mailmap ready to rewrite identities.
type Map struct {
	byEmailAndName map[string]entry // key: lower(commitEmail)+"\x00"+commitName
	byEmail        map[string]entry // key: lower(commitEmail), name-agnostic
}

// Parse reads a mailmap file from r.
func Parse(r io.Reader) (*Map, error) {
	m := &Map{byEmailAndName: map[string]entry{}, byEmail: map[string]entry{}}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("mailmap: line %d: %w", lineNo, err)
		}
		if e.commitEmail != "" {
			if e.commitName != "" {
				m.byEmailAndName[key(e.commitEmail, e.commitName)] = e
			} else {
				m.byEmail[strings.ToLower(e.commitEmail)] = e
			}
		} else if e.properEmail != "" {
			// "Proper Name <email>": the one email is also the commit email.
			m.byEmail[strings.ToLower(e.properEmail)] = e
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func key(email, name string) string {
	return strings.ToLower(email) + "\x00" + name
}

func parseLine(line string) (entry, error) {
	// Split on angle-bracket groups: up to two "<email>" tokens, each
	// optionally preceded by a name.
	var emails []string
	var names []string
	rest := line
	for {
		start := strings.IndexByte(rest, '<')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '>')
		if end < 0 {
			return entry{}, fmt.Errorf("unterminated '<' in mailmap line %q", line)
		}
		names = append(names, strings.TrimSpace(rest[:start]))
		emails = append(emails, rest[start+1:start+end])
		rest = rest[start+end+1:]
	}
	switch len(emails) {
	case 1:
		return entry{properName: names[0], properEmail: emails[0]}, nil
	case 2:
		return entry{
			properName: names[0], properEmail: emails[0],
			commitName: names[1], commitEmail: emails[1],
		}, nil
	default:
		return entry{}, fmt.Errorf("malformed mailmap line %q", line)
	}
}

// Rewrite returns the canonical identity for id, or id unchanged if no
// mailmap entry applies. Matching tries (email, name) first, falling
// back to email alone, as git's own mailmap lookup does.
func (m *Map) Rewrite(id element.Identity) element.Identity {
	if e, ok := m.byEmailAndName[key(id.Email, id.Name)]; ok {
		return apply(id, e)
	}
	if e, ok := m.byEmail[strings.ToLower(id.Email)]; ok {
		return apply(id, e)
	}
	return id
}

func apply(id element.Identity, e entry) element.Identity {
	if e.properName != "" {
		id.Name = e.properName
	}
	if e.properEmail != "" {
		id.Email = e.properEmail
	}
	return id
}

// Callback adapts a Map into the engine's identity-callback shape.
func (m *Map) Callback() func(element.Identity) element.Identity {
	return m.Rewrite
}
