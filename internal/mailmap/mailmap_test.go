package mailmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcowham/gitrewrite/internal/element"
)

func TestRewriteByEmailOnly(t *testing.T) {
	m, err := Parse(strings.NewReader("Proper Name <proper@example.com> <old@example.com>\n"))
	assert.NoError(t, err)

	got := m.Rewrite(element.Identity{Name: "Old Name", Email: "old@example.com"})
	assert.Equal(t, "Proper Name", got.Name)
	assert.Equal(t, "proper@example.com", got.Email)
}

func TestRewriteByEmailAndName(t *testing.T) {
	m, err := Parse(strings.NewReader(
		"Proper Name <proper@example.com> Old Name <old@example.com>\n"))
	assert.NoError(t, err)

	got := m.Rewrite(element.Identity{Name: "Old Name", Email: "old@example.com"})
	assert.Equal(t, "Proper Name", got.Name)

	unchanged := m.Rewrite(element.Identity{Name: "Someone Else", Email: "other@example.com"})
	assert.Equal(t, "Someone Else", unchanged.Name)
}

func TestCommentsAndBlankLinesIgnored(t *testing.T) {
	m, err := Parse(strings.NewReader("# comment\n\nProper Name <p@e.com> <o@e.com>\n"))
	assert.NoError(t, err)
	got := m.Rewrite(element.Identity{Name: "x", Email: "o@e.com"})
	assert.Equal(t, "Proper Name", got.Name)
}
