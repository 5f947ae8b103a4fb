package replacetext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBareLiteralUsesDefaultReplacement(t *testing.T) {
	tbl, err := Load(strings.NewReader("secret\n"))
	assert.NoError(t, err)
	assert.Equal(t, "***REMOVED*** is gone", string(tbl.Apply([]byte("secret is gone"))))
}

func TestLiteralWithExplicitReplacement(t *testing.T) {
	tbl, err := Load(strings.NewReader("foo==>bar\n"))
	assert.NoError(t, err)
	assert.Equal(t, "bar baz", string(tbl.Apply([]byte("foo baz"))))
}

func TestRegexRule(t *testing.T) {
	tbl, err := Load(strings.NewReader(`regex:[0-9]+==>N`))
	assert.NoError(t, err)
	assert.Equal(t, "issue N fixed", string(tbl.Apply([]byte("issue 42 fixed"))))
}

func TestLiteralsRunBeforeRegexes(t *testing.T) {
	tbl, err := Load(strings.NewReader("abc==>123\nregex:[0-9]+==>N\n"))
	assert.NoError(t, err)
	assert.Equal(t, "N", string(tbl.Apply([]byte("abc"))))
}
