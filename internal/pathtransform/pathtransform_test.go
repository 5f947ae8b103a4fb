package pathtransform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoFiltersKeepsEverything(t *testing.T) {
	tr, err := New(nil, Options{Inclusive: true})
	assert.NoError(t, err)
	path, keep := tr.Apply("anything/here.txt")
	assert.True(t, keep)
	assert.Equal(t, "anything/here.txt", path)
}

func TestSubdirectoryExtraction(t *testing.T) {
	specs := ExpandSubdirectoryFilter("guides/")
	tr, err := New(specs, Options{Inclusive: true})
	assert.NoError(t, err)

	path, keep := tr.Apply("guides/a.txt")
	assert.True(t, keep)
	assert.Equal(t, "a.txt", path)

	_, keep = tr.Apply("tools/b.c")
	assert.False(t, keep)
}

func TestToSubdirectoryFilter(t *testing.T) {
	specs := ExpandToSubdirectoryFilter("guides/")
	tr, err := New(specs, Options{Inclusive: true})
	assert.NoError(t, err)

	path, keep := tr.Apply("a.txt")
	assert.True(t, keep)
	assert.Equal(t, "guides/a.txt", path)
}

func TestLiteralRenameTrailingSlashMismatchIsConfigError(t *testing.T) {
	_, err := New([]RuleSpec{{Kind: Rename, Match: Literal, Value: "old/:new"}}, Options{Inclusive: true})
	assert.Error(t, err)
}

func TestGlobFilter(t *testing.T) {
	specs := []RuleSpec{{Kind: Filter, Match: Glob, Value: "*.go"}}
	tr, err := New(specs, Options{Inclusive: true})
	assert.NoError(t, err)

	_, keep := tr.Apply("main.go")
	assert.True(t, keep)
	_, keep = tr.Apply("main.txt")
	assert.False(t, keep)
}

func TestInvertedFilterExcludesMatches(t *testing.T) {
	specs := []RuleSpec{{Kind: Filter, Match: Literal, Value: "secret.txt"}}
	tr, err := New(specs, Options{Inclusive: false})
	assert.NoError(t, err)

	_, keep := tr.Apply("secret.txt")
	assert.False(t, keep)
	_, keep = tr.Apply("public.txt")
	assert.True(t, keep)
}

func TestUseBaseNameIncompatibleWithRename(t *testing.T) {
	specs := []RuleSpec{{Kind: Rename, Match: Literal, Value: "a:b"}}
	_, err := New(specs, Options{UseBaseName: true})
	assert.Error(t, err)
}
