package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/gitrewrite/internal/engine"
)

func TestUnmarshalDefaults(t *testing.T) {
	cfg, err := Unmarshal([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.PruneEmpty)
	assert.Equal(t, "auto", cfg.PruneDegenerate)
}

func TestUnmarshalRejectsBadPruneMode(t *testing.T) {
	_, err := Unmarshal([]byte("prune_empty: sometimes\n"))
	assert.Error(t, err)
}

func TestUnmarshalRejectsBadTagRename(t *testing.T) {
	_, err := Unmarshal([]byte("tag_rename: nocolon\n"))
	assert.Error(t, err)
}

func TestUnmarshalRejectsUseBaseNameWithRename(t *testing.T) {
	_, err := Unmarshal([]byte(`
use_base_name: true
paths:
  - kind: rename
    match: literal
    value: "old:new"
`))
	assert.Error(t, err)
}

func TestBuildCompilesPathRulesAndPruneModes(t *testing.T) {
	cfg, err := Unmarshal([]byte(`
prune_empty: always
prune_degenerate: never
tag_rename: "old:new"
max_blob_size: 1M
paths:
  - kind: subdirectory-filter
    value: sub/
`))
	require.NoError(t, err)

	opts, err := cfg.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, engine.PruneAlways, opts.PruneEmpty)
	assert.Equal(t, engine.PruneNever, opts.PruneDegenerate)
	assert.Equal(t, int64(1024*1024), opts.MaxBlobSize)
	require.NotNil(t, opts.TagRename)
	assert.Equal(t, "old", opts.TagRename.Old)
	assert.Equal(t, "new", opts.TagRename.New)
	require.NotNil(t, opts.Transform)

	kept, ok := opts.Transform.Apply("sub/file.txt")
	assert.True(t, ok)
	assert.Equal(t, "file.txt", kept)

	_, ok = opts.Transform.Apply("other/file.txt")
	assert.False(t, ok)
}

func TestParseByteSize(t *testing.T) {
	cases := map[string]int64{
		"":     0,
		"10":   10,
		"1K":   1024,
		"2M":   2 * 1024 * 1024,
		"1g":   1024 * 1024 * 1024,
	}
	for in, want := range cases {
		got, err := parseByteSize(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
