package fastexport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadBlobThenCommit(t *testing.T) {
	input := `blob
mark :1
data 9
contents

reset refs/heads/main
commit refs/heads/main
mark :2
author Robert Cowham <rcowham@perforce.com> 1680784555 +0100
committer Robert Cowham <rcowham@perforce.com> 1680784555 +0100
data 8
initial
M 100644 :1 src/file1.txt
`
	r := NewReader(strings.NewReader(input))

	el, err := r.ReadElement()
	assert.NoError(t, err)
	assert.Equal(t, KindBlob, el.Kind)
	assert.Equal(t, 1, el.Blob.Mark)
	assert.Equal(t, "contents\n", string(el.Blob.Data))

	el, err = r.ReadElement()
	assert.NoError(t, err)
	assert.Equal(t, KindReset, el.Kind)
	assert.Equal(t, "refs/heads/main", el.Reset.Ref)

	el, err = r.ReadElement()
	assert.NoError(t, err)
	assert.Equal(t, KindCommit, el.Kind)
	assert.Equal(t, 2, el.Commit.Mark)
	assert.Equal(t, "initial\n", string(el.Commit.Message))
	assert.Len(t, el.Commit.FileChanges, 1)
	assert.Equal(t, "src/file1.txt", string(el.Commit.FileChanges[0].Path))

	_, err = r.ReadElement()
	assert.Equal(t, io.EOF, err)
}

func TestGetMarkInInputIsFatal(t *testing.T) {
	r := NewReader(strings.NewReader("get-mark :1\n"))
	_, err := r.ReadElement()
	assert.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestCommitWithMergeParents(t *testing.T) {
	input := `commit refs/heads/main
mark :3
committer A <a@b.com> 1 +0000
data 2
m1
from :1
merge :2
`
	r := NewReader(strings.NewReader(input))
	el, err := r.ReadElement()
	assert.NoError(t, err)
	assert.True(t, el.Commit.HasFrom)
	assert.Len(t, el.Commit.Parents, 2)
	assert.Equal(t, 1, el.Commit.Parents[0].Mark)
	assert.Equal(t, 2, el.Commit.Parents[1].Mark)
}
