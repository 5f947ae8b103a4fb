package filetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndFindFile(t *testing.T) {
	n := NewNode("", false)
	n.AddFile("dir/sub/file.txt")
	assert.True(t, n.FindFile("dir/sub/file.txt"))
	assert.False(t, n.FindFile("dir/sub/other.txt"))
}

func TestDeleteFile(t *testing.T) {
	n := NewNode("", false)
	n.AddFile("a.txt")
	n.AddFile("dir/b.txt")
	n.DeleteFile("a.txt")
	assert.False(t, n.FindFile("a.txt"))
	assert.True(t, n.FindFile("dir/b.txt"))
}

func TestDeleteFileNotTrackedIsNoop(t *testing.T) {
	n := NewNode("", false)
	n.DeleteFile("missing.txt")
	assert.False(t, n.FindFile("missing.txt"))
}

func TestGetFilesUnderDirectory(t *testing.T) {
	n := NewNode("", false)
	n.AddFile("dir/a.txt")
	n.AddFile("dir/b.txt")
	n.AddFile("other/c.txt")

	files := n.GetFiles("dir")
	assert.ElementsMatch(t, []string{"dir/a.txt", "dir/b.txt"}, files)
}

func TestCaseInsensitiveMatching(t *testing.T) {
	n := NewNode("", true)
	n.AddFile("Dir/File.TXT")
	assert.True(t, n.FindFile("dir/file.txt"))
}
