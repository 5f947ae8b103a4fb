// Package filetree tracks the current file layout of one branch as
// the rewrite engine processes its commits in order, so file-change
// anomalies that rewriting can introduce or expose — most commonly a
// Delete of a path that the rewritten history no longer has, because
// its Modify was dropped by path filtering or a collision resolution —
// can be caught and suppressed rather than handed to the importer,
// which would reject them.
package filetree

import "strings"

// Node is one directory level of a branch's tracked tree; the root
// node (empty Name, empty Path) represents the branch itself.
type Node struct {
	Name            string
	Path            string
	IsFile          bool
	CaseInsensitive bool
	Children        []*Node
}

func NewNode(name string, caseInsensitive bool) *Node {
	return &Node{Name: name, CaseInsensitive: caseInsensitive}
}

func (n *Node) stringEqual(s1, s2 string) bool {
	if n.CaseInsensitive {
		return len(s1) == len(s2) && strings.EqualFold(s1, s2)
	}
	return len(s1) == len(s2) && s1 == s2
}

// AddFile records path as present, creating any intermediate
// directory nodes it needs.
func (n *Node) AddFile(path string) {
	n.addSubFile(path, path)
}

func (n *Node) addSubFile(fullPath string, subPath string) {
	parts := strings.Split(subPath, "/")
	if len(parts) == 1 {
		for _, c := range n.Children {
			if n.stringEqual(c.Name, parts[0]) {
				return // already tracked
			}
		}
		n.Children = append(n.Children, &Node{Name: parts[0], IsFile: true, Path: fullPath, CaseInsensitive: n.CaseInsensitive})
		return
	}
	for _, c := range n.Children {
		if n.stringEqual(c.Name, parts[0]) {
			c.addSubFile(fullPath, strings.Join(parts[1:], "/"))
			return
		}
	}
	child := NewNode(parts[0], n.CaseInsensitive)
	n.Children = append(n.Children, child)
	child.addSubFile(fullPath, strings.Join(parts[1:], "/"))
}

// DeleteFile removes path, if tracked; a path not currently tracked is
// a no-op (the caller decides what that implies).
func (n *Node) DeleteFile(path string) {
	n.deleteSubFile(path)
}

func (n *Node) deleteSubFile(subPath string) {
	parts := strings.Split(subPath, "/")
	if len(parts) == 1 {
		for i, c := range n.Children {
			if n.stringEqual(c.Name, parts[0]) {
				n.Children[i] = n.Children[len(n.Children)-1]
				n.Children = n.Children[:len(n.Children)-1]
				return
			}
		}
		return
	}
	for _, c := range n.Children {
		if n.stringEqual(c.Name, parts[0]) {
			c.deleteSubFile(strings.Join(parts[1:], "/"))
			return
		}
	}
}

func (n *Node) getChildFiles() []string {
	var files []string
	for _, c := range n.Children {
		if c.IsFile {
			files = append(files, c.Path)
		} else {
			files = append(files, c.getChildFiles()...)
		}
	}
	return files
}

// GetFiles returns every tracked file at or under dirName ("" for the
// whole tree).
func (n *Node) GetFiles(dirName string) []string {
	if n.Name == "" && dirName == "" {
		return n.getChildFiles()
	}
	parts := strings.Split(dirName, "/")
	if len(parts) == 1 {
		var files []string
		for _, c := range n.Children {
			if n.stringEqual(c.Name, parts[0]) {
				if c.IsFile {
					files = append(files, c.Path)
				} else {
					files = append(files, c.getChildFiles()...)
				}
			}
		}
		return files
	}
	for _, c := range n.Children {
		if n.stringEqual(c.Name, parts[0]) {
			return c.GetFiles(strings.Join(parts[1:], "/"))
		}
	}
	return nil
}

// FindFile reports whether fileName is currently tracked.
func (n *Node) FindFile(fileName string) bool {
	parts := strings.Split(fileName, "/")
	dir := ""
	if len(parts) > 1 {
		dir = strings.Join(parts[:len(parts)-1], "/")
	}
	for _, f := range n.GetFiles(dir) {
		if n.stringEqual(f, fileName) {
			return true
		}
	}
	return false
}
