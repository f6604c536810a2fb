package fs

import (
	"fmt"

	. "github.com/weberc2/extentfs/pkg/types"
)

// TreeNode is a detached snapshot of a directory tree. Children are ordered
// by directory slot.
type TreeNode struct {
	Name     string     `json:"name"`
	Ino      Ino        `json:"ino"`
	FileType FileType   `json:"fileType"`
	Size     Byte       `json:"size"`
	Children []TreeNode `json:"children,omitempty"`
}

// Tree snapshots the tree rooted at `ino`. The root node's name is empty.
func (fs *FileSystem) Tree(ino Ino) (TreeNode, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("building tree"); err != nil {
		return TreeNode{}, err
	}
	tree, err := fs.tree("", ino, make(map[Ino]struct{}))
	if err != nil {
		return TreeNode{}, fmt.Errorf("building tree at `%d`: %w", ino, err)
	}
	return tree, nil
}

// tree fails with `CorruptErr` when a directory shows up twice, since
// directories have exactly one parent.
func (fs *FileSystem) tree(
	name string,
	ino Ino,
	seen map[Ino]struct{},
) (TreeNode, error) {
	node, err := fs.acquire(ino)
	if err != nil {
		return TreeNode{}, err
	}
	defer fs.release(node)

	out := TreeNode{
		Name:     name,
		Ino:      ino,
		FileType: node.FileType(),
		Size:     node.Size,
	}
	if !node.IsDir() {
		return out, nil
	}
	if _, exists := seen[ino]; exists {
		return TreeNode{}, fmt.Errorf(
			"directory `%d` is linked more than once: %w",
			ino,
			CorruptErr,
		)
	}
	seen[ino] = struct{}{}
	table, err := fs.dirTable(node)
	if err != nil {
		return TreeNode{}, err
	}
	entries := table.Entries()
	out.Children = make([]TreeNode, 0, len(entries))
	for _, entry := range entries {
		child, err := fs.tree(entry.Name, entry.Ino, seen)
		if err != nil {
			return TreeNode{}, fmt.Errorf("entry `%s`: %w", entry.Name, err)
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}
