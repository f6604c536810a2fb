package fs

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/directory"
	"github.com/weberc2/extentfs/pkg/extent"
	"github.com/weberc2/extentfs/pkg/inode/store"
	. "github.com/weberc2/extentfs/pkg/types"
)

// acquire returns the shared node for an allocated inode. Callers release it.
func (fs *FileSystem) acquire(ino Ino) (*store.Node, error) {
	if !fs.volume.IsInodeAllocated(ino) {
		return nil, fmt.Errorf("inode `%d`: %w", ino, NotFoundErr)
	}
	node, err := fs.cache.Acquire(ino)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (fs *FileSystem) release(node *store.Node) { fs.cache.Release(node) }

func (fs *FileSystem) dirTable(node *store.Node) (*directory.Table, error) {
	if !node.IsDir() {
		return nil, fmt.Errorf("inode `%d`: %w", node.Ino, NotDirErr)
	}
	payload, err := node.Payload(func(inode *Inode) (store.Payload, error) {
		return directory.Load(fs.device, inode.Block)
	})
	if err != nil {
		return nil, fmt.Errorf("loading directory `%d`: %w", node.Ino, err)
	}
	return payload.(*directory.Table), nil
}

func (fs *FileSystem) extentIndex(node *store.Node) (*extent.Index, error) {
	if err := checkRegular(node); err != nil {
		return nil, err
	}
	payload, err := node.Payload(func(inode *Inode) (store.Payload, error) {
		return extent.Load(fs.device, inode.Block)
	})
	if err != nil {
		return nil, fmt.Errorf("loading extent index of `%d`: %w", node.Ino, err)
	}
	return payload.(*extent.Index), nil
}

func checkRegular(node *store.Node) error {
	switch node.FileType() {
	case FileTypeRegular:
		return nil
	case FileTypeDir:
		return fmt.Errorf("inode `%d`: %w", node.Ino, IsDirErr)
	default:
		return fmt.Errorf(
			"inode `%d` is a `%s`, not a regular file: %w",
			node.Ino,
			node.FileType(),
			InvalidArgumentErr,
		)
	}
}

// touch updates the modification and change times and marks the node dirty.
func (fs *FileSystem) touch(node *store.Node) {
	node.Touch(fs.now())
	node.MarkDirty()
}
