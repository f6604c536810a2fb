package fs

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/inode/store"
	. "github.com/weberc2/extentfs/pkg/types"
)

// Delete unlinks `name` from directory `parent`. Directories must be empty.
// Once the inode has no links left its blocks and inode number are released;
// its record is zeroed at the next Sync.
func (fs *FileSystem) Delete(parent Ino, name string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("deleting"); err != nil {
		return err
	}
	if err := fs.delete(parent, name); err != nil {
		return fmt.Errorf("deleting `%s` from dir `%d`: %w", name, parent, err)
	}
	return nil
}

// DeletePath deletes the final component of `path`.
func (fs *FileSystem) DeletePath(path string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("deleting"); err != nil {
		return err
	}
	dir, name, err := splitParent(path)
	if err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	parent, err := fs.lookupPath(dir)
	if err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	if err := fs.delete(parent, name); err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	return nil
}

func (fs *FileSystem) delete(parent Ino, name string) error {
	parentNode, err := fs.acquire(parent)
	if err != nil {
		return err
	}
	defer fs.release(parentNode)
	table, err := fs.dirTable(parentNode)
	if err != nil {
		return err
	}
	ino, err := table.Lookup(name)
	if err != nil {
		return err
	}
	node, err := fs.acquire(ino)
	if err != nil {
		return err
	}
	defer fs.release(node)

	isDir := node.IsDir()
	if isDir {
		children, err := fs.dirTable(node)
		if err != nil {
			return err
		}
		if children.Len() > 0 {
			return fmt.Errorf("directory `%d`: %w", ino, NotEmptyErr)
		}
		// an empty directory's second link is its own `.`
		node.LinksCount = 1
	}

	if node.LinksCount > 0 {
		node.LinksCount--
	}
	if node.LinksCount == 0 {
		if err := fs.releaseNode(node); err != nil {
			return err
		}
	} else {
		fs.touch(node)
	}

	if _, err := table.Remove(name); err != nil {
		return err
	}
	if isDir && parentNode.LinksCount > 2 {
		parentNode.LinksCount--
	}
	fs.touch(parentNode)
	return nil
}

// releaseNode frees the data blocks, then the extent-index or directory
// block, then the inode number, and drops the node from the cache.
func (fs *FileSystem) releaseNode(node *store.Node) error {
	switch node.FileType() {
	case FileTypeRegular:
		ix, err := fs.extentIndex(node)
		if err != nil {
			return err
		}
		if err := ix.Release(fs.volume); err != nil {
			return err
		}
	case FileTypeDir:
		// the table is empty and owns only its block
	}
	if node.Block != BlockNil {
		if err := fs.volume.ReleaseBlocks(node.Block, 1); err != nil {
			return fmt.Errorf("releasing block of inode `%d`: %w", node.Ino, err)
		}
	}
	if err := fs.volume.ReleaseInode(node.Ino); err != nil {
		return err
	}
	fs.released[node.Ino] = struct{}{}
	fs.cache.Forget(node)
	fs.logger.Debug("released inode", "ino", node.Ino, "type", node.FileType().String())
	return nil
}
