package fs

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/directory"
	"github.com/weberc2/extentfs/pkg/extent"
	"github.com/weberc2/extentfs/pkg/inode/store"
	. "github.com/weberc2/extentfs/pkg/types"
)

// Create makes a regular file or directory named `name` in directory
// `parent`. Files get an empty extent index block and directories an empty
// entry block; nothing is left allocated if any step fails.
func (fs *FileSystem) Create(parent Ino, name string, ft FileType) (Ino, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("creating"); err != nil {
		return InoNil, err
	}
	ino, err := fs.create(parent, name, ft)
	if err != nil {
		return InoNil, fmt.Errorf(
			"creating `%s` in dir `%d`: %w",
			name,
			parent,
			err,
		)
	}
	return ino, nil
}

func (fs *FileSystem) create(parent Ino, name string, ft FileType) (Ino, error) {
	if ft != FileTypeRegular && ft != FileTypeDir {
		return InoNil, fmt.Errorf(
			"can't create a `%s`: %w",
			ft,
			InvalidArgumentErr,
		)
	}
	return fs.insertNew(parent, name, func(inode *Inode) (store.Payload, error) {
		block, _, err := fs.volume.AllocBlocks(1)
		if err != nil {
			return nil, err
		}
		inode.Block = block
		inode.Blocks = 1
		if ft == FileTypeDir {
			inode.Mode = NewMode(FileTypeDir, 0o755)
			inode.Size = BlockSize
			inode.LinksCount = 2
			return directory.New(fs.device, block), nil
		}
		inode.Mode = NewMode(FileTypeRegular, 0o644)
		return extent.New(fs.device, block), nil
	})
}

// Symlink makes a symbolic link named `name` in `parent` whose target is
// stored inline in the inode.
func (fs *FileSystem) Symlink(parent Ino, name, target string) (Ino, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("creating symlink"); err != nil {
		return InoNil, err
	}
	ino, err := fs.symlink(parent, name, target)
	if err != nil {
		return InoNil, fmt.Errorf(
			"creating symlink `%s` in dir `%d`: %w",
			name,
			parent,
			err,
		)
	}
	return ino, nil
}

func (fs *FileSystem) symlink(parent Ino, name, target string) (Ino, error) {
	if len(target) < 1 || len(target) > InlineDataSize {
		return InoNil, fmt.Errorf(
			"target must be between 1 and %d bytes: %w",
			InlineDataSize,
			InvalidArgumentErr,
		)
	}
	return fs.insertNew(parent, name, func(inode *Inode) (store.Payload, error) {
		inode.Mode = NewMode(FileTypeSymlink, 0o777)
		inode.Size = Byte(len(target))
		copy(inode.Data[:], target)
		return nil, nil
	})
}

// Readlink returns the target of a symbolic link.
func (fs *FileSystem) Readlink(ino Ino) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("reading link"); err != nil {
		return "", err
	}
	node, err := fs.acquire(ino)
	if err != nil {
		return "", fmt.Errorf("reading link `%d`: %w", ino, err)
	}
	defer fs.release(node)
	if node.FileType() != FileTypeSymlink {
		return "", fmt.Errorf(
			"reading link `%d`: not a symlink: %w",
			ino,
			InvalidArgumentErr,
		)
	}
	return string(node.Data[:min(node.Size, InlineDataSize)]), nil
}

// insertNew allocates an inode, lets `setup` fill in its type and allocate
// its block, and links it into `parent` as `name`. Every allocation is
// undone on failure.
func (fs *FileSystem) insertNew(
	parent Ino,
	name string,
	setup func(*Inode) (store.Payload, error),
) (Ino, error) {
	if err := directory.ValidateName(name); err != nil {
		return InoNil, err
	}
	parentNode, err := fs.acquire(parent)
	if err != nil {
		return InoNil, err
	}
	defer fs.release(parentNode)
	table, err := fs.dirTable(parentNode)
	if err != nil {
		return InoNil, err
	}
	if _, err := table.Lookup(name); err == nil {
		return InoNil, AlreadyExistsErr
	}
	if table.Len() >= MaxSubfiles {
		return InoNil, DirFullErr
	}

	ino, err := fs.volume.AllocInode()
	if err != nil {
		return InoNil, err
	}
	now := Timestamp(fs.now())
	inode := Inode{
		Ino:        ino,
		UID:        fs.uid,
		GID:        fs.gid,
		LinksCount: 1,
		ATime:      now,
		MTime:      now,
		CTime:      now,
	}
	payload, err := setup(&inode)
	if err != nil {
		return InoNil, fs.undoInode(ino, err)
	}

	if err := table.Insert(name, ino); err != nil {
		if inode.Block != BlockNil {
			if undoErr := fs.volume.ReleaseBlocks(inode.Block, 1); undoErr != nil {
				return InoNil, fmt.Errorf("%w (undoing: %v)", err, undoErr)
			}
		}
		return InoNil, fs.undoInode(ino, err)
	}

	node := fs.cache.Insert(&inode)
	if payload != nil {
		node.SetPayload(payload)
	}
	fs.release(node)

	if inode.IsDir() {
		parentNode.LinksCount++
	}
	fs.touch(parentNode)
	return ino, nil
}

func (fs *FileSystem) undoInode(ino Ino, err error) error {
	if undoErr := fs.volume.ReleaseInode(ino); undoErr != nil {
		return fmt.Errorf("%w (undoing: %v)", err, undoErr)
	}
	return err
}

// CreatePath creates the final component of `path` in its parent directory.
func (fs *FileSystem) CreatePath(path string, ft FileType) (Ino, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("creating"); err != nil {
		return InoNil, err
	}
	ino, err := fs.createPath(path, ft)
	if err != nil {
		return InoNil, fmt.Errorf("creating `%s`: %w", path, err)
	}
	return ino, nil
}

func (fs *FileSystem) createPath(path string, ft FileType) (Ino, error) {
	dir, name, err := splitParent(path)
	if err != nil {
		return InoNil, err
	}
	parent, err := fs.lookupPath(dir)
	if err != nil {
		return InoNil, err
	}
	return fs.create(parent, name, ft)
}

// SymlinkPath creates a symbolic link at `path`.
func (fs *FileSystem) SymlinkPath(path, target string) (Ino, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("creating symlink"); err != nil {
		return InoNil, err
	}
	dir, name, err := splitParent(path)
	if err != nil {
		return InoNil, fmt.Errorf("creating symlink `%s`: %w", path, err)
	}
	parent, err := fs.lookupPath(dir)
	if err != nil {
		return InoNil, fmt.Errorf("creating symlink `%s`: %w", path, err)
	}
	ino, err := fs.symlink(parent, name, target)
	if err != nil {
		return InoNil, fmt.Errorf("creating symlink `%s`: %w", path, err)
	}
	return ino, nil
}
