package fs

import (
	"errors"
	"fmt"
	"io"

	"github.com/weberc2/extentfs/pkg/directory"
	"github.com/weberc2/extentfs/pkg/inode/store"
	. "github.com/weberc2/extentfs/pkg/types"
)

// ReadDir lists directory `dir` in slot order, with each entry's file type.
func (fs *FileSystem) ReadDir(dir Ino) ([]directory.FileInfo, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("reading dir"); err != nil {
		return nil, err
	}
	infos, err := fs.readDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir `%d`: %w", dir, err)
	}
	return infos, nil
}

func (fs *FileSystem) readDir(dir Ino) ([]directory.FileInfo, error) {
	node, err := fs.acquire(dir)
	if err != nil {
		return nil, err
	}
	defer fs.release(node)
	table, err := fs.dirTable(node)
	if err != nil {
		return nil, err
	}

	infos := make([]directory.FileInfo, 0, table.Len())
	var (
		handle directory.Handle
		entry  DirEntry
	)
	for {
		if err := table.ReadNext(&handle, &entry); err != nil {
			if errors.Is(err, io.EOF) {
				return infos, nil
			}
			return nil, err
		}
		info, err := fs.fileInfo(&entry)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
}

func (fs *FileSystem) fileInfo(entry *DirEntry) (directory.FileInfo, error) {
	child, err := fs.acquire(entry.Ino)
	if err != nil {
		return directory.FileInfo{}, fmt.Errorf(
			"entry `%s`: %w",
			entry.Name,
			err,
		)
	}
	defer fs.release(child)
	return directory.FileInfo{
		Ino:      entry.Ino,
		FileType: child.FileType(),
		Name:     entry.Name,
	}, nil
}

// DirHandle iterates a directory one entry at a time. It keeps the directory
// node referenced until Close.
type DirHandle struct {
	fs     *FileSystem
	node   *store.Node
	handle directory.Handle
	closed bool
}

// OpenDir returns a handle positioned at slot `offset` of directory `dir`.
func (fs *FileSystem) OpenDir(dir Ino, offset int) (*DirHandle, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("opening dir"); err != nil {
		return nil, err
	}
	node, err := fs.acquire(dir)
	if err != nil {
		return nil, fmt.Errorf("opening dir `%d`: %w", dir, err)
	}
	if _, err := fs.dirTable(node); err != nil {
		fs.release(node)
		return nil, fmt.Errorf("opening dir `%d`: %w", dir, err)
	}
	return &DirHandle{fs: fs, node: node, handle: directory.At(offset)}, nil
}

// ReadNext fills `info` with the next entry and returns io.EOF after the
// last one.
func (h *DirHandle) ReadNext(info *directory.FileInfo) error {
	h.fs.lock.RLock()
	defer h.fs.lock.RUnlock()
	if err := h.check(); err != nil {
		return err
	}
	table, err := h.fs.dirTable(h.node)
	if err != nil {
		return err
	}
	var entry DirEntry
	if err := table.ReadNext(&h.handle, &entry); err != nil {
		return err
	}
	if *info, err = h.fs.fileInfo(&entry); err != nil {
		return fmt.Errorf("reading dir `%d`: %w", h.node.Ino, err)
	}
	return nil
}

// Offset is the slot the next ReadNext reads.
func (h *DirHandle) Offset() int { return h.handle.Offset }

func (h *DirHandle) Close() error {
	h.fs.lock.Lock()
	defer h.fs.lock.Unlock()
	if h.closed {
		return fmt.Errorf("closing dir `%d`: %w", h.node.Ino, ClosedErr)
	}
	h.closed = true
	if !h.fs.closed {
		h.fs.release(h.node)
	}
	return nil
}

func (h *DirHandle) check() error {
	if h.closed || h.fs.closed {
		return fmt.Errorf("dir `%d`: %w", h.node.Ino, ClosedErr)
	}
	if h.node.Deleted {
		return fmt.Errorf("dir `%d`: %w", h.node.Ino, NotFoundErr)
	}
	return nil
}
