package fs

import (
	"fmt"
	"io"

	"github.com/weberc2/extentfs/pkg/inode/store"
	. "github.com/weberc2/extentfs/pkg/types"
)

// File is an open regular file. Handles on the same inode share its cached
// node, so a write through one is visible through the others.
type File struct {
	fs     *FileSystem
	node   *store.Node
	closed bool
}

var (
	_ io.ReaderAt = (*File)(nil)
	_ io.WriterAt = (*File)(nil)
	_ io.Closer   = (*File)(nil)
)

// Open returns a handle on regular file `ino`.
func (fs *FileSystem) Open(ino Ino) (*File, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("opening"); err != nil {
		return nil, err
	}
	node, err := fs.acquire(ino)
	if err != nil {
		return nil, fmt.Errorf("opening inode `%d`: %w", ino, err)
	}
	if err := checkRegular(node); err != nil {
		fs.release(node)
		return nil, fmt.Errorf("opening inode `%d`: %w", ino, err)
	}
	return &File{fs: fs, node: node}, nil
}

// OpenPath opens the regular file at `path`.
func (fs *FileSystem) OpenPath(path string) (*File, error) {
	ino, err := fs.LookupPath(path)
	if err != nil {
		return nil, err
	}
	return fs.Open(ino)
}

func (f *File) Ino() Ino { return f.node.Ino }

// ReadAt reads like Read but returns io.EOF when it stops short of `len(p)`
// at the end of the file, including when `offset` is at or past the end.
func (f *File) ReadAt(p []byte, offset int64) (int, error) {
	f.fs.lock.RLock()
	defer f.fs.lock.RUnlock()
	if err := f.check("reading"); err != nil {
		return 0, err
	}
	if offset >= 0 && Byte(offset) >= f.node.Size {
		return 0, io.EOF
	}
	n, err := f.fs.read(f.node, Byte(offset), p)
	if err != nil {
		return n, fmt.Errorf(
			"reading inode `%d` at offset `%d`: %w",
			f.node.Ino,
			offset,
			err,
		)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *File) WriteAt(p []byte, offset int64) (int, error) {
	f.fs.lock.Lock()
	defer f.fs.lock.Unlock()
	if err := f.check("writing"); err != nil {
		return 0, err
	}
	n, err := f.fs.write(f.node, Byte(offset), p)
	if err != nil {
		return n, fmt.Errorf(
			"writing inode `%d` at offset `%d`: %w",
			f.node.Ino,
			offset,
			err,
		)
	}
	return n, nil
}

func (f *File) Truncate(size Byte) error {
	f.fs.lock.Lock()
	defer f.fs.lock.Unlock()
	if err := f.check("truncating"); err != nil {
		return err
	}
	if err := f.fs.truncate(f.node, size); err != nil {
		return fmt.Errorf("truncating inode `%d`: %w", f.node.Ino, err)
	}
	return nil
}

func (f *File) Stat() (Stat, error) {
	f.fs.lock.RLock()
	defer f.fs.lock.RUnlock()
	if err := f.check("stat"); err != nil {
		return Stat{}, err
	}
	return newStat(&f.node.Inode), nil
}

// Close releases the handle. Every later call, including Close, fails with
// `ClosedErr`.
func (f *File) Close() error {
	f.fs.lock.Lock()
	defer f.fs.lock.Unlock()
	if f.closed {
		return fmt.Errorf("closing inode `%d`: %w", f.node.Ino, ClosedErr)
	}
	f.closed = true
	if !f.fs.closed {
		f.fs.release(f.node)
	}
	return nil
}

func (f *File) check(op string) error {
	if f.closed || f.fs.closed {
		return fmt.Errorf("%s inode `%d`: %w", op, f.node.Ino, ClosedErr)
	}
	if f.node.Deleted {
		return fmt.Errorf("%s inode `%d`: %w", op, f.node.Ino, NotFoundErr)
	}
	return nil
}
