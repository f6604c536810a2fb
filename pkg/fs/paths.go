package fs

import (
	"errors"
	"fmt"

	. "github.com/weberc2/extentfs/pkg/types"
)

// WriteFile replaces the contents of the regular file at `path`, creating it
// if it doesn't exist.
func (fs *FileSystem) WriteFile(path string, data []byte) (Ino, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("writing file"); err != nil {
		return InoNil, err
	}
	ino, err := fs.writeFile(path, data)
	if err != nil {
		return InoNil, fmt.Errorf("writing file `%s`: %w", path, err)
	}
	return ino, nil
}

func (fs *FileSystem) writeFile(path string, data []byte) (Ino, error) {
	ino, err := fs.lookupPath(path)
	if errors.Is(err, NotFoundErr) {
		ino, err = fs.createPath(path, FileTypeRegular)
	}
	if err != nil {
		return InoNil, err
	}

	node, err := fs.acquire(ino)
	if err != nil {
		return InoNil, err
	}
	defer fs.release(node)
	if err := fs.truncate(node, 0); err != nil {
		return InoNil, err
	}
	if _, err := fs.write(node, 0, data); err != nil {
		return InoNil, err
	}
	return ino, nil
}

// ReadFile returns the contents of the regular file at `path`.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	ino, err := fs.LookupPath(path)
	if err != nil {
		return nil, err
	}
	return fs.ReadAll(ino)
}
