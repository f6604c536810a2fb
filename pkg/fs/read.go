package fs

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/inode/store"
	"github.com/weberc2/extentfs/pkg/math"
	. "github.com/weberc2/extentfs/pkg/types"
)

// Read copies file bytes starting at `offset` into `p`, stopping at the end
// of the file, and returns how many it copied. Reading an unmapped block
// fails with `HoleReadErr`. Reads don't update the access time.
func (fs *FileSystem) Read(ino Ino, offset Byte, p []byte) (int, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("reading"); err != nil {
		return 0, err
	}
	node, err := fs.acquire(ino)
	if err != nil {
		return 0, fmt.Errorf("reading inode `%d`: %w", ino, err)
	}
	defer fs.release(node)
	n, err := fs.read(node, offset, p)
	if err != nil {
		return n, fmt.Errorf(
			"reading inode `%d` at offset `%d`: %w",
			ino,
			offset,
			err,
		)
	}
	return n, nil
}

func (fs *FileSystem) read(node *store.Node, offset Byte, p []byte) (int, error) {
	ix, err := fs.extentIndex(node)
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset > node.Size {
		return 0, fmt.Errorf(
			"offset `%d` outside file of `%d` bytes: %w",
			offset,
			node.Size,
			InvalidArgumentErr,
		)
	}

	n := int(math.Min(Byte(len(p)), node.Size-offset))
	var buf [BlockSize]byte
	for read := 0; read < n; {
		pos := offset + Byte(read)
		logical := Block(pos / BlockSize)
		m, found := ix.Lookup(logical)
		if !found {
			return read, fmt.Errorf("logical block `%d`: %w", logical, HoleReadErr)
		}
		if err := fs.device.ReadBlock(m.Physical, buf[:]); err != nil {
			return read, err
		}
		read += copy(p[read:n], buf[pos%BlockSize:])
	}
	return n, nil
}

// ReadAll returns the whole contents of a regular file.
func (fs *FileSystem) ReadAll(ino Ino) ([]byte, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("reading"); err != nil {
		return nil, err
	}
	node, err := fs.acquire(ino)
	if err != nil {
		return nil, fmt.Errorf("reading inode `%d`: %w", ino, err)
	}
	defer fs.release(node)
	if err := checkRegular(node); err != nil {
		return nil, fmt.Errorf("reading inode `%d`: %w", ino, err)
	}
	data := make([]byte, node.Size)
	if _, err := fs.read(node, 0, data); err != nil {
		return nil, fmt.Errorf("reading inode `%d`: %w", ino, err)
	}
	return data, nil
}
