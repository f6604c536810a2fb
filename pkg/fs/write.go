package fs

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/extent"
	"github.com/weberc2/extentfs/pkg/inode/store"
	"github.com/weberc2/extentfs/pkg/math"
	. "github.com/weberc2/extentfs/pkg/types"
)

// Write copies `p` into the file at `offset`, allocating blocks as needed,
// and returns how many bytes it wrote. Data blocks go straight to the
// device; the inode and extent index are written at the next Sync. On error
// the bytes written so far remain and count towards the file size.
func (fs *FileSystem) Write(ino Ino, offset Byte, p []byte) (int, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("writing"); err != nil {
		return 0, err
	}
	node, err := fs.acquire(ino)
	if err != nil {
		return 0, fmt.Errorf("writing inode `%d`: %w", ino, err)
	}
	defer fs.release(node)
	n, err := fs.write(node, offset, p)
	if err != nil {
		return n, fmt.Errorf(
			"writing `%d` bytes to inode `%d` at offset `%d`: %w",
			len(p),
			ino,
			offset,
			err,
		)
	}
	return n, nil
}

func (fs *FileSystem) write(node *store.Node, offset Byte, p []byte) (int, error) {
	ix, err := fs.extentIndex(node)
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset > MaxFileSize || Byte(len(p)) > MaxFileSize-offset {
		return 0, fmt.Errorf(
			"range exceeds the maximum file size `%d`: %w",
			MaxFileSize,
			InvalidArgumentErr,
		)
	}
	if len(p) < 1 {
		return 0, nil
	}

	var (
		buf     [BlockSize]byte
		written int
	)
	for written < len(p) && err == nil {
		pos := offset + Byte(written)
		remaining := Byte(len(p) - written)
		want := Block(math.DivRoundUp(pos%BlockSize+remaining, BlockSize))

		var m extent.Mapping
		if m, err = ix.Map(Block(pos/BlockSize), want, fs.volume); err != nil {
			break
		}
		for i := Block(0); i < m.Len && written < len(p); i++ {
			pos = offset + Byte(written)
			within := pos % BlockSize
			chunk := int(math.Min(BlockSize-within, Byte(len(p)-written)))
			physical := m.Physical + i

			var block []byte
			if Byte(chunk) == BlockSize {
				block = p[written : written+chunk]
			} else {
				if m.Fresh {
					buf = [BlockSize]byte{}
				} else if err = fs.device.ReadBlock(physical, buf[:]); err != nil {
					break
				}
				copy(buf[within:], p[written:written+chunk])
				block = buf[:]
			}
			if err = fs.device.WriteBlock(physical, block); err != nil {
				break
			}
			written += chunk
		}
	}

	if end := offset + Byte(written); end > node.Size {
		node.Size = end
	}
	node.Blocks = 1 + uint32(ix.Blocks())
	if written > 0 {
		fs.touch(node)
	}
	return written, err
}

// Truncate sets the size of a regular file. Shrinking releases the blocks
// past the new end and zeroes the rest of the last block; growing only
// changes the size, leaving a hole.
func (fs *FileSystem) Truncate(ino Ino, size Byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := fs.checkOpen("truncating"); err != nil {
		return err
	}
	node, err := fs.acquire(ino)
	if err != nil {
		return fmt.Errorf("truncating inode `%d`: %w", ino, err)
	}
	defer fs.release(node)
	if err := fs.truncate(node, size); err != nil {
		return fmt.Errorf("truncating inode `%d` to `%d`: %w", ino, size, err)
	}
	return nil
}

func (fs *FileSystem) truncate(node *store.Node, size Byte) error {
	ix, err := fs.extentIndex(node)
	if err != nil {
		return err
	}
	if size < 0 || size > MaxFileSize {
		return fmt.Errorf(
			"size must be between 0 and `%d`: %w",
			MaxFileSize,
			InvalidArgumentErr,
		)
	}

	if size < node.Size {
		if err := ix.Truncate(
			Block(math.DivRoundUp(size, BlockSize)),
			fs.volume,
		); err != nil {
			return err
		}
		if within := size % BlockSize; within != 0 {
			if m, found := ix.Lookup(Block(size / BlockSize)); found {
				var buf [BlockSize]byte
				if err := fs.device.ReadBlock(m.Physical, buf[:]); err != nil {
					return err
				}
				clear(buf[within:])
				if err := fs.device.WriteBlock(m.Physical, buf[:]); err != nil {
					return err
				}
			}
		}
		node.Blocks = 1 + uint32(ix.Blocks())
	}
	node.Size = size
	fs.touch(node)
	return nil
}
