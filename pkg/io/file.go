package io

import (
	"fmt"
	"os"

	. "github.com/weberc2/extentfs/pkg/types"
)

var _ Device = (*FileDevice)(nil)

// FileDevice is a device backed by an image file.
type FileDevice struct {
	file   *os.File
	blocks Block
}

// CreateFile creates (or truncates) the image at `path` to hold `blocks`
// blocks.
func CreateFile(path string, blocks Block) (*FileDevice, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating image `%s`: %w", path, err)
	}
	if err := file.Truncate(int64(Byte(blocks) * BlockSize)); err != nil {
		file.Close()
		return nil, fmt.Errorf(
			"creating image `%s`: truncating to `%d` blocks: %w",
			path,
			blocks,
			err,
		)
	}
	return &FileDevice{file: file, blocks: blocks}, nil
}

// OpenFile opens an existing image. Trailing bytes that do not fill a whole
// block are ignored.
func OpenFile(path string) (*FileDevice, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening image `%s`: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("opening image `%s`: %w", path, err)
	}
	return &FileDevice{
		file:   file,
		blocks: Block(Byte(info.Size()) / BlockSize),
	}, nil
}

func (device *FileDevice) ReadBlock(block Block, p []byte) error {
	if err := checkBlock(block, device.blocks, BlockSize, p); err != nil {
		return err
	}
	if _, err := device.file.ReadAt(
		p,
		int64(Byte(block)*BlockSize),
	); err != nil {
		return fmt.Errorf(
			"reading file `%s` at block `%d`: %w",
			device.file.Name(),
			block,
			err,
		)
	}
	return nil
}

func (device *FileDevice) WriteBlock(block Block, p []byte) error {
	if err := checkBlock(block, device.blocks, BlockSize, p); err != nil {
		return err
	}
	if _, err := device.file.WriteAt(
		p,
		int64(Byte(block)*BlockSize),
	); err != nil {
		return fmt.Errorf(
			"writing file `%s` at block `%d`: %w",
			device.file.Name(),
			block,
			err,
		)
	}
	return nil
}

func (device *FileDevice) BlockSize() Byte { return BlockSize }

func (device *FileDevice) BlockCount() Block { return device.blocks }

func (device *FileDevice) Sync() error {
	if err := device.file.Sync(); err != nil {
		return fmt.Errorf("syncing file `%s`: %w", device.file.Name(), err)
	}
	return nil
}

func (device *FileDevice) Close() error {
	if err := device.file.Close(); err != nil {
		return fmt.Errorf("closing file `%s`: %w", device.file.Name(), err)
	}
	return nil
}
