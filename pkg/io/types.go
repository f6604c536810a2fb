// Package io defines the fixed-size block device the engine runs on and the
// devices it ships with.
package io

import (
	"fmt"

	. "github.com/weberc2/extentfs/pkg/types"
)

// Device reads and writes whole blocks. `p` must be exactly `BlockSize()`
// bytes long.
type Device interface {
	ReadBlock(block Block, p []byte) error
	WriteBlock(block Block, p []byte) error
	BlockSize() Byte
	BlockCount() Block
	Sync() error
	Close() error
}

type ErrBlockOutOfRange struct {
	Block Block
	Count Block
}

func (err ErrBlockOutOfRange) Error() string {
	return fmt.Sprintf(
		"block `%d` is out of range (device has `%d` blocks)",
		err.Block,
		err.Count,
	)
}

func (err ErrBlockOutOfRange) Is(target error) bool {
	return target == InvalidArgumentErr
}

func checkBlock(block, count Block, size Byte, p []byte) error {
	if block >= count {
		return ErrBlockOutOfRange{Block: block, Count: count}
	}
	if Byte(len(p)) != size {
		return fmt.Errorf(
			"buffer of `%d` bytes for block `%d` (block size `%d`): %w",
			len(p),
			block,
			size,
			InvalidArgumentErr,
		)
	}
	return nil
}
