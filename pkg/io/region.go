package io

import (
	"fmt"

	. "github.com/weberc2/extentfs/pkg/types"
)

// Region addresses the blocks [start, start+count) of an inner device as
// blocks [0, count).
type Region struct {
	inner Device
	start Block
	count Block
}

func NewRegion(inner Device, start, count Block) *Region {
	return &Region{inner: inner, start: start, count: count}
}

func (r *Region) Count() Block { return r.count }

func (r *Region) Start() Block { return r.start }

func (r *Region) ReadBlock(block Block, p []byte) error {
	if block >= r.count {
		return ErrBlockOutOfRange{Block: block, Count: r.count}
	}
	if err := r.inner.ReadBlock(r.start+block, p); err != nil {
		return fmt.Errorf(
			"reading region block `%d` from base block `%d`: %w",
			block,
			r.start,
			err,
		)
	}
	return nil
}

func (r *Region) WriteBlock(block Block, p []byte) error {
	if block >= r.count {
		return ErrBlockOutOfRange{Block: block, Count: r.count}
	}
	if err := r.inner.WriteBlock(r.start+block, p); err != nil {
		return fmt.Errorf(
			"writing region block `%d` from base block `%d`: %w",
			block,
			r.start,
			err,
		)
	}
	return nil
}

// ReadAll reads the whole region into one buffer.
func (r *Region) ReadAll() ([]byte, error) {
	out := make([]byte, Byte(r.count)*BlockSize)
	for i := Block(0); i < r.count; i++ {
		offset := Byte(i) * BlockSize
		if err := r.ReadBlock(i, out[offset:offset+BlockSize]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteAll writes `data` over the region, zero-padding the final block.
func (r *Region) WriteAll(data []byte) error {
	if Byte(len(data)) > Byte(r.count)*BlockSize {
		return fmt.Errorf(
			"writing `%d` bytes to a region of `%d` blocks: %w",
			len(data),
			r.count,
			InvalidArgumentErr,
		)
	}
	buf := make([]byte, BlockSize)
	for i := Block(0); i < r.count; i++ {
		offset := Byte(i) * BlockSize
		for j := range buf {
			buf[j] = 0
		}
		if offset < Byte(len(data)) {
			copy(buf, data[offset:])
		}
		if err := r.WriteBlock(i, buf); err != nil {
			return err
		}
	}
	return nil
}
