package io

import (
	. "github.com/weberc2/extentfs/pkg/types"
)

var _ Device = (*Buffer)(nil)

// Buffer is an in-memory device.
type Buffer struct {
	data []byte
}

func NewBuffer(blocks Block) *Buffer {
	return &Buffer{data: make([]byte, Byte(blocks)*BlockSize)}
}

// NewBufferFrom wraps `data`, which must be a whole number of blocks long.
func NewBufferFrom(data []byte) *Buffer {
	return &Buffer{data: data[:Byte(len(data))/BlockSize*BlockSize]}
}

func (b *Buffer) ReadBlock(block Block, p []byte) error {
	if err := checkBlock(block, b.BlockCount(), BlockSize, p); err != nil {
		return err
	}
	offset := Byte(block) * BlockSize
	copy(p, b.data[offset:offset+BlockSize])
	return nil
}

func (b *Buffer) WriteBlock(block Block, p []byte) error {
	if err := checkBlock(block, b.BlockCount(), BlockSize, p); err != nil {
		return err
	}
	offset := Byte(block) * BlockSize
	copy(b.data[offset:offset+BlockSize], p)
	return nil
}

func (b *Buffer) BlockSize() Byte { return BlockSize }

func (b *Buffer) BlockCount() Block { return Block(Byte(len(b.data)) / BlockSize) }

// Bytes returns the device contents. The slice aliases the device.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) Sync() error { return nil }

func (b *Buffer) Close() error { return nil }
