// Package super owns block 0 and the two free-space bitmaps that follow the
// inode store.
package super

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/math"
	. "github.com/weberc2/extentfs/pkg/types"
)

// Geometry is the size of every region of a volume of a given block count.
type Geometry struct {
	Blocks            Block
	Inodes            uint32
	InodeStoreBlocks  Block
	InodeBitmapBlocks Block
	BlockBitmapBlocks Block
}

// NewGeometry sizes a volume of `blocks` blocks with one inode per block,
// rounded up to fill the last inode-store block.
func NewGeometry(blocks Block) (Geometry, error) {
	inodes := math.RoundUp(uint32(blocks), InodesPerBlock)
	g := Geometry{
		Blocks:            blocks,
		Inodes:            inodes,
		InodeStoreBlocks:  Block(math.DivRoundUp(inodes, InodesPerBlock)),
		InodeBitmapBlocks: Block(math.DivRoundUp(inodes, BitsPerBlock)),
		BlockBitmapBlocks: Block(math.DivRoundUp(uint32(blocks), BitsPerBlock)),
	}

	// room for the root directory block and at least one data block
	if need := g.FirstDataBlock() + 2; blocks < need {
		return Geometry{}, fmt.Errorf(
			"sizing volume of `%d` blocks: need at least `%d`: %w",
			blocks,
			need,
			InvalidArgumentErr,
		)
	}
	return g, nil
}

func (g *Geometry) FirstDataBlock() Block {
	return SuperblockBlock + 1 +
		g.InodeStoreBlocks +
		g.InodeBitmapBlocks +
		g.BlockBitmapBlocks
}

// Superblock returns the superblock of a freshly formatted volume: inode 0
// and every metadata block used.
func (g *Geometry) Superblock() Superblock {
	return Superblock{
		Magic:             SuperblockMagic,
		BlockCount:        g.Blocks,
		InodeCount:        g.Inodes,
		InodeStoreBlocks:  g.InodeStoreBlocks,
		InodeBitmapBlocks: g.InodeBitmapBlocks,
		BlockBitmapBlocks: g.BlockBitmapBlocks,
		FreeInodes:        g.Inodes - 1,
		FreeBlocks:        uint32(g.Blocks - g.FirstDataBlock()),
	}
}
