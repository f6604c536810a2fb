package encode

import (
	. "github.com/weberc2/extentfs/pkg/types"
)

func EncodeSuperblock(sb *Superblock, b *[BlockSize]byte) {
	p := b[:]
	for i := range p {
		p[i] = 0
	}
	putU32(p, sbMagicStart, sb.Magic)
	putBlock(p, sbBlockCountStart, sb.BlockCount)
	putU32(p, sbInodeCountStart, sb.InodeCount)
	putBlock(p, sbInodeStoreBlocksStart, sb.InodeStoreBlocks)
	putBlock(p, sbInodeBitmapBlocksStart, sb.InodeBitmapBlocks)
	putBlock(p, sbBlockBitmapBlocksStart, sb.BlockBitmapBlocks)
	putU32(p, sbFreeInodesStart, sb.FreeInodes)
	putU32(p, sbFreeBlocksStart, sb.FreeBlocks)
}

// DecodeSuperblock doesn't validate; see `super.Load`.
func DecodeSuperblock(sb *Superblock, b *[BlockSize]byte) {
	p := b[:]
	sb.Magic = getU32(p, sbMagicStart)
	sb.BlockCount = getBlock(p, sbBlockCountStart)
	sb.InodeCount = getU32(p, sbInodeCountStart)
	sb.InodeStoreBlocks = getBlock(p, sbInodeStoreBlocksStart)
	sb.InodeBitmapBlocks = getBlock(p, sbInodeBitmapBlocksStart)
	sb.BlockBitmapBlocks = getBlock(p, sbBlockBitmapBlocksStart)
	sb.FreeInodes = getU32(p, sbFreeInodesStart)
	sb.FreeBlocks = getU32(p, sbFreeBlocksStart)
}

const (
	sbMagicStart = 0
	sbMagicEnd   = sbMagicStart + 4

	sbBlockCountStart = sbMagicEnd
	sbBlockCountEnd   = sbBlockCountStart + BlockPointerSize

	sbInodeCountStart = sbBlockCountEnd
	sbInodeCountEnd   = sbInodeCountStart + 4

	sbInodeStoreBlocksStart = sbInodeCountEnd
	sbInodeStoreBlocksEnd   = sbInodeStoreBlocksStart + BlockPointerSize

	sbInodeBitmapBlocksStart = sbInodeStoreBlocksEnd
	sbInodeBitmapBlocksEnd   = sbInodeBitmapBlocksStart + BlockPointerSize

	sbBlockBitmapBlocksStart = sbInodeBitmapBlocksEnd
	sbBlockBitmapBlocksEnd   = sbBlockBitmapBlocksStart + BlockPointerSize

	sbFreeInodesStart = sbBlockBitmapBlocksEnd
	sbFreeInodesEnd   = sbFreeInodesStart + 4

	sbFreeBlocksStart = sbFreeInodesEnd
	sbFreeBlocksEnd   = sbFreeBlocksStart + 4

	SuperblockSize = sbFreeBlocksEnd
)
