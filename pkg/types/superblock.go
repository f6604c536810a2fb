package types

// Superblock is the in-memory copy of block 0. The metadata regions follow
// it back to back: inode store, inode bitmap, block bitmap. Data blocks start
// after the block bitmap.
type Superblock struct {
	Magic             uint32
	BlockCount        Block
	InodeCount        uint32
	InodeStoreBlocks  Block
	InodeBitmapBlocks Block
	BlockBitmapBlocks Block
	FreeInodes        uint32
	FreeBlocks        uint32
}

func (sb *Superblock) InodeStoreStart() Block { return SuperblockBlock + 1 }

func (sb *Superblock) InodeBitmapStart() Block {
	return sb.InodeStoreStart() + sb.InodeStoreBlocks
}

func (sb *Superblock) BlockBitmapStart() Block {
	return sb.InodeBitmapStart() + sb.InodeBitmapBlocks
}

// FirstDataBlock is the first block that isn't metadata.
func (sb *Superblock) FirstDataBlock() Block {
	return sb.BlockBitmapStart() + sb.BlockBitmapBlocks
}

// InodeLocation returns the inode-store block (relative to the start of the
// inode store) and the byte offset within it of the slot for `ino`.
func InodeLocation(ino Ino) (Block, Byte) {
	return Block(uint32(ino) / InodesPerBlock),
		Byte(uint32(ino)%InodesPerBlock) * InodeSize
}
