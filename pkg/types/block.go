package types

// Block is a block number on the device. Block 0 always holds the superblock,
// so a zero block pointer doubles as "unset".
type Block uint32

// Byte is a byte count or byte offset.
type Byte int64

const (
	BlockSize        Byte  = 4096
	BlockPointerSize Byte  = 4
	BlockNil         Block = 0

	// SuperblockBlock is the fixed location of the superblock.
	SuperblockBlock Block = 0

	// SuperblockMagic identifies an extentfs volume.
	SuperblockMagic uint32 = 0xDEADCE11

	BitsPerBlock = uint32(BlockSize) * 8
)
