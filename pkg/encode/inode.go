package encode

import (
	"fmt"

	. "github.com/weberc2/extentfs/pkg/types"
)

// EncodeInode writes the on-disk record for `inode`. The record carries no
// inode number; the slot position implies it.
func EncodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]
	putU32(p, inodeModeStart, uint32(inode.Mode))
	putU32(p, inodeUIDStart, inode.UID)
	putU32(p, inodeGIDStart, inode.GID)
	putU32(p, inodeSizeStart, uint32(inode.Size))
	putU32(p, inodeCTimeStart, inode.CTime)
	putU32(p, inodeATimeStart, inode.ATime)
	putU32(p, inodeMTimeStart, inode.MTime)
	putU32(p, inodeBlocksStart, inode.Blocks)
	putU32(p, inodeLinksCountStart, inode.LinksCount)
	putBlock(p, inodeBlockStart, inode.Block)
	copy(p[inodeDataStart:inodeDataEnd], inode.Data[:])
}

// DecodeInode fails with `CorruptErr` if the mode doesn't name a file type
// the engine creates. Callers only decode allocated slots.
func DecodeInode(inode *Inode, b *[InodeSize]byte) error {
	p := b[:]

	// validate before touching `inode` so that it's left intact on error
	mode := Mode(getU32(p, inodeModeStart))
	if err := mode.FileType().Validate(); err != nil {
		return fmt.Errorf(
			"decoding inode `%d`: mode `%#o`: %w",
			inode.Ino,
			uint32(mode),
			CorruptErr,
		)
	}
	size := Byte(getU32(p, inodeSizeStart))
	if size > MaxFileSize {
		return fmt.Errorf(
			"decoding inode `%d`: size `%d` exceeds maximum: %w",
			inode.Ino,
			size,
			CorruptErr,
		)
	}

	inode.Mode = mode
	inode.UID = getU32(p, inodeUIDStart)
	inode.GID = getU32(p, inodeGIDStart)
	inode.Size = size
	inode.CTime = getU32(p, inodeCTimeStart)
	inode.ATime = getU32(p, inodeATimeStart)
	inode.MTime = getU32(p, inodeMTimeStart)
	inode.Blocks = getU32(p, inodeBlocksStart)
	inode.LinksCount = getU32(p, inodeLinksCountStart)
	inode.Block = getBlock(p, inodeBlockStart)
	copy(inode.Data[:], p[inodeDataStart:inodeDataEnd])
	return nil
}

const (
	inodeModeStart = 0
	inodeModeEnd   = inodeModeStart + 4

	inodeUIDStart = inodeModeEnd
	inodeUIDEnd   = inodeUIDStart + 4

	inodeGIDStart = inodeUIDEnd
	inodeGIDEnd   = inodeGIDStart + 4

	inodeSizeStart = inodeGIDEnd
	inodeSizeEnd   = inodeSizeStart + 4

	inodeCTimeStart = inodeSizeEnd
	inodeCTimeEnd   = inodeCTimeStart + 4

	inodeATimeStart = inodeCTimeEnd
	inodeATimeEnd   = inodeATimeStart + 4

	inodeMTimeStart = inodeATimeEnd
	inodeMTimeEnd   = inodeMTimeStart + 4

	inodeBlocksStart = inodeMTimeEnd
	inodeBlocksEnd   = inodeBlocksStart + 4

	inodeLinksCountStart = inodeBlocksEnd
	inodeLinksCountEnd   = inodeLinksCountStart + 4

	inodeBlockStart = inodeLinksCountEnd
	inodeBlockEnd   = inodeBlockStart + BlockPointerSize

	inodeDataStart = inodeBlockEnd
	inodeDataEnd   = inodeDataStart + InlineDataSize

	// the record must fill exactly one `InodeSize` slot
	_ uint = uint(InodeSize - inodeDataEnd)
	_ uint = uint(inodeDataEnd - InodeSize)
)
