package encode

import (
	. "github.com/weberc2/extentfs/pkg/types"
)

// EncodeExtents writes a full extent index block. Unused trailing slots must
// be zero in `extents`.
func EncodeExtents(extents *[MaxExtents]Extent, b *[BlockSize]byte) {
	p := b[:]
	for i := range extents {
		start := Byte(i) * ExtentSize
		putBlock(p, start+extentLogicalStart, extents[i].Logical)
		putBlock(p, start+extentLenStart, extents[i].Len)
		putBlock(p, start+extentPhysicalStart, extents[i].Physical)
	}
	for i := Byte(MaxExtents) * ExtentSize; i < BlockSize; i++ {
		p[i] = 0
	}
}

func DecodeExtents(extents *[MaxExtents]Extent, b *[BlockSize]byte) {
	p := b[:]
	for i := range extents {
		start := Byte(i) * ExtentSize
		extents[i] = Extent{
			Logical:  getBlock(p, start+extentLogicalStart),
			Len:      getBlock(p, start+extentLenStart),
			Physical: getBlock(p, start+extentPhysicalStart),
		}
	}
}

const (
	extentLogicalStart = 0
	extentLogicalEnd   = extentLogicalStart + BlockPointerSize

	extentLenStart = extentLogicalEnd
	extentLenEnd   = extentLenStart + BlockPointerSize

	extentPhysicalStart = extentLenEnd
	extentPhysicalEnd   = extentPhysicalStart + BlockPointerSize

	_ uint = uint(ExtentSize - extentPhysicalEnd)
	_ uint = uint(extentPhysicalEnd - ExtentSize)
)
