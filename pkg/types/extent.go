package types

const (
	ExtentSize         Byte  = 12
	MaxExtents               = int(BlockSize / ExtentSize)
	MaxBlocksPerExtent Block = 8
	MaxFileSize              = Byte(MaxBlocksPerExtent) * BlockSize *
		Byte(MaxExtents)
)

// Extent maps the logical blocks [Logical, Logical+Len) of a file onto the
// physical blocks [Physical, Physical+Len).
type Extent struct {
	Logical  Block
	Len      Block
	Physical Block
}

func (e *Extent) Used() bool { return e.Physical != BlockNil }

func (e *Extent) End() Block { return e.Logical + e.Len }

func (e *Extent) Contains(logical Block) bool {
	return logical >= e.Logical && logical < e.End()
}
