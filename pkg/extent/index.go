// Package extent maps a regular file's logical blocks onto device blocks
// through a single block of extents.
package extent

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/encode"
	"github.com/weberc2/extentfs/pkg/io"
	"github.com/weberc2/extentfs/pkg/math"
	. "github.com/weberc2/extentfs/pkg/types"
)

// BlockAllocator hands out contiguous runs of at most `max` blocks.
type BlockAllocator interface {
	AllocBlocks(max Block) (start Block, n Block, err error)
}

// BlockReleaser returns blocks to the free pool.
type BlockReleaser interface {
	ReleaseBlocks(start, n Block) error
}

// Index is the in-memory copy of an extent index block. The used extents
// form a prefix of the table, in the order they were added.
type Index struct {
	extents [MaxExtents]Extent
	used    int
	device  io.Device
	block   Block
	dirty   bool
}

// New returns an empty index that will be stored at `block`.
func New(device io.Device, block Block) *Index {
	return &Index{device: device, block: block, dirty: true}
}

// Load reads the index stored at `block`. It fails with `CorruptErr` if an
// extent is empty or longer than `MaxBlocksPerExtent`, or if a used extent
// follows an unused slot.
func Load(device io.Device, block Block) (*Index, error) {
	var b [BlockSize]byte
	if err := device.ReadBlock(block, b[:]); err != nil {
		return nil, fmt.Errorf("loading extent index at block `%d`: %w", block, err)
	}
	ix := Index{device: device, block: block}
	encode.DecodeExtents(&ix.extents, &b)

	for ix.used < MaxExtents && ix.extents[ix.used].Used() {
		e := &ix.extents[ix.used]
		if e.Len < 1 || e.Len > MaxBlocksPerExtent {
			return nil, fmt.Errorf(
				"loading extent index at block `%d`: extent `%d` has length "+
					"`%d`: %w",
				block,
				ix.used,
				e.Len,
				CorruptErr,
			)
		}
		ix.used++
	}
	for i := ix.used; i < MaxExtents; i++ {
		if ix.extents[i] != (Extent{}) {
			return nil, fmt.Errorf(
				"loading extent index at block `%d`: slot `%d` follows the "+
					"end of the table: %w",
				block,
				i,
				CorruptErr,
			)
		}
	}
	return &ix, nil
}

// Block is where the index is stored.
func (ix *Index) Block() Block { return ix.block }

// Find returns the first slot that is either unused or contains `logical`,
// and whether it contains `logical`. The slot is -1 if the table is full and
// no extent contains `logical`.
func (ix *Index) Find(logical Block) (int, bool) {
	for i := range ix.extents {
		e := &ix.extents[i]
		if !e.Used() {
			return i, false
		}
		if e.Contains(logical) {
			return i, true
		}
	}
	return -1, false
}

// Mapping is a run of physical blocks backing consecutive logical blocks.
type Mapping struct {
	Physical Block
	Len      Block

	// Fresh is set when the blocks were allocated by this call and hold
	// whatever the device had there before.
	Fresh bool
}

// Lookup resolves `logical` without allocating. The mapping covers the rest
// of the containing extent.
func (ix *Index) Lookup(logical Block) (Mapping, bool) {
	slot, found := ix.Find(logical)
	if !found {
		return Mapping{}, false
	}
	e := &ix.extents[slot]
	return Mapping{
		Physical: e.Physical + (logical - e.Logical),
		Len:      e.End() - logical,
	}, true
}

// Map resolves `logical`, allocating a new extent of up to `want` blocks
// (capped at `MaxBlocksPerExtent`) if it's unmapped. The returned length
// never exceeds `want`. A new extent stops short of the next mapped logical
// block so extents never overlap.
func (ix *Index) Map(
	logical Block,
	want Block,
	allocator BlockAllocator,
) (Mapping, error) {
	if want < 1 {
		return Mapping{}, fmt.Errorf(
			"mapping `%d` blocks: %w",
			want,
			InvalidArgumentErr,
		)
	}
	if m, found := ix.Lookup(logical); found {
		m.Len = math.Min(m.Len, want)
		return m, nil
	}
	if ix.used >= MaxExtents {
		return Mapping{}, fmt.Errorf(
			"mapping logical block `%d`: %w",
			logical,
			IndexFullErr,
		)
	}

	n := math.Min(want, MaxBlocksPerExtent)
	for i := 0; i < ix.used; i++ {
		if start := ix.extents[i].Logical; start > logical {
			n = math.Min(n, start-logical)
		}
	}

	start, allocated, err := allocator.AllocBlocks(n)
	if err != nil {
		return Mapping{}, fmt.Errorf(
			"mapping logical block `%d`: %w",
			logical,
			err,
		)
	}
	ix.extents[ix.used] = Extent{
		Logical:  logical,
		Len:      allocated,
		Physical: start,
	}
	ix.used++
	ix.dirty = true
	return Mapping{Physical: start, Len: allocated, Fresh: true}, nil
}

// Truncate releases every block at or past logical block `blocks`, shrinking
// or dropping the extents that cover them.
func (ix *Index) Truncate(blocks Block, releaser BlockReleaser) error {
	kept := 0
	for i := 0; i < ix.used; i++ {
		e := ix.extents[i]
		switch {
		case e.Logical >= blocks:
			if err := releaser.ReleaseBlocks(e.Physical, e.Len); err != nil {
				return ix.truncateErr(blocks, err)
			}
			ix.dirty = true
			continue
		case e.End() > blocks:
			keep := blocks - e.Logical
			if err := releaser.ReleaseBlocks(
				e.Physical+keep,
				e.Len-keep,
			); err != nil {
				return ix.truncateErr(blocks, err)
			}
			e.Len = keep
			ix.dirty = true
		}
		ix.extents[kept] = e
		kept++
	}
	for i := kept; i < ix.used; i++ {
		ix.extents[i] = Extent{}
	}
	ix.used = kept
	return nil
}

func (ix *Index) truncateErr(blocks Block, err error) error {
	return fmt.Errorf(
		"truncating extent index at block `%d` to `%d` blocks: %w",
		ix.block,
		blocks,
		err,
	)
}

// Release frees every mapped block.
func (ix *Index) Release(releaser BlockReleaser) error {
	return ix.Truncate(0, releaser)
}

// Blocks counts the mapped blocks.
func (ix *Index) Blocks() Block {
	var n Block
	for i := 0; i < ix.used; i++ {
		n += ix.extents[i].Len
	}
	return n
}

// Physical returns a copy of the used extents.
func (ix *Index) Physical() []Extent {
	out := make([]Extent, ix.used)
	copy(out, ix.extents[:ix.used])
	return out
}

func (ix *Index) Len() int { return ix.used }

func (ix *Index) Dirty() bool { return ix.dirty }

func (ix *Index) Flush() error {
	if !ix.dirty {
		return nil
	}
	var b [BlockSize]byte
	encode.EncodeExtents(&ix.extents, &b)
	if err := ix.device.WriteBlock(ix.block, b[:]); err != nil {
		return fmt.Errorf("flushing extent index at block `%d`: %w", ix.block, err)
	}
	ix.dirty = false
	return nil
}
