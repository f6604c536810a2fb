package super

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/alloc"
	"github.com/weberc2/extentfs/pkg/alloc/store"
	"github.com/weberc2/extentfs/pkg/encode"
	"github.com/weberc2/extentfs/pkg/io"
	. "github.com/weberc2/extentfs/pkg/types"
)

// Volume is the mounted superblock and bitmaps. Allocation updates a bitmap
// bit and the paired free count together; both reach the device at Flush.
type Volume struct {
	Superblock
	Inodes *alloc.FlushableBitmap
	Blocks *alloc.FlushableBitmap

	device io.Device
	dirty  bool
}

// Load reads and validates the superblock. It never writes.
func Load(device io.Device) (*Superblock, error) {
	if device.BlockSize() != BlockSize {
		return nil, fmt.Errorf(
			"loading superblock: device block size `%d`: %w",
			device.BlockSize(),
			InvalidArgumentErr,
		)
	}
	var b [BlockSize]byte
	if err := device.ReadBlock(SuperblockBlock, b[:]); err != nil {
		return nil, fmt.Errorf("loading superblock: %w", err)
	}
	var sb Superblock
	encode.DecodeSuperblock(&sb, &b)
	if err := validate(&sb, device.BlockCount()); err != nil {
		return nil, fmt.Errorf("loading superblock: %w", err)
	}
	return &sb, nil
}

func validate(sb *Superblock, deviceBlocks Block) error {
	if sb.Magic != SuperblockMagic {
		return ErrBadMagic{Found: sb.Magic}
	}
	for _, check := range []struct {
		field string
		limit uint64
		value uint64
	}{
		{"block count", uint64(deviceBlocks), uint64(sb.BlockCount)},
		{"free inodes", uint64(sb.InodeCount), uint64(sb.FreeInodes)},
		{"free blocks", uint64(sb.BlockCount), uint64(sb.FreeBlocks)},
		{
			"first data block",
			uint64(sb.BlockCount),
			uint64(sb.InodeStoreStart()) + uint64(sb.InodeStoreBlocks) +
				uint64(sb.InodeBitmapBlocks) + uint64(sb.BlockBitmapBlocks),
		},
		{
			"inode count",
			uint64(sb.InodeStoreBlocks) * uint64(InodesPerBlock),
			uint64(sb.InodeCount),
		},
		{
			"inode count",
			uint64(sb.InodeBitmapBlocks) * uint64(BitsPerBlock),
			uint64(sb.InodeCount),
		},
		{
			"block count",
			uint64(sb.BlockBitmapBlocks) * uint64(BitsPerBlock),
			uint64(sb.BlockCount),
		},
	} {
		if check.value > check.limit {
			return ErrInconsistent{
				Field:  check.field,
				Wanted: check.limit,
				Found:  check.value,
			}
		}
	}
	if sb.InodeCount < 1 {
		return ErrInconsistent{Field: "inode count", Wanted: 1}
	}
	return nil
}

// Open loads the superblock and both bitmaps, verifying that each bitmap's
// population matches its free count. It never writes.
func Open(device io.Device) (*Volume, error) {
	sb, err := Load(device)
	if err != nil {
		return nil, err
	}
	v := newVolume(device, sb)

	inodes, err := loadBitmap(v.inodeBitmapRegion(), sb.InodeCount)
	if err != nil {
		return nil, fmt.Errorf("loading inode bitmap: %w", err)
	}
	blocks, err := loadBitmap(v.blockBitmapRegion(), uint32(sb.BlockCount))
	if err != nil {
		return nil, fmt.Errorf("loading block bitmap: %w", err)
	}

	if used := inodes.Used(); used != sb.InodeCount-sb.FreeInodes {
		return nil, fmt.Errorf(
			"loading inode bitmap: %w",
			ErrInconsistent{
				Field:  "used inodes",
				Wanted: uint64(sb.InodeCount - sb.FreeInodes),
				Found:  uint64(used),
			},
		)
	}
	if used := blocks.Used(); used != uint32(sb.BlockCount)-sb.FreeBlocks {
		return nil, fmt.Errorf(
			"loading block bitmap: %w",
			ErrInconsistent{
				Field:  "used blocks",
				Wanted: uint64(uint32(sb.BlockCount) - sb.FreeBlocks),
				Found:  uint64(used),
			},
		)
	}
	if inodes.IsFree(uint32(InoRoot)) {
		return nil, fmt.Errorf(
			"loading inode bitmap: root inode is free: %w",
			CorruptErr,
		)
	}
	for b := Block(0); b < sb.FirstDataBlock(); b++ {
		if blocks.IsFree(uint32(b)) {
			return nil, fmt.Errorf(
				"loading block bitmap: metadata block `%d` is free: %w",
				b,
				CorruptErr,
			)
		}
	}

	v.Inodes = alloc.NewFlushable(
		inodes,
		store.NewRegionBitmapStore(v.inodeBitmapRegion()),
	)
	v.Blocks = alloc.NewFlushable(
		blocks,
		store.NewRegionBitmapStore(v.blockBitmapRegion()),
	)
	return v, nil
}

func loadBitmap(region *io.Region, size uint32) (alloc.Bitmap, error) {
	data, err := region.ReadAll()
	if err != nil {
		return alloc.Bitmap{}, err
	}
	return alloc.Load(data, size)
}

// Format writes an empty volume of geometry `g`: a zeroed inode store, inode
// 0 and the metadata blocks marked used, and the matching counts.
func Format(device io.Device, g Geometry) (*Volume, error) {
	if device.BlockSize() != BlockSize || device.BlockCount() < g.Blocks {
		return nil, fmt.Errorf(
			"formatting `%d` blocks on a device of `%d` `%d`-byte blocks: %w",
			g.Blocks,
			device.BlockCount(),
			device.BlockSize(),
			InvalidArgumentErr,
		)
	}
	sb := g.Superblock()
	v := newVolume(device, &sb)

	if err := io.NewRegion(
		device,
		sb.InodeStoreStart(),
		sb.InodeStoreBlocks,
	).WriteAll(nil); err != nil {
		return nil, fmt.Errorf("formatting: zeroing inode store: %w", err)
	}

	v.Inodes = alloc.NewFlushable(
		alloc.New(sb.InodeCount),
		store.NewRegionBitmapStore(v.inodeBitmapRegion()),
	)
	v.Blocks = alloc.NewFlushable(
		alloc.New(uint32(sb.BlockCount)),
		store.NewRegionBitmapStore(v.blockBitmapRegion()),
	)
	if err := v.Inodes.Reserve(uint32(InoRoot)); err != nil {
		return nil, fmt.Errorf("formatting: reserving root inode: %w", err)
	}
	for b := Block(0); b < sb.FirstDataBlock(); b++ {
		if err := v.Blocks.Reserve(uint32(b)); err != nil {
			return nil, fmt.Errorf(
				"formatting: reserving metadata block `%d`: %w",
				b,
				err,
			)
		}
	}
	v.dirty = true
	if err := v.Flush(); err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	return v, nil
}

func newVolume(device io.Device, sb *Superblock) *Volume {
	return &Volume{Superblock: *sb, device: device}
}

func (v *Volume) inodeBitmapRegion() *io.Region {
	return io.NewRegion(v.device, v.InodeBitmapStart(), v.InodeBitmapBlocks)
}

func (v *Volume) blockBitmapRegion() *io.Region {
	return io.NewRegion(v.device, v.BlockBitmapStart(), v.BlockBitmapBlocks)
}

// InodeStore is the region holding the inode table.
func (v *Volume) InodeStore() *io.Region {
	return io.NewRegion(v.device, v.InodeStoreStart(), v.InodeStoreBlocks)
}

func (v *Volume) AllocInode() (Ino, error) {
	ino, err := v.Inodes.Alloc()
	if err != nil {
		return InoNil, fmt.Errorf("allocating inode: %w", err)
	}
	v.FreeInodes--
	v.dirty = true
	return Ino(ino), nil
}

func (v *Volume) ReleaseInode(ino Ino) error {
	if err := v.Inodes.Free(uint32(ino)); err != nil {
		return fmt.Errorf("freeing inode `%d`: %w", ino, err)
	}
	v.FreeInodes++
	v.dirty = true
	return nil
}

// AllocBlocks allocates a contiguous run of at most `max` blocks.
func (v *Volume) AllocBlocks(max Block) (Block, Block, error) {
	start, n, err := v.Blocks.AllocRun(uint32(max))
	if err != nil {
		return BlockNil, 0, fmt.Errorf("allocating `%d` blocks: %w", max, err)
	}
	v.FreeBlocks -= n
	v.dirty = true
	return Block(start), Block(n), nil
}

// ReleaseBlocks frees `n` blocks starting at `start`, stopping at the first
// block that can't be freed.
func (v *Volume) ReleaseBlocks(start, n Block) error {
	for b := start; b < start+n; b++ {
		if b < v.FirstDataBlock() {
			return fmt.Errorf(
				"freeing metadata block `%d`: %w",
				b,
				CorruptErr,
			)
		}
		if err := v.Blocks.Free(uint32(b)); err != nil {
			return fmt.Errorf("freeing block `%d`: %w", b, err)
		}
		v.FreeBlocks++
		v.dirty = true
	}
	return nil
}

// IsInodeAllocated reports false for out-of-range inode numbers.
func (v *Volume) IsInodeAllocated(ino Ino) bool {
	return uint32(ino) < v.InodeCount && !v.Inodes.IsFree(uint32(ino))
}

func (v *Volume) IsBlockAllocated(block Block) bool {
	return block < v.BlockCount && !v.Blocks.IsFree(uint32(block))
}

// Flush writes the superblock, then the inode bitmap, then the block bitmap,
// skipping whatever hasn't changed.
func (v *Volume) Flush() error {
	if v.dirty {
		var b [BlockSize]byte
		encode.EncodeSuperblock(&v.Superblock, &b)
		if err := v.device.WriteBlock(SuperblockBlock, b[:]); err != nil {
			return fmt.Errorf("flushing superblock: %w", err)
		}
		v.dirty = false
	}
	if err := v.Inodes.Flush(); err != nil {
		return fmt.Errorf("flushing inode bitmap: %w", err)
	}
	if err := v.Blocks.Flush(); err != nil {
		return fmt.Errorf("flushing block bitmap: %w", err)
	}
	return nil
}
