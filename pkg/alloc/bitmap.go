// Package alloc hands out inode numbers and blocks from free-space bitmaps.
package alloc

import (
	"fmt"
	"math/bits"

	"github.com/weberc2/extentfs/pkg/math"
	. "github.com/weberc2/extentfs/pkg/types"
)

const bitsPerByte = 8

// Bitmap tracks `size` indices, one bit each, `1` meaning used. Bit `i` lives
// in byte `i/8` at position `i%8` counting from the least significant bit.
// Bits at or beyond `size` are padding and stay zero.
type Bitmap struct {
	bytes []byte
	size  uint32
}

func New(size uint32) Bitmap {
	return Bitmap{
		bytes: make([]byte, math.DivRoundUp(size, bitsPerByte)),
		size:  size,
	}
}

// Load adopts `b` (which must hold at least `size` bits) as the backing store
// of a bitmap. It fails with `CorruptErr` if a padding bit is set.
func Load(b []byte, size uint32) (Bitmap, error) {
	if uint32(len(b)) < math.DivRoundUp(size, bitsPerByte) {
		return Bitmap{}, fmt.Errorf(
			"loading bitmap of `%d` bits from `%d` bytes: %w",
			size,
			len(b),
			InvalidArgumentErr,
		)
	}
	bm := Bitmap{bytes: b, size: size}
	for i := size; i < uint32(len(b))*bitsPerByte; i++ {
		if !bm.isFree(i) {
			return Bitmap{}, fmt.Errorf(
				"loading bitmap: padding bit `%d` is set: %w",
				i,
				CorruptErr,
			)
		}
	}
	return bm, nil
}

func (bm Bitmap) Size() uint32 { return bm.size }

// Alloc marks the lowest free index used and returns it.
func (bm Bitmap) Alloc() (uint32, error) {
	for i, byt := range bm.bytes {
		if byt == 0xff {
			continue
		}
		index := uint32(i)*bitsPerByte + uint32(bits.TrailingZeros8(^byt))
		if index >= bm.size {
			break
		}
		bm.set(index)
		return index, nil
	}
	return 0, ExhaustedErr
}

// AllocRun marks up to `max` contiguous indices used and returns the first
// index and the count. It takes the lowest run of the full length if there
// is one, otherwise the run that starts at the lowest free index.
func (bm Bitmap) AllocRun(max uint32) (uint32, uint32, error) {
	if max < 1 {
		return 0, 0, fmt.Errorf(
			"allocating a run of `%d`: %w",
			max,
			InvalidArgumentErr,
		)
	}

	var (
		firstFree uint32
		firstLen  uint32
		foundFree bool
		runStart  uint32
		runLen    uint32
	)
	for i := uint32(0); i < bm.size; i++ {
		if !bm.isFree(i) {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = i
		}
		runLen++
		if !foundFree {
			firstFree, foundFree = i, true
		}
		if runStart == firstFree {
			firstLen = runLen
		}
		if runLen == max {
			bm.setRun(runStart, runLen)
			return runStart, runLen, nil
		}
	}
	if !foundFree {
		return 0, 0, ExhaustedErr
	}
	bm.setRun(firstFree, firstLen)
	return firstFree, firstLen, nil
}

func (bm Bitmap) Free(index uint32) error {
	if index >= bm.size {
		return &ErrOutOfRange{Index: index, Size: bm.size}
	}
	if bm.isFree(index) {
		return &ErrDoubleFree{Index: index}
	}
	bm.bytes[index/bitsPerByte] &^= 1 << (index % bitsPerByte)
	return nil
}

// Reserve marks `index` used regardless of its current state.
func (bm Bitmap) Reserve(index uint32) error {
	if index >= bm.size {
		return &ErrOutOfRange{Index: index, Size: bm.size}
	}
	bm.set(index)
	return nil
}

// IsFree reports false for out-of-range indices.
func (bm Bitmap) IsFree(index uint32) bool {
	return index < bm.size && bm.isFree(index)
}

// Used is the number of set bits.
func (bm Bitmap) Used() uint32 {
	var n int
	for _, byt := range bm.bytes {
		n += bits.OnesCount8(byt)
	}
	return uint32(n)
}

func (bm Bitmap) Bytes() []byte { return bm.bytes }

func (bm Bitmap) isFree(index uint32) bool {
	return bm.bytes[index/bitsPerByte]&(1<<(index%bitsPerByte)) == 0
}

func (bm Bitmap) set(index uint32) {
	bm.bytes[index/bitsPerByte] |= 1 << (index % bitsPerByte)
}

func (bm Bitmap) setRun(start, n uint32) {
	for i := start; i < start+n; i++ {
		bm.set(i)
	}
}

type ErrOutOfRange struct {
	Index uint32
	Size  uint32
}

func (err *ErrOutOfRange) Error() string {
	return fmt.Sprintf(
		"index `%d` out of range for bitmap of `%d`",
		err.Index,
		err.Size,
	)
}

func (err *ErrOutOfRange) Is(target error) bool { return target == CorruptErr }

type ErrDoubleFree struct {
	Index uint32
}

func (err *ErrDoubleFree) Error() string {
	return fmt.Sprintf("index `%d` is already free", err.Index)
}

func (err *ErrDoubleFree) Is(target error) bool { return target == CorruptErr }
