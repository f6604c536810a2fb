package alloc

type Allocator interface {
	Alloc() (uint32, error)
	AllocRun(max uint32) (uint32, uint32, error)
	Reserve(uint32) error
	Free(uint32) error
	IsFree(uint32) bool
	Used() uint32
}

var (
	_ Allocator = Bitmap{}
	_ Allocator = (*FlushableBitmap)(nil)
)
