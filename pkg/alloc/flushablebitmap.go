package alloc

import (
	"sync"
)

type BitmapStore interface {
	Put(Bitmap) error
}

// FlushableBitmap remembers whether it changed since the last flush.
type FlushableBitmap struct {
	bitmap Bitmap
	store  BitmapStore
	mutex  sync.Mutex
	dirty  bool
}

func NewFlushable(bitmap Bitmap, store BitmapStore) *FlushableBitmap {
	return &FlushableBitmap{bitmap: bitmap, store: store}
}

func (bitmap *FlushableBitmap) Alloc() (uint32, error) {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	index, err := bitmap.bitmap.Alloc()
	if err == nil {
		bitmap.dirty = true
	}
	return index, err
}

func (bitmap *FlushableBitmap) AllocRun(max uint32) (uint32, uint32, error) {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	start, n, err := bitmap.bitmap.AllocRun(max)
	if err == nil {
		bitmap.dirty = true
	}
	return start, n, err
}

func (bitmap *FlushableBitmap) Reserve(index uint32) error {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	if err := bitmap.bitmap.Reserve(index); err != nil {
		return err
	}
	bitmap.dirty = true
	return nil
}

func (bitmap *FlushableBitmap) Free(index uint32) error {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	if err := bitmap.bitmap.Free(index); err != nil {
		return err
	}
	bitmap.dirty = true
	return nil
}

func (bitmap *FlushableBitmap) IsFree(index uint32) bool {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	return bitmap.bitmap.IsFree(index)
}

func (bitmap *FlushableBitmap) Used() uint32 {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	return bitmap.bitmap.Used()
}

func (bitmap *FlushableBitmap) Size() uint32 { return bitmap.bitmap.Size() }

func (bitmap *FlushableBitmap) Dirty() bool {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	return bitmap.dirty
}

// Flush writes the bitmap to its store if it changed.
func (bitmap *FlushableBitmap) Flush() error {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	if bitmap.dirty {
		if err := bitmap.store.Put(bitmap.bitmap); err != nil {
			return err
		}
		bitmap.dirty = false
	}
	return nil
}
