package store

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/alloc"
	"github.com/weberc2/extentfs/pkg/io"
)

var _ alloc.BitmapStore = RegionBitmapStore{}

// RegionBitmapStore writes a bitmap over a region of whole blocks,
// zero-filling past the packed bytes.
type RegionBitmapStore struct {
	region *io.Region
}

func NewRegionBitmapStore(region *io.Region) RegionBitmapStore {
	return RegionBitmapStore{region}
}

func (store RegionBitmapStore) Put(bitmap alloc.Bitmap) error {
	if err := store.region.WriteAll(bitmap.Bytes()); err != nil {
		return fmt.Errorf(
			"storing bitmap at block `%d`: %w",
			store.region.Start(),
			err,
		)
	}
	return nil
}
