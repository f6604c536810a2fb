package store

import (
	"fmt"

	"github.com/weberc2/extentfs/pkg/encode"
	"github.com/weberc2/extentfs/pkg/io"
	. "github.com/weberc2/extentfs/pkg/types"
)

var _ InodeStore = VolumeInodeStore{}

// VolumeInodeStore reads and writes inode slots in the inode-store region.
// Slots are smaller than a block, so every write is a read-modify-write of
// the containing block.
type VolumeInodeStore struct {
	region *io.Region
}

func NewVolumeInodeStore(region *io.Region) VolumeInodeStore {
	return VolumeInodeStore{region}
}

func (store VolumeInodeStore) Put(inode *Inode) error {
	var buf [InodeSize]byte
	encode.EncodeInode(inode, &buf)
	if err := store.putSlot(inode.Ino, &buf); err != nil {
		return fmt.Errorf("writing inode `%d`: %w", inode.Ino, err)
	}
	return nil
}

// Zero clears the slot of a released inode.
func (store VolumeInodeStore) Zero(ino Ino) error {
	var buf [InodeSize]byte
	if err := store.putSlot(ino, &buf); err != nil {
		return fmt.Errorf("zeroing inode `%d`: %w", ino, err)
	}
	return nil
}

func (store VolumeInodeStore) Get(ino Ino, output *Inode) error {
	block, offset := InodeLocation(ino)
	var b [BlockSize]byte
	if err := store.region.ReadBlock(block, b[:]); err != nil {
		return fmt.Errorf(
			"reading inode `%d` from inode-store block `%d`: %w",
			ino,
			block,
			err,
		)
	}
	output.Ino = ino
	if err := encode.DecodeInode(
		output,
		(*[InodeSize]byte)(b[offset:offset+InodeSize]),
	); err != nil {
		return err
	}
	return nil
}

func (store VolumeInodeStore) putSlot(ino Ino, slot *[InodeSize]byte) error {
	block, offset := InodeLocation(ino)
	var b [BlockSize]byte
	if err := store.region.ReadBlock(block, b[:]); err != nil {
		return fmt.Errorf("reading inode-store block `%d`: %w", block, err)
	}
	copy(b[offset:offset+InodeSize], slot[:])
	if err := store.region.WriteBlock(block, b[:]); err != nil {
		return fmt.Errorf("writing inode-store block `%d`: %w", block, err)
	}
	return nil
}
