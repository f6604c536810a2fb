package io

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gosimple/slug"
	"github.com/weberc2/extentfs/pkg/objectstore"
	. "github.com/weberc2/extentfs/pkg/types"
	"gopkg.in/yaml.v2"
)

var _ Device = (*ObjectDevice)(nil)

// ObjectDevice stores one object per non-zero block under a prefix derived
// from the volume name. A missing block object reads as zeroes and writing an
// all-zero block deletes its object, so a freshly created volume costs only
// its metadata object.
type ObjectDevice struct {
	store  objectstore.ObjectStore
	bucket string
	prefix string
	meta   objectDeviceMeta
	zero   []byte
}

type objectDeviceMeta struct {
	Name       string `yaml:"name"`
	BlockSize  Byte   `yaml:"blockSize"`
	BlockCount Block  `yaml:"blockCount"`
}

// ObjectPrefix is the key prefix every object of volume `name` lives under.
func ObjectPrefix(name string) string { return slug.Make(name) + "/" }

// CreateObjectDevice writes the metadata object for a new volume. It fails
// with `AlreadyExistsErr` if the volume already has one.
func CreateObjectDevice(
	store objectstore.ObjectStore,
	bucket string,
	name string,
	blocks Block,
) (*ObjectDevice, error) {
	device := newObjectDevice(store, bucket, name)
	rc, err := store.GetObject(bucket, device.metaKey())
	if err == nil {
		rc.Close()
		return nil, fmt.Errorf(
			"creating object device `%s` in bucket `%s`: %w",
			name,
			bucket,
			AlreadyExistsErr,
		)
	}
	if !errors.Is(err, NotFoundErr) {
		return nil, fmt.Errorf(
			"creating object device `%s` in bucket `%s`: %w",
			name,
			bucket,
			err,
		)
	}

	device.meta = objectDeviceMeta{
		Name:       name,
		BlockSize:  BlockSize,
		BlockCount: blocks,
	}
	data, err := yaml.Marshal(&device.meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling object device metadata: %w", err)
	}
	if err := store.PutObject(
		bucket,
		device.metaKey(),
		bytes.NewReader(data),
	); err != nil {
		return nil, fmt.Errorf(
			"creating object device `%s` in bucket `%s`: %w",
			name,
			bucket,
			err,
		)
	}
	return device, nil
}

// OpenObjectDevice loads the metadata of an existing volume.
func OpenObjectDevice(
	store objectstore.ObjectStore,
	bucket string,
	name string,
) (*ObjectDevice, error) {
	device := newObjectDevice(store, bucket, name)
	rc, err := store.GetObject(bucket, device.metaKey())
	if err != nil {
		return nil, fmt.Errorf(
			"opening object device `%s` in bucket `%s`: %w",
			name,
			bucket,
			err,
		)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf(
			"opening object device `%s`: reading metadata: %w",
			name,
			err,
		)
	}
	if err := yaml.Unmarshal(data, &device.meta); err != nil {
		return nil, fmt.Errorf(
			"opening object device `%s`: parsing metadata: %w: %v",
			name,
			CorruptErr,
			err,
		)
	}
	if device.meta.BlockSize != BlockSize {
		return nil, fmt.Errorf(
			"opening object device `%s`: block size `%d` (wanted `%d`): %w",
			name,
			device.meta.BlockSize,
			BlockSize,
			CorruptErr,
		)
	}
	return device, nil
}

func newObjectDevice(
	store objectstore.ObjectStore,
	bucket string,
	name string,
) *ObjectDevice {
	return &ObjectDevice{
		store:  store,
		bucket: bucket,
		prefix: ObjectPrefix(name),
		zero:   make([]byte, BlockSize),
	}
}

func (device *ObjectDevice) metaKey() string { return device.prefix + "device" }

func (device *ObjectDevice) blockKey(block Block) string {
	return fmt.Sprintf("%sblocks/%08x", device.prefix, uint32(block))
}

func (device *ObjectDevice) ReadBlock(block Block, p []byte) error {
	if err := checkBlock(block, device.meta.BlockCount, BlockSize, p); err != nil {
		return err
	}
	rc, err := device.store.GetObject(device.bucket, device.blockKey(block))
	if err != nil {
		if errors.Is(err, NotFoundErr) {
			copy(p, device.zero)
			return nil
		}
		return fmt.Errorf("reading object block `%d`: %w", block, err)
	}
	defer rc.Close()

	if _, err := io.ReadFull(rc, p); err != nil {
		return fmt.Errorf(
			"reading object block `%d`: %w: %v",
			block,
			CorruptErr,
			err,
		)
	}
	return nil
}

func (device *ObjectDevice) WriteBlock(block Block, p []byte) error {
	if err := checkBlock(block, device.meta.BlockCount, BlockSize, p); err != nil {
		return err
	}
	key := device.blockKey(block)
	if bytes.Equal(p, device.zero) {
		if err := device.store.DeleteObject(device.bucket, key); err != nil {
			return fmt.Errorf("clearing object block `%d`: %w", block, err)
		}
		return nil
	}
	// the store may hold on to the reader's backing array
	data := make([]byte, len(p))
	copy(data, p)
	if err := device.store.PutObject(
		device.bucket,
		key,
		bytes.NewReader(data),
	); err != nil {
		return fmt.Errorf("writing object block `%d`: %w", block, err)
	}
	return nil
}

func (device *ObjectDevice) BlockSize() Byte { return device.meta.BlockSize }

func (device *ObjectDevice) BlockCount() Block { return device.meta.BlockCount }

func (device *ObjectDevice) Sync() error { return nil }

func (device *ObjectDevice) Close() error { return nil }

// Destroy deletes every object of the volume, metadata included.
func (device *ObjectDevice) Destroy() error {
	keys, err := device.store.ListObjects(device.bucket, device.prefix)
	if err != nil {
		return fmt.Errorf("destroying object device: %w", err)
	}
	for _, key := range keys {
		if err := device.store.DeleteObject(device.bucket, key); err != nil {
			return fmt.Errorf("destroying object device: %w", err)
		}
	}
	return nil
}
