// Package fs is the extent filesystem engine: it ties the superblock,
// bitmaps, inode store, extent indices and directory blocks together behind
// inode-number and path based operations.
package fs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weberc2/extentfs/pkg/directory"
	"github.com/weberc2/extentfs/pkg/inode/store"
	"github.com/weberc2/extentfs/pkg/io"
	"github.com/weberc2/extentfs/pkg/super"
	. "github.com/weberc2/extentfs/pkg/types"
)

const DefaultCacheCapacity = 64

type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// CacheCapacity is how many unreferenced inodes stay cached. Zero means
	// DefaultCacheCapacity; negative means none.
	CacheCapacity int

	// UID and GID own newly created inodes.
	UID uint32
	GID uint32

	// Now defaults to time.Now.
	Now func() time.Time
}

func (opts *Options) logger() *slog.Logger {
	if opts == nil || opts.Logger == nil {
		return slog.Default()
	}
	return opts.Logger
}

func (opts *Options) cacheCapacity() int {
	switch {
	case opts == nil || opts.CacheCapacity == 0:
		return DefaultCacheCapacity
	case opts.CacheCapacity < 0:
		return 0
	default:
		return opts.CacheCapacity
	}
}

func (opts *Options) now() func() time.Time {
	if opts == nil || opts.Now == nil {
		return time.Now
	}
	return opts.Now
}

// FileSystem is a mounted volume. It is safe for concurrent use: mutating
// operations exclude everything else, while reads run alongside each other.
type FileSystem struct {
	lock sync.RWMutex

	device   io.Device
	volume   *super.Volume
	inodes   store.VolumeInodeStore
	cache    *store.Cache
	released map[Ino]struct{}

	id     uuid.UUID
	logger *slog.Logger
	now    func() time.Time
	uid    uint32
	gid    uint32
	closed bool
}

// Format writes an empty filesystem spanning the whole device: the metadata
// regions and a root directory with its block.
func Format(device io.Device, opts *Options) error {
	logger := opts.logger()
	g, err := super.NewGeometry(device.BlockCount())
	if err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	volume, err := super.Format(device, g)
	if err != nil {
		return err
	}

	block, _, err := volume.AllocBlocks(1)
	if err != nil {
		return fmt.Errorf("formatting: allocating root directory block: %w", err)
	}
	root := Inode{
		Ino:        InoRoot,
		Mode:       NewMode(FileTypeDir, 0o755),
		UID:        opts.uid(),
		GID:        opts.gid(),
		Size:       BlockSize,
		Blocks:     1,
		LinksCount: 2,
		Block:      block,
	}
	now := Timestamp(opts.now()())
	root.ATime, root.MTime, root.CTime = now, now, now

	if err := directory.New(device, block).Flush(); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	if err := store.NewVolumeInodeStore(volume.InodeStore()).Put(&root); err != nil {
		return fmt.Errorf("formatting: writing root inode: %w", err)
	}
	if err := volume.Flush(); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	if err := device.Sync(); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	logger.Info(
		"formatted",
		"blocks", g.Blocks,
		"inodes", g.Inodes,
		"firstDataBlock", g.FirstDataBlock(),
	)
	return nil
}

func (opts *Options) uid() uint32 {
	if opts == nil {
		return 0
	}
	return opts.UID
}

func (opts *Options) gid() uint32 {
	if opts == nil {
		return 0
	}
	return opts.GID
}

// Mount validates the volume on `device` and returns it ready for use.
// Corruption fails the mount with an error matching `CorruptErr`; the device
// isn't written to.
func Mount(device io.Device, opts *Options) (*FileSystem, error) {
	id := uuid.New()
	logger := opts.logger().With("mount", id.String())

	volume, err := super.Open(device)
	if err != nil {
		if errors.Is(err, CorruptErr) {
			logger.Error("refusing to mount corrupt volume", "err", err.Error())
		}
		return nil, fmt.Errorf("mounting: %w", err)
	}

	inodes := store.NewVolumeInodeStore(volume.InodeStore())
	fs := &FileSystem{
		device:   device,
		volume:   volume,
		inodes:   inodes,
		cache:    store.NewCache(inodes, opts.cacheCapacity()),
		released: make(map[Ino]struct{}),
		id:       id,
		logger:   logger,
		now:      opts.now(),
		uid:      opts.uid(),
		gid:      opts.gid(),
	}

	root, err := fs.acquire(InoRoot)
	if err != nil {
		return nil, fmt.Errorf("mounting: loading root inode: %w", err)
	}
	defer fs.release(root)
	if !root.IsDir() {
		logger.Error("root inode is not a directory", "mode", root.Mode.String())
		return nil, fmt.Errorf(
			"mounting: root inode has mode `%s`: %w",
			root.Mode,
			CorruptErr,
		)
	}

	logger.Info(
		"mounted",
		"blocks", volume.BlockCount,
		"freeBlocks", volume.FreeBlocks,
		"inodes", volume.InodeCount,
		"freeInodes", volume.FreeInodes,
	)
	return fs, nil
}

// ID identifies this mount in logs.
func (fs *FileSystem) ID() uuid.UUID { return fs.id }

// Sync writes every dirty inode, extent index and directory block, then the
// superblock and bitmaps, then syncs the device.
func (fs *FileSystem) Sync() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if fs.closed {
		return fmt.Errorf("syncing: %w", ClosedErr)
	}
	return fs.sync()
}

func (fs *FileSystem) sync() error {
	for ino := range fs.released {
		if fs.volume.IsInodeAllocated(ino) {
			// reused; the cache holds its new record
			delete(fs.released, ino)
			continue
		}
		if err := fs.inodes.Zero(ino); err != nil {
			return fmt.Errorf("syncing: %w", err)
		}
		delete(fs.released, ino)
	}
	if err := fs.cache.Flush(); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	if err := fs.volume.Flush(); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	if err := fs.device.Sync(); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	fs.logger.Debug(
		"synced",
		"freeBlocks", fs.volume.FreeBlocks,
		"freeInodes", fs.volume.FreeInodes,
	)
	return nil
}

// Unmount syncs and drops every cached inode. The device stays open; the
// caller owns it. Every later call fails with `ClosedErr`.
func (fs *FileSystem) Unmount() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if fs.closed {
		return fmt.Errorf("unmounting: %w", ClosedErr)
	}
	if err := fs.sync(); err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}
	fs.cache.Drop()
	fs.closed = true
	fs.logger.Info("unmounted")
	return nil
}

func (fs *FileSystem) checkOpen(op string) error {
	if fs.closed {
		return fmt.Errorf("%s: %w", op, ClosedErr)
	}
	return nil
}
