package fs

import (
	"fmt"
	"time"

	. "github.com/weberc2/extentfs/pkg/types"
)

// Stat describes an inode.
type Stat struct {
	Ino        Ino       `json:"ino"`
	FileType   FileType  `json:"fileType"`
	Perm       uint32    `json:"perm"`
	UID        uint32    `json:"uid"`
	GID        uint32    `json:"gid"`
	Size       Byte      `json:"size"`
	Blocks     uint32    `json:"blocks"`
	LinksCount uint32    `json:"linksCount"`
	ATime      time.Time `json:"atime"`
	MTime      time.Time `json:"mtime"`
	CTime      time.Time `json:"ctime"`
}

func newStat(inode *Inode) Stat {
	return Stat{
		Ino:        inode.Ino,
		FileType:   inode.FileType(),
		Perm:       inode.Mode.Perm(),
		UID:        inode.UID,
		GID:        inode.GID,
		Size:       inode.Size,
		Blocks:     inode.Blocks,
		LinksCount: inode.LinksCount,
		ATime:      time.Unix(int64(inode.ATime), 0).UTC(),
		MTime:      time.Unix(int64(inode.MTime), 0).UTC(),
		CTime:      time.Unix(int64(inode.CTime), 0).UTC(),
	}
}

func (fs *FileSystem) Stat(ino Ino) (Stat, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("stat"); err != nil {
		return Stat{}, err
	}
	node, err := fs.acquire(ino)
	if err != nil {
		return Stat{}, fmt.Errorf("stat inode `%d`: %w", ino, err)
	}
	defer fs.release(node)
	return newStat(&node.Inode), nil
}

// Statfs summarizes the volume. `Files` counts inodes in use.
type Statfs struct {
	Magic       uint32 `json:"magic"`
	BlockSize   Byte   `json:"blockSize"`
	Blocks      Block  `json:"blocks"`
	FreeBlocks  uint32 `json:"freeBlocks"`
	Files       uint32 `json:"files"`
	FreeInodes  uint32 `json:"freeInodes"`
	NameLen     int    `json:"nameLen"`
	InodeCount  uint32 `json:"inodeCount"`
	FirstBlock  Block  `json:"firstDataBlock"`
	CachedNodes int    `json:"cachedNodes"`
}

func (fs *FileSystem) Statfs() (Statfs, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("statfs"); err != nil {
		return Statfs{}, err
	}
	sb := &fs.volume.Superblock
	return Statfs{
		Magic:       sb.Magic,
		BlockSize:   BlockSize,
		Blocks:      sb.BlockCount,
		FreeBlocks:  sb.FreeBlocks,
		Files:       sb.InodeCount - sb.FreeInodes,
		FreeInodes:  sb.FreeInodes,
		NameLen:     FileNameLen,
		InodeCount:  sb.InodeCount,
		FirstBlock:  sb.FirstDataBlock(),
		CachedNodes: fs.cache.Len(),
	}, nil
}
