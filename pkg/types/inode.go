package types

import (
	"encoding/json"
	"fmt"
	"time"
)

type Ino uint32

const (
	InodeSize      Byte = 72
	InodesPerBlock      = uint32(BlockSize / InodeSize)
	InoSize        Byte = 4
	InlineDataSize      = 32

	// InoRoot is the root directory. It is never a child entry, which is why
	// a zero ino can terminate a directory table.
	InoRoot Ino = 0
	InoNil  Ino = 0
)

type Inode struct {
	Ino        Ino
	Mode       Mode
	UID        uint32
	GID        uint32
	Size       Byte
	CTime      uint32
	ATime      uint32
	MTime      uint32
	Blocks     uint32
	LinksCount uint32

	// Block is the extent index block for regular files and the directory
	// block for directories. Symlinks keep their target in Data and own no
	// blocks.
	Block Block
	Data  [InlineDataSize]byte
}

func (inode *Inode) FileType() FileType { return inode.Mode.FileType() }

func (inode *Inode) IsDir() bool { return inode.Mode.FileType() == FileTypeDir }

func (inode *Inode) IsRegular() bool {
	return inode.Mode.FileType() == FileTypeRegular
}

// Touch sets the modification and change times.
func (inode *Inode) Touch(now time.Time) {
	ts := Timestamp(now)
	inode.MTime = ts
	inode.CTime = ts
}

func Timestamp(t time.Time) uint32 { return uint32(t.Unix()) }

// Mode holds the file type and permission bits in the POSIX `st_mode` layout
// so images stay readable by POSIX tools.
type Mode uint32

const (
	ModeTypeMask Mode = 0o170000
	ModePermMask Mode = 0o7777

	modeSocket   Mode = 0o140000
	modeSymlink  Mode = 0o120000
	modeRegular  Mode = 0o100000
	modeBlockDev Mode = 0o060000
	modeDir      Mode = 0o040000
	modeCharDev  Mode = 0o020000
	modeFifo     Mode = 0o010000
)

func NewMode(ft FileType, perm uint32) Mode {
	return ft.mode() | (Mode(perm) & ModePermMask)
}

func (m Mode) Perm() uint32 { return uint32(m & ModePermMask) }

func (m Mode) FileType() FileType {
	switch m & ModeTypeMask {
	case modeRegular:
		return FileTypeRegular
	case modeDir:
		return FileTypeDir
	case modeSymlink:
		return FileTypeSymlink
	case modeCharDev:
		return FileTypeCharDev
	case modeBlockDev:
		return FileTypeBlockDev
	case modeFifo:
		return FileTypeFifo
	case modeSocket:
		return FileTypeSocket
	default:
		return FileTypeInvalid
	}
}

func (m Mode) String() string {
	return fmt.Sprintf("%s|%#o", m.FileType(), m.Perm())
}

type FileType uint8

const (
	FileTypeInvalid FileType = iota
	FileTypeRegular
	FileTypeDir
	FileTypeCharDev
	FileTypeBlockDev
	FileTypeFifo
	FileTypeSocket
	FileTypeSymlink
)

func (ft FileType) mode() Mode {
	switch ft {
	case FileTypeRegular:
		return modeRegular
	case FileTypeDir:
		return modeDir
	case FileTypeSymlink:
		return modeSymlink
	case FileTypeCharDev:
		return modeCharDev
	case FileTypeBlockDev:
		return modeBlockDev
	case FileTypeFifo:
		return modeFifo
	case FileTypeSocket:
		return modeSocket
	default:
		return 0
	}
}

func (ft FileType) String() string {
	switch ft {
	case FileTypeInvalid:
		return "Invalid"
	case FileTypeRegular:
		return "Regular"
	case FileTypeDir:
		return "Dir"
	case FileTypeCharDev:
		return "CharDev"
	case FileTypeBlockDev:
		return "BlockDev"
	case FileTypeFifo:
		return "Fifo"
	case FileTypeSocket:
		return "Socket"
	case FileTypeSymlink:
		return "Symlink"
	default:
		return fmt.Sprintf("FileType(%d)", uint8(ft))
	}
}

func (ft FileType) MarshalJSON() ([]byte, error) {
	s := ft.String()
	out := make([]byte, len(s)+2)
	out[0] = '"'
	out[len(out)-1] = '"'
	copy(out[1:], s)
	return out, nil
}

func (ft *FileType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshaling file type: %w", err)
	}
	for candidate := FileTypeInvalid; candidate <= FileTypeSymlink; candidate++ {
		if candidate.String() == s {
			*ft = candidate
			return nil
		}
	}
	return fmt.Errorf("unmarshaling file type: unknown type `%s`", s)
}

// Validate reports whether the engine can create inodes of this type.
func (ft FileType) Validate() error {
	switch ft {
	case FileTypeRegular, FileTypeDir, FileTypeSymlink:
		return nil
	default:
		return fmt.Errorf(
			"validating file type `%s`: %w",
			ft,
			InvalidArgumentErr,
		)
	}
}
