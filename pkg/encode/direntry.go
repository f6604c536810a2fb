package encode

import (
	. "github.com/weberc2/extentfs/pkg/types"
)

// EncodeDirEntries writes a directory block holding `entries`, zeroing the
// remaining slots.
func EncodeDirEntries(entries []DirEntry, b *[BlockSize]byte) {
	p := b[:]
	for i := range p {
		p[i] = 0
	}
	for i := range entries {
		start := Byte(i) * DirEntrySize
		putIno(p, start+dirEntryInoStart, entries[i].Ino)
		putString(p, start+dirEntryNameStart, FileNameLen, entries[i].Name)
	}
}

// DecodeDirEntries returns the used prefix of a directory block: the entries
// before the first slot with a zero inode number.
func DecodeDirEntries(b *[BlockSize]byte) []DirEntry {
	p := b[:]
	entries := make([]DirEntry, 0, MaxSubfiles)
	for i := 0; i < MaxSubfiles; i++ {
		start := Byte(i) * DirEntrySize
		ino := getIno(p, start+dirEntryInoStart)
		if ino == InoNil {
			break
		}
		entries = append(entries, DirEntry{
			Ino:  ino,
			Name: getString(p, start+dirEntryNameStart, FileNameLen),
		})
	}
	return entries
}

const (
	dirEntryInoStart = 0
	dirEntryInoEnd   = dirEntryInoStart + InoSize

	dirEntryNameStart = dirEntryInoEnd
	dirEntryNameEnd   = dirEntryNameStart + FileNameLen

	_ uint = uint(DirEntrySize - dirEntryNameEnd)
	_ uint = uint(dirEntryNameEnd - DirEntrySize)
)
