package types

const (
	FileNameLen  = 28
	MaxSubfiles  = 128
	DirEntrySize = InoSize + FileNameLen
)

type DirEntry struct {
	Ino  Ino
	Name string
}
