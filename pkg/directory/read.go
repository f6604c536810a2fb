package directory

import (
	"io"

	. "github.com/weberc2/extentfs/pkg/types"
)

// Handle is a position in a directory listing. The zero value starts at the
// first entry.
type Handle struct {
	Offset int
}

// At returns a handle positioned at slot `offset`.
func At(offset int) Handle { return Handle{Offset: offset} }

// ReadNext copies the entry at the handle's position into `entry` and
// advances the handle. It returns io.EOF at the first unused slot.
func (t *Table) ReadNext(handle *Handle, entry *DirEntry) error {
	if handle.Offset < 0 || handle.Offset >= len(t.entries) {
		return io.EOF
	}
	*entry = t.entries[handle.Offset]
	handle.Offset++
	return nil
}
