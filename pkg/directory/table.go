// Package directory manages the single block of (inode, name) entries that
// holds a directory's children.
package directory

import (
	"fmt"
	"strings"

	"github.com/weberc2/extentfs/pkg/encode"
	"github.com/weberc2/extentfs/pkg/io"
	. "github.com/weberc2/extentfs/pkg/types"
)

// Table is the in-memory copy of a directory block. Entries are kept in
// insertion order; removing one shifts the ones after it back a slot.
type Table struct {
	entries []DirEntry
	device  io.Device
	block   Block
	dirty   bool
}

// New returns an empty table that will be stored at `block`.
func New(device io.Device, block Block) *Table {
	return &Table{
		entries: make([]DirEntry, 0, MaxSubfiles),
		device:  device,
		block:   block,
		dirty:   true,
	}
}

// Load reads the table stored at `block`. It fails with `CorruptErr` on an
// invalid or duplicate name.
func Load(device io.Device, block Block) (*Table, error) {
	var b [BlockSize]byte
	if err := device.ReadBlock(block, b[:]); err != nil {
		return nil, fmt.Errorf("loading directory at block `%d`: %w", block, err)
	}
	t := Table{
		entries: encode.DecodeDirEntries(&b),
		device:  device,
		block:   block,
	}
	seen := make(map[string]struct{}, len(t.entries))
	for i := range t.entries {
		name := t.entries[i].Name
		if err := ValidateName(name); err != nil {
			return nil, fmt.Errorf(
				"loading directory at block `%d`: entry `%d`: %v: %w",
				block,
				i,
				err,
				CorruptErr,
			)
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf(
				"loading directory at block `%d`: duplicate name `%s`: %w",
				block,
				name,
				CorruptErr,
			)
		}
		seen[name] = struct{}{}
	}
	return &t, nil
}

// ValidateName fails with `InvalidArgumentErr` unless `name` is 1 to
// `FileNameLen` bytes without `/` or NUL and isn't `.` or `..`.
func ValidateName(name string) error {
	switch {
	case len(name) < 1 || len(name) > FileNameLen:
		return fmt.Errorf(
			"name `%s` must be between 1 and %d bytes: %w",
			name,
			FileNameLen,
			InvalidArgumentErr,
		)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf(
			"name `%s` contains `/` or NUL: %w",
			name,
			InvalidArgumentErr,
		)
	case name == "." || name == "..":
		return fmt.Errorf("name `%s` is reserved: %w", name, InvalidArgumentErr)
	}
	return nil
}

func (t *Table) Block() Block { return t.block }

func (t *Table) Len() int { return len(t.entries) }

func (t *Table) index(name string) int {
	for i := range t.entries {
		if t.entries[i].Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) Lookup(name string) (Ino, error) {
	if i := t.index(name); i >= 0 {
		return t.entries[i].Ino, nil
	}
	return InoNil, fmt.Errorf("looking up `%s`: %w", name, NotFoundErr)
}

func (t *Table) Insert(name string, ino Ino) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	if ino == InoNil {
		return fmt.Errorf(
			"inserting `%s`: inode `%d` can't be an entry: %w",
			name,
			ino,
			InvalidArgumentErr,
		)
	}
	if t.index(name) >= 0 {
		return fmt.Errorf("inserting `%s`: %w", name, AlreadyExistsErr)
	}
	if len(t.entries) >= MaxSubfiles {
		return fmt.Errorf("inserting `%s`: %w", name, DirFullErr)
	}
	t.entries = append(t.entries, DirEntry{Ino: ino, Name: name})
	t.dirty = true
	return nil
}

// Remove deletes the entry for `name` and returns its inode number.
func (t *Table) Remove(name string) (Ino, error) {
	i := t.index(name)
	if i < 0 {
		return InoNil, fmt.Errorf("removing `%s`: %w", name, NotFoundErr)
	}
	ino := t.entries[i].Ino
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	t.dirty = true
	return ino, nil
}

// Entries returns a copy of the entries in slot order.
func (t *Table) Entries() []DirEntry {
	out := make([]DirEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Table) Dirty() bool { return t.dirty }

func (t *Table) Flush() error {
	if !t.dirty {
		return nil
	}
	var b [BlockSize]byte
	encode.EncodeDirEntries(t.entries, &b)
	if err := t.device.WriteBlock(t.block, b[:]); err != nil {
		return fmt.Errorf("flushing directory at block `%d`: %w", t.block, err)
	}
	t.dirty = false
	return nil
}
