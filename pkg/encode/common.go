// Package encode converts the on-disk records to and from their in-memory
// types. Every integer is a little-endian uint32.
package encode

import (
	"encoding/binary"

	. "github.com/weberc2/extentfs/pkg/types"
)

func putBlock(b []byte, start Byte, block Block) {
	putU32(b, start, uint32(block))
}

func getBlock(b []byte, start Byte) Block {
	return Block(getU32(b, start))
}

func putIno(b []byte, start Byte, ino Ino) {
	putU32(b, start, uint32(ino))
}

func getIno(b []byte, start Byte) Ino {
	return Ino(getU32(b, start))
}

func putU32(b []byte, start Byte, u uint32) {
	binary.LittleEndian.PutUint32(b[start:start+4], u)
}

func getU32(b []byte, start Byte) uint32 {
	return binary.LittleEndian.Uint32(b[start : start+4])
}

// putString writes `s` into a fixed-width field, NUL-padding the rest.
func putString(b []byte, start, size Byte, s string) {
	field := b[start : start+size]
	n := copy(field, s)
	for i := n; i < len(field); i++ {
		field[i] = 0
	}
}

// getString reads a NUL-terminated string from a fixed-width field. A field
// with no NUL uses its full width.
func getString(b []byte, start, size Byte) string {
	field := b[start : start+size]
	for i, c := range field {
		if c == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}
