package super

import (
	"fmt"

	. "github.com/weberc2/extentfs/pkg/types"
)

type ErrBadMagic struct {
	Found uint32
}

func (err ErrBadMagic) Error() string {
	return fmt.Sprintf(
		"bad magic number: wanted `%#x`; found `%#x`",
		SuperblockMagic,
		err.Found,
	)
}

func (err ErrBadMagic) Is(target error) bool { return target == CorruptErr }

// ErrInconsistent describes a superblock or bitmap whose fields contradict
// each other.
type ErrInconsistent struct {
	Field  string
	Wanted uint64
	Found  uint64
}

func (err ErrInconsistent) Error() string {
	return fmt.Sprintf(
		"inconsistent `%s`: wanted `%d`; found `%d`",
		err.Field,
		err.Wanted,
		err.Found,
	)
}

func (err ErrInconsistent) Is(target error) bool { return target == CorruptErr }
