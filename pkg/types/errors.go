package types

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	CorruptErr         ConstError = "filesystem corrupt"
	NotFoundErr        ConstError = "not found"
	AlreadyExistsErr   ConstError = "already exists"
	NotDirErr          ConstError = "not a directory"
	IsDirErr           ConstError = "is a directory"
	ExhaustedErr       ConstError = "no free space"
	IndexFullErr       ConstError = "extent index full"
	DirFullErr         ConstError = "directory full"
	HoleReadErr        ConstError = "read of unmapped block"
	InvalidArgumentErr ConstError = "invalid argument"
	NotEmptyErr        ConstError = "directory not empty"
	ClosedErr          ConstError = "closed"
)
