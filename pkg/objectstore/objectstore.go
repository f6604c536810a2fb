// Package objectstore holds the key/value blob stores the object-backed
// block device runs on.
package objectstore

import (
	"fmt"
	"io"

	"github.com/weberc2/extentfs/pkg/types"
)

type ObjectStore interface {
	PutObject(bucket, key string, data io.ReadSeeker) error
	GetObject(bucket, key string) (io.ReadCloser, error)
	ListObjects(bucket, prefix string) ([]string, error)
	DeleteObject(bucket, key string) error
}

type ObjectNotFoundErr struct {
	Bucket string
	Key    string
}

func (err *ObjectNotFoundErr) Error() string {
	return fmt.Sprintf(
		"object not found: bucket=`%s`, key=`%s`",
		err.Bucket,
		err.Key,
	)
}

func (err *ObjectNotFoundErr) Is(target error) bool {
	if target == types.NotFoundErr {
		return true
	}
	other, ok := target.(*ObjectNotFoundErr)
	return ok && *other == *err
}
