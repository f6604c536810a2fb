package objectstore

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

var _ ObjectStore = (*GzipObjectStore)(nil)

// GzipObjectStore compresses object bodies on the way into the wrapped store
// and decompresses them on the way out. Keys and listings pass through.
type GzipObjectStore struct {
	ObjectStore
}

func (store *GzipObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestSpeed)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := io.Copy(w, data); err != nil {
		return fmt.Errorf("compressing object `%s`: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	return store.ObjectStore.PutObject(bucket, key, bytes.NewReader(b.Bytes()))
}

func (store *GzipObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	body, err := store.ObjectStore.GetObject(bucket, key)
	if err != nil {
		return nil, err
	}
	r, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf(
			"decompressing object `%s` in bucket `%s`: %w",
			key,
			bucket,
			err,
		)
	}
	return &gzipReadCloser{body: body, r: r}, nil
}

type gzipReadCloser struct {
	body io.ReadCloser
	r    *gzip.Reader
}

func (grc *gzipReadCloser) Read(p []byte) (int, error) { return grc.r.Read(p) }

func (grc *gzipReadCloser) Close() error {
	if err := grc.r.Close(); err != nil {
		grc.body.Close()
		return err
	}
	return grc.body.Close()
}
