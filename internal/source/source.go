// Package source provides the byte sources the upload pipeline reads parts
// from: local files and S3 compatible objects.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ascgate/internal/common"
)

// Source is a sized, random access byte source.
type Source interface {
	io.ReaderAt
	io.Closer
	Size() int64
	Name() string

	// Section streams n bytes starting at off with a single read of the
	// backing store. The caller closes the returned reader.
	Section(ctx context.Context, off, n int64) (io.ReadCloser, error)
}

type file struct {
	f    *os.File
	size int64
}

// OpenFile opens a local file.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &file{f: f, size: st.Size()}, nil
}

func (f *file) ReadAt(p []byte, off int64) (int, error) { return f.f.ReadAt(p, off) }
func (f *file) Close() error                             { return f.f.Close() }
func (f *file) Size() int64                              { return f.size }
func (f *file) Name() string                             { return filepath.Base(f.f.Name()) }

func (f *file) Section(_ context.Context, off, n int64) (io.ReadCloser, error) {
	if err := checkRange(off, n, f.size); err != nil {
		return nil, err
	}
	return io.NopCloser(io.NewSectionReader(f.f, off, n)), nil
}

func checkRange(off, n, size int64) error {
	if off < 0 || n < 0 || off+n > size {
		return fmt.Errorf("range %d+%d is outside %d bytes", off, n, size)
	}
	return nil
}

// Open dispatches on ref: "s3://bucket/key" is read through client, anything
// else is a local path.
func Open(ctx context.Context, ref string, client S3API) (Source, error) {
	if !strings.HasPrefix(ref, "s3://") {
		return OpenFile(ref)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: %s needs S3 settings", common.ErrConfiguration, ref)
	}
	bucket, key, err := ParseS3URI(ref)
	if err != nil {
		return nil, err
	}
	return OpenS3(ctx, client, bucket, key)
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not an s3 uri", common.ErrConfiguration, ref)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs a bucket and a key", common.ErrConfiguration, ref)
	}
	return bucket, key, nil
}
