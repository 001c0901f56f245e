package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Source is one named input file. Its bytes are only ever read through
// ReadAt, so a Source can be shared by concurrent readers.
type Source struct {
	Name   string
	Size   int64
	reader io.ReaderAt
	closer io.Closer
}

// NewSource wraps an existing reader
func NewSource(name string, size int64, r io.ReaderAt) Source {
	return Source{Name: name, Size: size, reader: r}
}

// FromBytes creates an in-memory source
func FromBytes(name string, data []byte) Source {
	return Source{Name: name, Size: int64(len(data)), reader: bytes.NewReader(data)}
}

// Open opens a local file. The source must be closed by the caller.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Source{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return Source{}, fmt.Errorf("%s is a directory, not a file", path)
	}
	return Source{Name: filepath.Base(path), Size: info.Size(), reader: f, closer: f}, nil
}

// FromMultipart opens an uploaded form file
func FromMultipart(fh *multipart.FileHeader) (Source, error) {
	f, err := fh.Open()
	if err != nil {
		return Source{}, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	return Source{Name: UploadName(fh.Filename), Size: fh.Size, reader: f, closer: f}, nil
}

// UploadName reduces a client supplied file name to its last element.
// Browsers on Windows may send the full C:\ path.
func UploadName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ReadAt implements io.ReaderAt
func (s Source) ReadAt(p []byte, off int64) (int, error) {
	if s.reader == nil {
		return 0, io.ErrUnexpectedEOF
	}
	return s.reader.ReadAt(p, off)
}

// Close releases the underlying file, if any
func (s Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// CloseAll closes every source and joins the errors
func CloseAll(sources []Source) error {
	var errs []error
	for _, s := range sources {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Names returns the source names in order
func Names(sources []Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.Name
	}
	return out
}
