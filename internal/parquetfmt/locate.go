package parquetfmt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MagicSize is the length of the leading and trailing magic markers
	MagicSize = 4
	// TrailerSize covers the footer length field plus the trailing magic
	TrailerSize = 8
	// MinFileSize is header magic plus trailer
	MinFileSize = MagicSize + TrailerSize
	// DefaultMaxFooterSize caps the footer bytes read for one file
	DefaultMaxFooterSize int64 = 64 << 20
)

var (
	magicPlain     = []byte("PAR1")
	magicEncrypted = []byte("PARE")
)

// FooterBlock locates the serialized metadata inside a file
type FooterBlock struct {
	Offset        int64
	Length        int64
	FileSize      int64
	Magic         string
	FormatVersion int32
}

// Locator finds and reads footers. The zero value uses DefaultMaxFooterSize.
type Locator struct {
	MaxFooterSize int64
}

// NewLocator creates a locator with the given footer cap. Non-positive caps
// fall back to DefaultMaxFooterSize.
func NewLocator(maxFooterSize int64) *Locator {
	return &Locator{MaxFooterSize: maxFooterSize}
}

func (l *Locator) maxFooter() int64 {
	if l == nil || l.MaxFooterSize <= 0 {
		return DefaultMaxFooterSize
	}
	return l.MaxFooterSize
}

// Locate verifies both magic markers and returns the footer position. Only
// the header magic and the fixed trailer are read.
func (l *Locator) Locate(r io.ReaderAt, size int64) (FooterBlock, error) {
	if size < MinFileSize {
		return FooterBlock{}, newFormatError(KindTruncated, -1,
			"file is %d bytes, need at least %d", size, MinFileSize)
	}

	var head [MagicSize]byte
	if err := readFull(r, head[:], 0); err != nil {
		return FooterBlock{}, err
	}
	var tail [TrailerSize]byte
	tailOffset := size - TrailerSize
	if err := readFull(r, tail[:], tailOffset); err != nil {
		return FooterBlock{}, err
	}

	switch {
	case bytes.Equal(head[:], magicEncrypted) || bytes.Equal(tail[4:], magicEncrypted):
		return FooterBlock{}, newFormatError(KindBadMagic, 0, "encrypted footer is not supported")
	case !bytes.Equal(head[:], magicPlain):
		return FooterBlock{}, newFormatError(KindBadMagic, 0, "leading magic %q, want %q", head[:], magicPlain)
	case !bytes.Equal(tail[4:], magicPlain):
		// a valid header with a missing trailer means the file was cut short
		return FooterBlock{}, newFormatError(KindTruncated, tailOffset+4,
			"trailing magic %q missing", magicPlain)
	}

	length := int64(binary.LittleEndian.Uint32(tail[:4]))
	if length == 0 {
		return FooterBlock{}, newFormatError(KindTruncated, tailOffset, "footer length is zero")
	}
	if limit := l.maxFooter(); length > limit {
		return FooterBlock{}, newFormatError(KindFooterTooLarge, tailOffset,
			"footer length %d exceeds limit %d", length, limit)
	}
	available := size - MinFileSize
	if length > available {
		return FooterBlock{}, newFormatError(KindTruncated, tailOffset,
			"footer length %d exceeds available %d bytes", length, available)
	}

	return FooterBlock{
		Offset:        tailOffset - length,
		Length:        length,
		FileSize:      size,
		Magic:         string(magicPlain),
		FormatVersion: 1,
	}, nil
}

// ReadFooter reads exactly block.Length bytes of footer
func (l *Locator) ReadFooter(r io.ReaderAt, block FooterBlock) ([]byte, error) {
	if block.Length <= 0 || block.Offset < MagicSize || block.Offset+block.Length+TrailerSize > block.FileSize {
		return nil, newFormatError(KindTruncated, block.Offset,
			"footer [%d,+%d) outside file of %d bytes", block.Offset, block.Length, block.FileSize)
	}
	if limit := l.maxFooter(); block.Length > limit {
		return nil, newFormatError(KindFooterTooLarge, block.Offset,
			"footer length %d exceeds limit %d", block.Length, limit)
	}
	buf := make([]byte, block.Length)
	if err := readFull(r, buf, block.Offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// Locate uses a default Locator
func Locate(r io.ReaderAt, size int64) (FooterBlock, error) {
	return (*Locator)(nil).Locate(r, size)
}

// ReadFooter uses a default Locator
func ReadFooter(r io.ReaderAt, block FooterBlock) ([]byte, error) {
	return (*Locator)(nil).ReadFooter(r, block)
}

// ReadMetaData locates, reads and decodes the footer of one file
func (l *Locator) ReadMetaData(r io.ReaderAt, size int64) (FooterBlock, *FileMetaData, error) {
	block, err := l.Locate(r, size)
	if err != nil {
		return FooterBlock{}, nil, err
	}
	footer, err := l.ReadFooter(r, block)
	if err != nil {
		return block, nil, err
	}
	meta, err := DecodeFileMetaData(footer)
	if err != nil {
		return block, nil, err
	}
	return block, meta, nil
}

// readFull reads len(buf) bytes at off. A short read means the source is
// smaller than it claimed.
func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &FormatError{
			Kind:   KindTruncated,
			Detail: fmt.Sprintf("short read: got %d of %d bytes", n, len(buf)),
			Offset: off,
			Err:    err,
		}
	}
	return fmt.Errorf("read %d bytes at offset %d: %w", len(buf), off, err)
}
