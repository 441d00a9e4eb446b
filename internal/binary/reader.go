// Package binary provides a little-endian cursor over an in-memory image.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

// ErrShortRead is returned when a read runs past the end of the buffer.
var ErrShortRead = errors.New("read past end of buffer")

// Reader is a position-tracking cursor over a byte slice. It never copies
// the underlying data: ReadBytes returns sub-slices.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// NewReaderAt creates a Reader positioned at off.
func NewReaderAt(data []byte, off int) (*Reader, error) {
	r := &Reader{data: data}
	if err := r.Seek(off); err != nil {
		return nil, err
	}
	return r, nil
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// Seek moves the cursor to an absolute position. Seeking to len(data) is
// allowed; anything beyond is an error.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return r.wrapError(fmt.Errorf("seek to %d: %w", pos, ErrShortRead))
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > r.Len() {
		return r.wrapError(fmt.Errorf("skip %d: %w", n, ErrShortRead))
	}
	r.pos += n
	return nil
}

// Align advances the cursor to the next multiple of n.
func (r *Reader) Align(n int) error {
	if rem := r.pos % n; rem != 0 {
		return r.Skip(n - rem)
	}
	return nil
}

// ReadBytes returns the next n bytes as a sub-slice of the buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, r.wrapError(fmt.Errorf("read %d bytes: %w", n, ErrShortRead))
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU8 reads a uint8.
func (r *Reader) ReadU8() (uint8, error) { return readLE[uint8](r, 1) }

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) { return readLE[uint16](r, 2) }

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) { return readLE[uint32](r, 4) }

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) { return readLE[uint64](r, 8) }

// ReadCString reads a NUL-terminated string of at most max bytes, not
// counting the terminator. The terminator is consumed.
func (r *Reader) ReadCString(max int) (string, error) {
	for i := r.pos; i < len(r.data) && i-r.pos <= max; i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", r.wrapError(errors.New("unterminated string"))
}

func readLE[T constraints.Unsigned](r *Reader, size int) (T, error) {
	b, err := r.ReadBytes(size)
	if err != nil {
		return 0, err
	}
	return Uint[T](b), nil
}

// Uint decodes a little-endian unsigned value of len(b) bytes (1, 2, 4 or 8).
func Uint[T constraints.Unsigned](b []byte) T {
	switch len(b) {
	case 1:
		return T(b[0])
	case 2:
		return T(binary.LittleEndian.Uint16(b))
	case 4:
		return T(binary.LittleEndian.Uint32(b))
	case 8:
		return T(binary.LittleEndian.Uint64(b))
	default:
		panic(fmt.Sprintf("binary: unsupported width %d", len(b)))
	}
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// ParseError represents an error during binary parsing with position information.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("%s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError creates a ParseError with the current position.
func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{
		Position: r.pos,
		Section:  section,
		Err:      err,
	}
}
