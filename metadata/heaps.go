package metadata

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/binary"
)

// Stream names.
const (
	StreamTables             = "#~"
	StreamTablesUncompressed = "#-"
	StreamStrings            = "#Strings"
	StreamUserStrings        = "#US"
	StreamGUID               = "#GUID"
	StreamBlob               = "#Blob"
)

// MaxCompressedLength is the largest value a compressed length prefix can
// hold.
const MaxCompressedLength = 0x1FFFFFFF

// DecodeCompressedLength reads an ECMA-335 II.24.2.4 length prefix from the
// start of b. It returns the length and the size of the prefix.
func DecodeCompressedLength(b []byte) (length uint32, size int, err error) {
	s := cryptobyte.String(b)
	if len(s) == 0 {
		return 0, 0, errors.New(errors.PhaseHeap, errors.KindIndexOutOfRange).
			Detail("empty length prefix").Build()
	}

	lead := b[0]
	switch {
	case lead&0x80 == 0:
		return uint32(lead), 1, nil
	case lead&0xC0 == 0x80:
		var v uint16
		if !s.ReadUint16(&v) {
			return 0, 0, truncatedPrefix(2, len(b))
		}
		return uint32(v & 0x3FFF), 2, nil
	case lead&0xE0 == 0xC0:
		// A 110 lead with fewer than four bytes is not a decodable prefix.
		var v uint32
		if !s.ReadUint32(&v) {
			return 0, 0, errors.MalformedBlobLength(nil, errors.NoOffset, lead)
		}
		return v & MaxCompressedLength, 4, nil
	default:
		return 0, 0, errors.MalformedBlobLength(nil, errors.NoOffset, lead)
	}
}

func truncatedPrefix(need, have int) error {
	return errors.New(errors.PhaseHeap, errors.KindIndexOutOfRange).
		Detail("length prefix needs %d bytes, %d available", need, have).
		Build()
}

// EncodeCompressedLength returns the shortest prefix encoding n.
func EncodeCompressedLength(n uint32) ([]byte, error) {
	var b cryptobyte.Builder
	switch {
	case n < 0x80:
		b.AddUint8(uint8(n))
	case n < 0x4000:
		b.AddUint16(uint16(n) | 0x8000)
	case n <= MaxCompressedLength:
		b.AddUint32(n | 0xC0000000)
	default:
		return nil, errors.InvalidInput(errors.PhaseHeap,
			fmt.Sprintf("length %d exceeds %d", n, MaxCompressedLength))
	}
	return b.Bytes()
}

// StringHeap is the #Strings heap: NUL-terminated UTF-8 strings addressed by
// byte offset.
type StringHeap struct {
	data []byte
}

// NewStringHeap wraps a #Strings stream.
func NewStringHeap(data []byte) StringHeap { return StringHeap{data: data} }

// Len returns the heap size in bytes.
func (h StringHeap) Len() int { return len(h.data) }

// Bytes returns the string at idx without its terminator. Offset 0 is the
// empty string even when the heap is absent.
func (h StringHeap) Bytes(idx StringIndex) ([]byte, error) {
	if idx == 0 && len(h.data) == 0 {
		return nil, nil
	}
	if uint64(idx) >= uint64(len(h.data)) {
		return nil, errors.OutOfRange(errors.PhaseHeap, []string{StreamStrings}, uint64(idx), uint64(len(h.data)))
	}
	rest := h.data[idx:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return nil, errors.UnterminatedString(int64(idx))
	}
	return rest[:n:n], nil
}

// Get returns the string at idx.
func (h StringHeap) Get(idx StringIndex) (string, error) {
	b, err := h.Bytes(idx)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// blobSpan reads a length-prefixed entry at off. Blob and #US share the
// encoding.
func blobSpan(data []byte, stream string, off uint32) ([]byte, error) {
	if uint64(off) >= uint64(len(data)) {
		return nil, errors.OutOfRange(errors.PhaseHeap, []string{stream}, uint64(off), uint64(len(data)))
	}
	n, size, err := DecodeCompressedLength(data[off:])
	if err != nil {
		if errors.KindOf(err) == errors.KindMalformedBlobLength {
			return nil, errors.MalformedBlobLength([]string{stream}, int64(off), data[off])
		}
		return nil, errors.New(errors.PhaseHeap, errors.KindIndexOutOfRange).
			Path(stream).
			Offset(int64(off)).
			Cause(err).
			Detail("length prefix runs past end of heap").
			Build()
	}
	start := uint64(off) + uint64(size)
	end := start + uint64(n)
	if end > uint64(len(data)) {
		return nil, errors.OutOfRange(errors.PhaseHeap, []string{stream}, end, uint64(len(data)))
	}
	return data[start:end:end], nil
}

// BlobHeap is the #Blob heap.
type BlobHeap struct {
	data []byte
}

// NewBlobHeap wraps a #Blob stream.
func NewBlobHeap(data []byte) BlobHeap { return BlobHeap{data: data} }

// Len returns the heap size in bytes.
func (h BlobHeap) Len() int { return len(h.data) }

// Get returns the blob at idx without its length prefix. Offset 0 is the
// empty blob.
func (h BlobHeap) Get(idx BlobIndex) ([]byte, error) {
	if idx == 0 {
		return nil, nil
	}
	return blobSpan(h.data, StreamBlob, uint32(idx))
}

// UserStringHeap is the #US heap of string literals. Entries are UTF-16LE
// followed by one terminal byte.
type UserStringHeap struct {
	data []byte
}

// NewUserStringHeap wraps a #US stream.
func NewUserStringHeap(data []byte) UserStringHeap { return UserStringHeap{data: data} }

// Len returns the heap size in bytes.
func (h UserStringHeap) Len() int { return len(h.data) }

// Get returns the raw entry at idx, including the terminal byte.
func (h UserStringHeap) Get(idx UserStringIndex) ([]byte, error) {
	if idx == 0 {
		return nil, nil
	}
	return blobSpan(h.data, StreamUserStrings, uint32(idx))
}

// String decodes the entry at idx.
func (h UserStringHeap) String(idx UserStringIndex) (string, error) {
	raw, err := h.Get(idx)
	if err != nil {
		return "", err
	}
	if len(raw)%2 == 1 {
		raw = raw[:len(raw)-1]
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", errors.Wrap(errors.PhaseHeap, errors.KindInvalidInput, err, "invalid UTF-16 user string")
	}
	return string(out), nil
}

// GUID is a 16-byte GUID in its on-disk (mixed-endian) layout.
type GUID [16]byte

// String formats g as xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func (g GUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%x-%x",
		binary.Uint[uint32](g[0:4]),
		binary.Uint[uint16](g[4:6]),
		binary.Uint[uint16](g[6:8]),
		g[8:10], g[10:16])
}

// GUIDHeap is the #GUID heap: an array of 16-byte GUIDs addressed by 1-based
// index.
type GUIDHeap struct {
	data []byte
}

// NewGUIDHeap wraps a #GUID stream.
func NewGUIDHeap(data []byte) GUIDHeap { return GUIDHeap{data: data} }

// Len returns the number of GUIDs.
func (h GUIDHeap) Len() int { return len(h.data) / 16 }

// Get returns GUID idx. Index 0 is null and always fails.
func (h GUIDHeap) Get(idx GUIDIndex) (GUID, error) {
	var g GUID
	if idx == 0 {
		return g, errors.New(errors.PhaseHeap, errors.KindIndexOutOfRange).
			Path(StreamGUID).
			Value(uint64(0)).
			Detail("guid index 0 is null").
			Build()
	}
	end := uint64(idx) * 16
	if end > uint64(len(h.data)) {
		return g, errors.OutOfRange(errors.PhaseHeap, []string{StreamGUID}, uint64(idx), uint64(h.Len()))
	}
	copy(g[:], h.data[end-16:end])
	return g, nil
}
