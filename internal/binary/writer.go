package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Writer accumulates a little-endian image. It backs the test image builder.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteU16 writes a little-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	w.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

// WriteU32 writes a little-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

// WriteU64 writes a little-endian uint64.
func (w *Writer) WriteU64(v uint64) {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

// WriteUint writes v in width bytes (1, 2, 4 or 8).
func (w *Writer) WriteUint(v uint64, width int) {
	switch width {
	case 1:
		w.Byte(byte(v))
	case 2:
		w.WriteU16(uint16(v))
	case 4:
		w.WriteU32(uint32(v))
	case 8:
		w.WriteU64(v)
	default:
		panic(fmt.Sprintf("binary: unsupported width %d", width))
	}
}

// WriteCString writes s followed by a NUL.
func (w *Writer) WriteCString(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// Zero writes n zero bytes.
func (w *Writer) Zero(n int) {
	for range n {
		w.buf.WriteByte(0)
	}
}

// Align pads with zeros to the next multiple of n.
func (w *Writer) Align(n int) {
	if rem := w.buf.Len() % n; rem != 0 {
		w.Zero(n - rem)
	}
}
