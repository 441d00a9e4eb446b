package binary

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderReadBytesIsView(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	r := NewReader(data)

	got, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("ReadBytes: got %v, want [1 2 3]", got)
	}
	if &got[0] != &data[0] {
		t.Error("ReadBytes should return a sub-slice, not a copy")
	}
	if cap(got) != 3 {
		t.Errorf("cap = %d, want 3", cap(got))
	}

	if r.Position() != 3 {
		t.Errorf("position: got %d, want 3", r.Position())
	}

	_, err = r.ReadBytes(10)
	if !errors.Is(err, ErrShortRead) {
		t.Errorf("expected ErrShortRead, got %v", err)
	}
	if r.Position() != 3 {
		t.Errorf("failed read moved position to %d", r.Position())
	}
}

func TestReaderLittleEndian(t *testing.T) {
	data := []byte{
		0xAA,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01,
	}
	r := NewReader(data)

	u8, err := r.ReadU8()
	if err != nil || u8 != 0xAA {
		t.Errorf("ReadU8 = %#x, %v", u8, err)
	}
	u16, err := r.ReadU16()
	if err != nil || u16 != 0x1234 {
		t.Errorf("ReadU16 = %#x, %v", u16, err)
	}
	u32, err := r.ReadU32()
	if err != nil || u32 != 0x12345678 {
		t.Errorf("ReadU32 = %#x, %v", u32, err)
	}
	u64, err := r.ReadU64()
	if err != nil || u64 != 0x0123456789ABCDEF {
		t.Errorf("ReadU64 = %#x, %v", u64, err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
	if _, err := r.ReadU16(); err == nil {
		t.Error("expected error reading past end")
	}
}

func TestUintWidths(t *testing.T) {
	tests := []struct {
		in   []byte
		want uint64
	}{
		{[]byte{0x7f}, 0x7f},
		{[]byte{0x01, 0x02}, 0x0201},
		{[]byte{0x01, 0x02, 0x03, 0x04}, 0x04030201},
		{[]byte{1, 0, 0, 0, 0, 0, 0, 0x80}, 0x8000000000000001},
	}
	for _, tt := range tests {
		if got := Uint[uint64](tt.in); got != tt.want {
			t.Errorf("Uint(%v) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestUintPanicsOnOddWidth(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for width 3")
		}
	}()
	Uint[uint32]([]byte{1, 2, 3})
}

func TestReaderSeekSkipAlign(t *testing.T) {
	r := NewReader(make([]byte, 10))

	if err := r.Skip(3); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if err := r.Align(4); err != nil {
		t.Fatalf("Align: %v", err)
	}
	if r.Position() != 4 {
		t.Errorf("after Align(4): %d, want 4", r.Position())
	}
	if err := r.Align(4); err != nil || r.Position() != 4 {
		t.Errorf("Align on boundary moved to %d (%v)", r.Position(), err)
	}
	if err := r.Seek(10); err != nil {
		t.Errorf("Seek to end: %v", err)
	}
	if err := r.Seek(11); err == nil {
		t.Error("Seek beyond end should fail")
	}
	if err := r.Skip(1); err == nil {
		t.Error("Skip beyond end should fail")
	}
}

func TestNewReaderAt(t *testing.T) {
	r, err := NewReaderAt([]byte{0, 0, 0x2A}, 2)
	if err != nil {
		t.Fatalf("NewReaderAt: %v", err)
	}
	b, _ := r.ReadU8()
	if b != 0x2A {
		t.Errorf("got %#x, want 0x2a", b)
	}
	if _, err := NewReaderAt([]byte{0}, 5); err == nil {
		t.Error("expected error for offset beyond buffer")
	}
}

func TestReaderReadCString(t *testing.T) {
	r := NewReader([]byte("#~\x00\x00#Strings\x00"))

	s, err := r.ReadCString(32)
	if err != nil || s != "#~" {
		t.Fatalf("ReadCString = %q, %v", s, err)
	}
	if r.Position() != 3 {
		t.Errorf("position = %d, want 3", r.Position())
	}
	if err := r.Align(4); err != nil {
		t.Fatal(err)
	}
	s, err = r.ReadCString(32)
	if err != nil || s != "#Strings" {
		t.Fatalf("ReadCString = %q, %v", s, err)
	}

	if _, err := NewReader([]byte("abc")).ReadCString(32); err == nil {
		t.Error("expected error for unterminated string")
	}
	if _, err := NewReader([]byte("abcdef\x00")).ReadCString(3); err == nil {
		t.Error("expected error for string longer than max")
	}
}

func TestParseError(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, _ = r.ReadU8()
	err := r.WrapError("dos header", ErrShortRead)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Position != 1 || pe.Section != "dos header" {
		t.Errorf("ParseError = %+v", pe)
	}
	if !errors.Is(err, ErrShortRead) {
		t.Error("ParseError should unwrap to its cause")
	}
	if got := err.Error(); got != "dos header at position 1: read past end of buffer" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	w.Byte(0xAA)
	w.WriteU16(0x1234)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0102030405060708)
	w.WriteUint(0x5566, 2)
	w.WriteUint(0x778899AA, 4)
	w.WriteCString("#~")
	w.Align(4)

	if w.Len()%4 != 0 {
		t.Fatalf("Align(4) left length %d", w.Len())
	}

	r := NewReader(w.Bytes())
	if b, _ := r.ReadU8(); b != 0xAA {
		t.Errorf("u8 = %#x", b)
	}
	if v, _ := r.ReadU16(); v != 0x1234 {
		t.Errorf("u16 = %#x", v)
	}
	if v, _ := r.ReadU32(); v != 0xDEADBEEF {
		t.Errorf("u32 = %#x", v)
	}
	if v, _ := r.ReadU64(); v != 0x0102030405060708 {
		t.Errorf("u64 = %#x", v)
	}
	if v, _ := r.ReadU16(); v != 0x5566 {
		t.Errorf("WriteUint(2) = %#x", v)
	}
	if v, _ := r.ReadU32(); v != 0x778899AA {
		t.Errorf("WriteUint(4) = %#x", v)
	}
	if s, err := r.ReadCString(8); err != nil || s != "#~" {
		t.Errorf("cstring = %q, %v", s, err)
	}
}

func TestWriterZeroAndAlignNoop(t *testing.T) {
	w := NewWriter()
	w.Zero(4)
	w.Align(4)
	if !bytes.Equal(w.Bytes(), []byte{0, 0, 0, 0}) {
		t.Errorf("bytes = %v", w.Bytes())
	}
}

func TestWriterUintPanicsOnOddWidth(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for width 3")
		}
	}()
	NewWriter().WriteUint(1, 3)
}
