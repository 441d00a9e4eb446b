package metadata_test

import (
	"bytes"
	"errors"
	"testing"

	cerrors "github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/metadata"
)

func TestCompressedLengthRoundTrip(t *testing.T) {
	tests := []struct {
		length     uint32
		prefixSize int
	}{
		{0, 1},
		{1, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 4},
		{0x12345, 4},
	}

	for _, tt := range tests {
		prefix, err := metadata.EncodeCompressedLength(tt.length)
		if err != nil {
			t.Fatalf("Encode(%d): %v", tt.length, err)
		}
		if len(prefix) != tt.prefixSize {
			t.Errorf("Encode(%d) prefix is %d bytes, want %d", tt.length, len(prefix), tt.prefixSize)
		}

		payload := bytes.Repeat([]byte{0xAB}, int(tt.length))
		heap := append([]byte{0}, prefix...)
		heap = append(heap, payload...)

		got, err := metadata.NewBlobHeap(heap).Get(1)
		if err != nil {
			t.Fatalf("Get for length %d: %v", tt.length, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("length %d: got %d bytes back", tt.length, len(got))
		}
	}

	if _, err := metadata.EncodeCompressedLength(metadata.MaxCompressedLength + 1); err == nil {
		t.Error("expected error for length beyond 29 bits")
	}
}

func TestDecodeCompressedLengthKnownValues(t *testing.T) {
	// Examples from ECMA-335 II.23.2.
	tests := []struct {
		in   []byte
		want uint32
		size int
	}{
		{[]byte{0x03}, 0x03, 1},
		{[]byte{0x7F}, 0x7F, 1},
		{[]byte{0x80, 0x80}, 0x80, 2},
		{[]byte{0xAE, 0x57}, 0x2E57, 2},
		{[]byte{0xBF, 0xFF}, 0x3FFF, 2},
		{[]byte{0xC0, 0x00, 0x40, 0x00}, 0x4000, 4},
		{[]byte{0xDF, 0xFF, 0xFF, 0xFF}, 0x1FFFFFFF, 4},
	}
	for _, tt := range tests {
		got, size, err := metadata.DecodeCompressedLength(tt.in)
		if err != nil || got != tt.want || size != tt.size {
			t.Errorf("Decode(% x) = %#x, %d, %v; want %#x, %d", tt.in, got, size, err, tt.want, tt.size)
		}
	}
}

func TestBlobHeapErrors(t *testing.T) {
	tests := []struct {
		name string
		heap []byte
		idx  metadata.BlobIndex
		want error
	}{
		{"invalid 111 prefix", []byte{0, 0xE0, 0x01}, 1, cerrors.ErrMalformedBlobLength},
		{"invalid 111 prefix alone", []byte{0, 0xFF}, 1, cerrors.ErrMalformedBlobLength},
		{"two byte prefix truncated", []byte{0, 0x80}, 1, cerrors.ErrIndexOutOfRange},
		{"110 prefix with two bytes left", []byte{0, 0xC0, 0x05}, 1, cerrors.ErrMalformedBlobLength},
		{"110 prefix with three bytes left", []byte{0, 0xDF, 0xFF, 0xFF}, 1, cerrors.ErrMalformedBlobLength},
		{"span past end", []byte{0, 0x05, 1, 2}, 1, cerrors.ErrIndexOutOfRange},
		{"offset past end", []byte{0, 0x00}, 2, cerrors.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := metadata.NewBlobHeap(tt.heap).Get(tt.idx)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	var e *cerrors.Error
	_, err := metadata.NewBlobHeap([]byte{0, 0, 0xE5}).Get(2)
	if !errors.As(err, &e) || e.Offset != 2 || e.Phase != cerrors.PhaseHeap {
		t.Errorf("malformed prefix error = %+v", err)
	}
}

func TestBlobHeapNullIndex(t *testing.T) {
	b, err := metadata.NewBlobHeap(nil).Get(0)
	if err != nil || len(b) != 0 {
		t.Errorf("Get(0) on empty heap = %v, %v", b, err)
	}
}

func TestStringHeap(t *testing.T) {
	h := metadata.NewStringHeap([]byte("\x00<Module>\x00System\x00tail"))

	tests := []struct {
		idx  metadata.StringIndex
		want string
	}{
		{0, ""},
		{1, "<Module>"},
		{10, "System"},
		{13, "tem"},
	}
	for _, tt := range tests {
		got, err := h.Get(tt.idx)
		if err != nil || got != tt.want {
			t.Errorf("Get(%d) = %q, %v; want %q", tt.idx, got, err, tt.want)
		}
	}

	if _, err := h.Get(17); !errors.Is(err, cerrors.ErrUnterminatedString) {
		t.Errorf("unterminated: %v", err)
	}
	if _, err := h.Get(100); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("out of range: %v", err)
	}
	if s, err := metadata.NewStringHeap(nil).Get(0); err != nil || s != "" {
		t.Errorf("empty heap Get(0) = %q, %v", s, err)
	}
}

func TestGUIDHeap(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	h := metadata.NewGUIDHeap(data)

	if h.Len() != 2 {
		t.Errorf("Len = %d", h.Len())
	}
	if _, err := h.Get(0); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("Get(0) must fail, got %v", err)
	}
	g, err := h.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(g[:], data[:16]) {
		t.Errorf("Get(1) = %x", g)
	}
	g, err = h.Get(2)
	if err != nil || g[0] != 16 {
		t.Errorf("Get(2) = %x, %v", g, err)
	}
	if _, err := h.Get(3); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("Get(3): %v", err)
	}
}

func TestGUIDString(t *testing.T) {
	g := metadata.GUID{
		0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66,
		0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
	}
	if got, want := g.String(), "00112233-4455-6677-8899-aabbccddeeff"; got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestUserStringHeap(t *testing.T) {
	// "Hi€" in UTF-16LE plus terminal byte 1.
	entry := []byte{0x48, 0x00, 0x69, 0x00, 0xAC, 0x20, 0x01}
	heap := append([]byte{0, byte(len(entry))}, entry...)
	h := metadata.NewUserStringHeap(heap)

	s, err := h.String(1)
	if err != nil {
		t.Fatal(err)
	}
	if s != "Hi€" {
		t.Errorf("String = %q", s)
	}
	raw, _ := h.Get(1)
	if len(raw) != len(entry) {
		t.Errorf("Get returned %d bytes, want %d", len(raw), len(entry))
	}
	if _, err := h.String(50); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("out of range: %v", err)
	}
}
