package metadata

import (
	"bytes"

	"github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/binary"
)

// RootSignature is "BSJB" read as a little-endian uint32.
const RootSignature uint32 = 0x424A5342

// maxStreamName bounds a stream name including its terminator.
const maxStreamName = 32

// StreamHeader locates one stream relative to the metadata root.
type StreamHeader struct {
	Offset uint32
	Size   uint32
	Name   string
}

// Root is the metadata root (ECMA-335 II.24.2.1) with its stream headers.
type Root struct {
	Signature    uint32
	MajorVersion uint16
	MinorVersion uint16
	Reserved     uint32
	Length       uint32 // padded length of Version
	Version      string
	Flags        uint16
	Streams      []StreamHeader

	data []byte
}

// ParseRoot decodes the metadata root at the start of b. Every stream must
// lie within b.
func ParseRoot(b []byte) (*Root, error) {
	r := binary.NewReader(b)
	root := &Root{data: b}

	if r.Len() < 16 {
		return nil, errors.MalformedMetadataRoot("root is %d bytes, need at least 16", len(b))
	}
	root.Signature, _ = r.ReadU32()
	if root.Signature != RootSignature {
		return nil, errors.MalformedMetadataRoot("invalid signature %#08x", root.Signature)
	}
	root.MajorVersion, _ = r.ReadU16()
	root.MinorVersion, _ = r.ReadU16()
	root.Reserved, _ = r.ReadU32()
	root.Length, _ = r.ReadU32()

	version, err := r.ReadBytes(int(root.Length))
	if err != nil || root.Length > 255 {
		return nil, errors.New(errors.PhaseMetadataRoot, errors.KindMalformedMetadataRoot).
			Path("version").
			Cause(err).
			Detail("version length %d does not fit in %d byte root", root.Length, len(b)).
			Build()
	}
	if i := bytes.IndexByte(version, 0); i >= 0 {
		version = version[:i]
	}
	root.Version = string(version)

	if r.Len() < 4 {
		return nil, errors.MalformedMetadataRoot("root ends before stream count")
	}
	root.Flags, _ = r.ReadU16()
	count, _ := r.ReadU16()

	root.Streams = make([]StreamHeader, 0, count)
	for i := 0; i < int(count); i++ {
		sh, err := readStreamHeader(r)
		if err != nil {
			return nil, errors.New(errors.PhaseMetadataRoot, errors.KindMalformedMetadataRoot).
				Path("streams").
				Cause(err).
				Detail("stream header %d", i).
				Build()
		}
		if end := uint64(sh.Offset) + uint64(sh.Size); end > uint64(len(b)) {
			return nil, errors.New(errors.PhaseMetadataRoot, errors.KindMalformedMetadataRoot).
				Path("streams", sh.Name).
				Offset(int64(sh.Offset)).
				Detail("stream ends at %d, root is %d bytes", end, len(b)).
				Build()
		}
		root.Streams = append(root.Streams, sh)
	}
	return root, nil
}

func readStreamHeader(r *binary.Reader) (StreamHeader, error) {
	var sh StreamHeader
	var err error
	if sh.Offset, err = r.ReadU32(); err != nil {
		return sh, err
	}
	if sh.Size, err = r.ReadU32(); err != nil {
		return sh, err
	}
	if sh.Name, err = r.ReadCString(maxStreamName - 1); err != nil {
		return sh, err
	}
	// Names are padded to a multiple of 4 bytes; headers start aligned.
	return sh, r.Align(4)
}

// Stream returns the bytes of the first stream with the given name.
func (r *Root) Stream(name string) ([]byte, bool) {
	for _, s := range r.Streams {
		if s.Name == name {
			end := s.Offset + s.Size
			return r.data[s.Offset:end:end], true
		}
	}
	return nil, false
}

// TablesStream returns the #~ stream, or the uncompressed #- stream when
// #~ is absent. The name reports which one was found.
func (r *Root) TablesStream() (name string, data []byte, ok bool) {
	if data, ok = r.Stream(StreamTables); ok {
		return StreamTables, data, true
	}
	if data, ok = r.Stream(StreamTablesUncompressed); ok {
		return StreamTablesUncompressed, data, true
	}
	return "", nil, false
}

// Bytes returns the whole metadata block.
func (r *Root) Bytes() []byte {
	return r.data
}
