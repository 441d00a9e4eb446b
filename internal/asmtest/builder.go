// Package asmtest builds small PE images with CLI metadata for tests.
//
// A Builder collects heap entries and table rows, then lays them out as a
// single-section PE32 or PE32+ image:
//
//	b := asmtest.New()
//	name := b.String("<Module>")
//	b.AddRow(metadata.TableModule, 0, uint32(name), uint32(b.GUID(mvid)), 0, 0)
//	img := b.Build()
package asmtest

import (
	"slices"
	"unicode/utf16"

	"github.com/wippyai/cilium/internal/binary"
	"github.com/wippyai/cilium/metadata"
	"github.com/wippyai/cilium/pe"
)

// Fixed placement of the generated image.
const (
	FileAlignment    = 0x200
	SectionAlignment = 0x2000
	TextRVA          = 0x2000
	TextOffset       = 0x200
	LFANew           = 0x80
	MetadataOffset   = metadata.CLIHeaderSize // inside .text
	DefaultVersion   = "v4.0.30319"
)

// Builder assembles a test image. The zero value is not usable; call New.
type Builder struct {
	// PE64 selects a PE32+ optional header.
	PE64 bool
	// NoCLI leaves data directory 14 empty, producing a plain PE.
	NoCLI bool
	// HeapSizes is ORed into the computed heap-sizes byte.
	HeapSizes metadata.HeapSizes
	// Uncompressed names the tables stream "#-" instead of "#~".
	Uncompressed bool
	// ExtraData, when non-zero, sets the ExtraData flag and writes the value.
	ExtraData uint32
	// Version is the metadata root version string.
	Version string
	// Flags and EntryPoint fill the CLI header.
	Flags      metadata.RuntimeFlags
	EntryPoint metadata.Token
	// Streams appended after the standard ones, by name.
	ExtraStreams map[string][]byte
	// Resources and StrongName become CLI header directories when set.
	Resources  []byte
	StrongName []byte
	// NumberOfRvaAndSizes overrides the optional header count when non-zero.
	NumberOfRvaAndSizes uint32

	strings     []byte
	stringIndex map[string]metadata.StringIndex
	blobs       []byte
	guids       []byte
	userStrings []byte
	rows        [metadata.MaxTables][][]uint32
	present     uint64
}

// New creates a Builder with empty heaps. Each heap starts with its null
// entry, so offset 0 is never a real value.
func New() *Builder {
	return &Builder{
		Version:     DefaultVersion,
		Flags:       metadata.RuntimeILOnly,
		strings:     []byte{0},
		stringIndex: map[string]metadata.StringIndex{"": 0},
		blobs:       []byte{0},
		userStrings: []byte{0},
	}
}

// String adds s to #Strings and returns its offset. Equal strings share an
// entry.
func (b *Builder) String(s string) metadata.StringIndex {
	if idx, ok := b.stringIndex[s]; ok {
		return idx
	}
	idx := metadata.StringIndex(len(b.strings))
	b.strings = append(b.strings, s...)
	b.strings = append(b.strings, 0)
	b.stringIndex[s] = idx
	return idx
}

// Blob adds data to #Blob with a minimal length prefix.
func (b *Builder) Blob(data []byte) metadata.BlobIndex {
	idx := metadata.BlobIndex(len(b.blobs))
	prefix, err := metadata.EncodeCompressedLength(uint32(len(data)))
	if err != nil {
		panic(err)
	}
	b.blobs = append(b.blobs, prefix...)
	b.blobs = append(b.blobs, data...)
	return idx
}

// GUID adds g to #GUID and returns its 1-based index.
func (b *Builder) GUID(g metadata.GUID) metadata.GUIDIndex {
	b.guids = append(b.guids, g[:]...)
	return metadata.GUIDIndex(len(b.guids) / 16)
}

// UserString adds s to #US as UTF-16LE plus the terminal byte.
func (b *Builder) UserString(s string) metadata.UserStringIndex {
	idx := metadata.UserStringIndex(len(b.userStrings))
	var payload []byte
	var special byte
	for _, u := range utf16.Encode([]rune(s)) {
		payload = append(payload, byte(u), byte(u>>8))
		if u >= 0x80 {
			special = 1
		}
	}
	payload = append(payload, special)
	prefix, err := metadata.EncodeCompressedLength(uint32(len(payload)))
	if err != nil {
		panic(err)
	}
	b.userStrings = append(b.userStrings, prefix...)
	b.userStrings = append(b.userStrings, payload...)
	return idx
}

// RawBlobHeap replaces #Blob with data verbatim.
func (b *Builder) RawBlobHeap(data []byte) {
	b.blobs = slices.Clone(data)
}

// RawStringHeap replaces #Strings with data verbatim.
func (b *Builder) RawStringHeap(data []byte) {
	b.strings = slices.Clone(data)
	b.stringIndex = map[string]metadata.StringIndex{}
}

// AddRow appends a row to table id. Values are raw column values in schema
// order; use Coded for coded index columns.
func (b *Builder) AddRow(id metadata.TableID, values ...uint32) uint32 {
	cols, ok := metadata.Schema(id)
	if !ok {
		panic("asmtest: no schema for " + id.String())
	}
	if len(values) != len(cols) {
		panic("asmtest: wrong column count for " + id.String())
	}
	b.rows[id] = append(b.rows[id], slices.Clone(values))
	b.present |= 1 << id
	return uint32(len(b.rows[id]))
}

// AddRows appends n zero rows to table id.
func (b *Builder) AddRows(id metadata.TableID, n int) {
	cols, ok := metadata.Schema(id)
	if !ok {
		panic("asmtest: no schema for " + id.String())
	}
	for range n {
		b.rows[id] = append(b.rows[id], make([]uint32, len(cols)))
	}
	b.present |= 1 << id
}

// MarkPresent sets the valid bit of id without adding rows. It is used to
// declare tables the decoder has no schema for.
func (b *Builder) MarkPresent(id metadata.TableID) {
	b.present |= 1 << id
}

// Coded encodes a coded index value, panicking on a table outside k.
func Coded(k metadata.CodedKind, t metadata.TableID, row uint32) uint32 {
	v, ok := k.Encode(metadata.CodedIndex{Table: t, Row: row})
	if !ok {
		panic("asmtest: " + t.String() + " is not a member of " + k.String())
	}
	return v
}

// Minimal adds the Module row and the <Module> TypeDef every assembly has.
func (b *Builder) Minimal() *Builder {
	name := b.String("<Module>")
	mvid := b.GUID(metadata.GUID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10})
	b.AddRow(metadata.TableModule, 0, uint32(name), uint32(mvid), 0, 0)
	b.AddRow(metadata.TableTypeDef, 0, uint32(name), 0, 0, 1, 1)
	return b
}

// Image is a built test image and the offsets of its parts.
type Image struct {
	Bytes []byte

	// File offsets.
	CLIHeader  int
	Metadata   int
	Tables     int
	Resources  int
	StrongName int

	Sizes *metadata.IndexSizes
}

// Build lays out the image.
func (b *Builder) Build() *Image {
	img := &Image{}

	tables := b.tablesStream(img)
	md := b.metadataRoot(tables, img)

	text := binary.NewWriter()
	text.Zero(metadata.CLIHeaderSize)
	text.WriteBytes(md)
	text.Align(4)
	resOff := text.Len()
	text.WriteBytes(b.Resources)
	text.Align(4)
	snOff := text.Len()
	text.WriteBytes(b.StrongName)
	text.Align(4)

	content := text.Bytes()
	b.writeCLIHeader(content[:metadata.CLIHeaderSize], len(md), resOff, snOff)

	img.CLIHeader = TextOffset
	img.Metadata = TextOffset + MetadataOffset
	img.Tables += img.Metadata
	img.Resources = TextOffset + resOff
	img.StrongName = TextOffset + snOff
	img.Bytes = b.container(content)
	return img
}

func (b *Builder) writeCLIHeader(dst []byte, mdSize, resOff, snOff int) {
	w := binary.NewWriter()
	w.WriteU32(metadata.CLIHeaderSize)
	w.WriteU16(2)
	w.WriteU16(5)
	w.WriteU32(TextRVA + MetadataOffset)
	w.WriteU32(uint32(mdSize))
	w.WriteU32(uint32(b.Flags))
	w.WriteU32(uint32(b.EntryPoint))
	writeDir(w, resOff, len(b.Resources))
	writeDir(w, snOff, len(b.StrongName))
	w.Zero(8 * 4) // CodeManagerTable through ManagedNativeHeader
	copy(dst, w.Bytes())
}

func writeDir(w *binary.Writer, off, size int) {
	if size == 0 {
		w.WriteU64(0)
		return
	}
	w.WriteU32(uint32(TextRVA + off))
	w.WriteU32(uint32(size))
}

// heapSizes returns the heap-sizes byte, widening any heap that outgrows
// 16-bit offsets.
func (b *Builder) heapSizes() metadata.HeapSizes {
	hs := b.HeapSizes
	if len(b.strings) > 0xFFFF {
		hs |= metadata.HeapStringsWide
	}
	if len(b.guids)/16 > 0xFFFF {
		hs |= metadata.HeapGUIDWide
	}
	if len(b.blobs) > 0xFFFF {
		hs |= metadata.HeapBlobWide
	}
	if b.ExtraData != 0 {
		hs |= metadata.HeapExtraData
	}
	return hs
}

func (b *Builder) tablesStream(img *Image) []byte {
	var counts [metadata.MaxTables]uint32
	for id := range metadata.MaxTables {
		counts[id] = uint32(len(b.rows[id]))
	}
	hs := b.heapSizes()
	sizes := metadata.NewIndexSizes(hs, counts)
	img.Sizes = sizes

	w := binary.NewWriter()
	w.WriteU32(0)
	w.Byte(2)
	w.Byte(0)
	w.Byte(byte(hs))
	w.Byte(1)
	w.WriteU64(b.present)
	w.WriteU64(0)
	for id := range metadata.MaxTables {
		if b.present&(1<<id) != 0 {
			w.WriteU32(counts[id])
		}
	}
	if hs.Has(metadata.HeapExtraData) {
		w.WriteU32(b.ExtraData)
	}
	for id := range metadata.MaxTables {
		cols, ok := metadata.Schema(metadata.TableID(id))
		if !ok {
			continue
		}
		for _, row := range b.rows[id] {
			for i, c := range cols {
				w.WriteUint(uint64(row[i]), sizes.ColumnWidth(c))
			}
		}
	}
	w.Align(4)
	return w.Bytes()
}

type stream struct {
	name string
	data []byte
}

func (b *Builder) metadataRoot(tables []byte, img *Image) []byte {
	tablesName := metadata.StreamTables
	if b.Uncompressed {
		tablesName = metadata.StreamTablesUncompressed
	}
	streams := []stream{
		{tablesName, tables},
		{metadata.StreamStrings, pad4(b.strings)},
		{metadata.StreamUserStrings, pad4(b.userStrings)},
		{metadata.StreamGUID, b.guids},
		{metadata.StreamBlob, pad4(b.blobs)},
	}
	names := make([]string, 0, len(b.ExtraStreams))
	for name := range b.ExtraStreams {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		streams = append(streams, stream{name, pad4(b.ExtraStreams[name])})
	}

	version := make([]byte, (len(b.Version)+1+3)&^3)
	copy(version, b.Version)

	headerSize := 16 + len(version) + 4
	for _, s := range streams {
		headerSize += 8 + (len(s.name)+1+3)&^3
	}

	w := binary.NewWriter()
	w.WriteU32(metadata.RootSignature)
	w.WriteU16(1)
	w.WriteU16(1)
	w.WriteU32(0)
	w.WriteU32(uint32(len(version)))
	w.WriteBytes(version)
	w.WriteU16(0)
	w.WriteU16(uint16(len(streams)))

	off := headerSize
	for i, s := range streams {
		if i == 0 {
			img.Tables = off
		}
		w.WriteU32(uint32(off))
		w.WriteU32(uint32(len(s.data)))
		w.WriteCString(s.name)
		w.Align(4)
		off += len(s.data)
	}
	for _, s := range streams {
		w.WriteBytes(s.data)
	}
	return w.Bytes()
}

func pad4(b []byte) []byte {
	out := slices.Clone(b)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// container wraps the .text content in DOS, PE and section headers.
func (b *Builder) container(content []byte) []byte {
	optSize := pe.OptionalHeader32Size
	magic := pe.MagicPE32
	machine := pe.MachineI386
	if b.PE64 {
		optSize = pe.OptionalHeader64Size
		magic = pe.MagicPE32Plus
		machine = pe.MachineAMD64
	}
	rawSize := (len(content) + FileAlignment - 1) &^ (FileAlignment - 1)
	nDirs := uint32(pe.NumDataDirectories)
	if b.NumberOfRvaAndSizes != 0 {
		nDirs = b.NumberOfRvaAndSizes
	}

	w := binary.NewWriter()
	w.WriteU16(pe.DOSMagic)
	w.Zero(0x3C - 2)
	w.WriteU32(LFANew)
	w.Zero(LFANew - 0x40)

	w.WriteU32(pe.PESignature)
	w.WriteU16(machine)
	w.WriteU16(1) // sections
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU16(uint16(optSize))
	w.WriteU16(0x2102) // executable, 32-bit, dll

	w.WriteU16(magic)
	w.Byte(11)
	w.Byte(0)
	w.WriteU32(uint32(rawSize)) // SizeOfCode
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU32(0) // AddressOfEntryPoint
	w.WriteU32(TextRVA)
	if b.PE64 {
		w.WriteU64(0x180000000)
	} else {
		w.WriteU32(0) // BaseOfData
		w.WriteU32(0x10000000)
	}
	w.WriteU32(SectionAlignment)
	w.WriteU32(FileAlignment)
	w.WriteU16(4)
	w.WriteU16(0)
	w.WriteU16(0)
	w.WriteU16(0)
	w.WriteU16(4)
	w.WriteU16(0)
	w.WriteU32(0)
	w.WriteU32(TextRVA + SectionAlignment) // SizeOfImage
	w.WriteU32(TextOffset)                 // SizeOfHeaders
	w.WriteU32(0)
	w.WriteU16(3) // console
	w.WriteU16(0x8560)
	stack := []uint64{0x100000, 0x1000, 0x100000, 0x1000}
	for _, v := range stack {
		if b.PE64 {
			w.WriteU64(v)
		} else {
			w.WriteU32(uint32(v))
		}
	}
	w.WriteU32(0)
	w.WriteU32(nDirs)
	for i := range pe.NumDataDirectories {
		if i == pe.DirectoryCLR && !b.NoCLI {
			w.WriteU32(TextRVA)
			w.WriteU32(metadata.CLIHeaderSize)
			continue
		}
		w.WriteU64(0)
	}

	var name [8]byte
	copy(name[:], ".text")
	w.WriteBytes(name[:])
	w.WriteU32(uint32(len(content))) // VirtualSize
	w.WriteU32(TextRVA)
	w.WriteU32(uint32(rawSize))
	w.WriteU32(TextOffset)
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU16(0)
	w.WriteU16(0)
	w.WriteU32(pe.SectionCntCode | pe.SectionMemExecute | pe.SectionMemRead)

	w.Zero(TextOffset - w.Len())
	w.WriteBytes(content)
	w.Zero(TextOffset + rawSize - w.Len())
	return w.Bytes()
}

// Minimal returns the bytes of a minimal valid assembly.
func Minimal() []byte {
	return New().Minimal().Build().Bytes
}

// PlainPE returns a valid PE32 image without a CLI header.
func PlainPE() []byte {
	b := New()
	b.NoCLI = true
	return b.Build().Bytes
}
