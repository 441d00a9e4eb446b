package metadata

import (
	"math/bits"

	"github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/binary"
)

// HeapSizes is the heap-sizes byte of the tables stream header.
type HeapSizes uint8

const (
	HeapStringsWide HeapSizes = 0x01 // #Strings indices are 4 bytes
	HeapGUIDWide    HeapSizes = 0x02 // #GUID indices are 4 bytes
	HeapBlobWide    HeapSizes = 0x04 // #Blob indices are 4 bytes
	HeapPadding     HeapSizes = 0x08
	HeapDeltaOnly   HeapSizes = 0x20
	HeapExtraData   HeapSizes = 0x40 // an extra u32 follows the row counts
	HeapHasDelete   HeapSizes = 0x80
)

// Has reports whether all bits of f are set.
func (h HeapSizes) Has(f HeapSizes) bool {
	return h&f == f
}

// tablesHeaderFixed is the size of the tables header before the row counts.
const tablesHeaderFixed = 24

// TablesHeader is the header of the #~ (or #-) stream.
type TablesHeader struct {
	Reserved0    uint32
	MajorVersion uint8
	MinorVersion uint8
	HeapSizes    HeapSizes
	Reserved1    uint8
	Valid        uint64
	Sorted       uint64
	Rows         [MaxTables]uint32
	ExtraData    uint32

	// Size is the header length in bytes; table data starts here.
	Size int
}

// Present reports whether the valid mask has table id set.
func (h *TablesHeader) Present(id TableID) bool {
	return int(id) < MaxTables && h.Valid&(1<<id) != 0
}

// IsSorted reports whether the sorted mask has table id set.
func (h *TablesHeader) IsSorted(id TableID) bool {
	return int(id) < MaxTables && h.Sorted&(1<<id) != 0
}

// ParseTablesHeader decodes the fixed header and row counts of a tables
// stream.
func ParseTablesHeader(stream []byte) (*TablesHeader, error) {
	r := binary.NewReader(stream)
	h := &TablesHeader{}

	if r.Len() < tablesHeaderFixed {
		return nil, errors.TruncatedStream([]string{"#~", "header"}, tablesHeaderFixed, len(stream))
	}
	h.Reserved0, _ = r.ReadU32()
	h.MajorVersion, _ = r.ReadU8()
	h.MinorVersion, _ = r.ReadU8()
	hs, _ := r.ReadU8()
	h.HeapSizes = HeapSizes(hs)
	h.Reserved1, _ = r.ReadU8()
	h.Valid, _ = r.ReadU64()
	h.Sorted, _ = r.ReadU64()

	need := tablesHeaderFixed + 4*bits.OnesCount64(h.Valid)
	if h.HeapSizes.Has(HeapExtraData) {
		need += 4
	}
	if len(stream) < need {
		return nil, errors.TruncatedStream([]string{"#~", "row counts"}, need, len(stream))
	}
	for id := 0; id < MaxTables; id++ {
		if h.Valid&(1<<id) != 0 {
			h.Rows[id], _ = r.ReadU32()
		}
	}
	if h.HeapSizes.Has(HeapExtraData) {
		h.ExtraData, _ = r.ReadU32()
	}
	h.Size = r.Position()
	return h, nil
}

// IndexSizes holds the byte width of every index kind for one assembly.
// It is computed once from the tables header and shared by all tables.
type IndexSizes struct {
	String uint8
	GUID   uint8
	Blob   uint8
	Coded  [NumCodedKinds]uint8
	Rows   [MaxTables]uint32
}

// NewIndexSizes derives index widths from the heap-sizes byte and the
// per-table row counts.
func NewIndexSizes(heapSizes HeapSizes, rows [MaxTables]uint32) *IndexSizes {
	s := &IndexSizes{
		String: heapWidth(heapSizes, HeapStringsWide),
		GUID:   heapWidth(heapSizes, HeapGUIDWide),
		Blob:   heapWidth(heapSizes, HeapBlobWide),
		Rows:   rows,
	}
	for k := range NumCodedKinds {
		s.Coded[k] = codedWidth(CodedKind(k), &rows)
	}
	return s
}

func heapWidth(h HeapSizes, bit HeapSizes) uint8 {
	if h.Has(bit) {
		return 4
	}
	return 2
}

// codedWidth is 2 if every member table fits in the bits left after the tag.
func codedWidth(k CodedKind, rows *[MaxTables]uint32) uint8 {
	var largest uint32
	for _, t := range k.Tables() {
		if t != TableUnused && rows[t] > largest {
			largest = rows[t]
		}
	}
	if uint64(largest) < 1<<(16-k.TagBits()) {
		return 2
	}
	return 4
}

// TableIndexWidth is the width of a simple index into table t.
func (s *IndexSizes) TableIndexWidth(t TableID) int {
	if s.Rows[t] < 1<<16 {
		return 2
	}
	return 4
}

// CodedWidth is the width of a coded index of kind k.
func (s *IndexSizes) CodedWidth(k CodedKind) int {
	return int(s.Coded[k])
}

// ColumnWidth is the width of column c.
func (s *IndexSizes) ColumnWidth(c Column) int {
	switch c.Kind {
	case ColumnFixed:
		return int(c.Size)
	case ColumnString:
		return int(s.String)
	case ColumnGUID:
		return int(s.GUID)
	case ColumnBlob:
		return int(s.Blob)
	case ColumnTable:
		return s.TableIndexWidth(c.Table)
	case ColumnCoded:
		return s.CodedWidth(c.Coded)
	default:
		return 0
	}
}

// RowSize is the byte size of one row of table id. The bool is false for
// tables without a schema.
func (s *IndexSizes) RowSize(id TableID) (int, bool) {
	cols, ok := Schema(id)
	if !ok {
		return 0, false
	}
	n := 0
	for _, c := range cols {
		n += s.ColumnWidth(c)
	}
	return n, true
}

// TableLayout locates one table inside the tables stream.
type TableLayout struct {
	ID      TableID
	Present bool
	Rows    uint32
	RowSize uint32
	Offset  uint32 // from the start of the stream
}

// Size is the table's total byte length.
func (t TableLayout) Size() uint64 {
	return uint64(t.Rows) * uint64(t.RowSize)
}

// Layout is the computed placement of every table in a tables stream.
type Layout struct {
	Header *TablesHeader
	Sizes  *IndexSizes
	Tables [MaxTables]TableLayout

	// End is the offset just past the last table.
	End int

	stream []byte
}

// ComputeLayout parses the tables header of stream and places every present
// table. Tables follow the header back to back in ascending id order.
func ComputeLayout(stream []byte) (*Layout, error) {
	h, err := ParseTablesHeader(stream)
	if err != nil {
		return nil, err
	}

	l := &Layout{
		Header: h,
		Sizes:  NewIndexSizes(h.HeapSizes, h.Rows),
		stream: stream,
	}

	off := uint64(h.Size)
	for id := range MaxTables {
		tid := TableID(id)
		if !h.Present(tid) {
			l.Tables[id] = TableLayout{ID: tid}
			continue
		}
		rowSize, ok := l.Sizes.RowSize(tid)
		if !ok {
			return nil, errors.UnsupportedSchema(id)
		}
		tl := TableLayout{
			ID:      tid,
			Present: true,
			Rows:    h.Rows[id],
			RowSize: uint32(rowSize),
			Offset:  uint32(min(off, 1<<32-1)),
		}
		off += tl.Size()
		if off > uint64(len(stream)) {
			return nil, errors.TruncatedStream([]string{"#~", tid.String()}, int(min(off, 1<<31-1)), len(stream))
		}
		l.Tables[id] = tl
	}
	l.End = int(off)
	return l, nil
}

// Table returns the placement of table id.
func (l *Layout) Table(id TableID) TableLayout {
	if int(id) >= MaxTables {
		return TableLayout{ID: id}
	}
	return l.Tables[id]
}

// TableData returns the bytes of table id, or nil if it is absent.
func (l *Layout) TableData(id TableID) []byte {
	t := l.Table(id)
	if !t.Present {
		return nil
	}
	end := uint64(t.Offset) + t.Size()
	return l.stream[t.Offset:end:end]
}
