package metadata_test

import (
	"errors"
	"testing"

	cerrors "github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/asmtest"
	"github.com/wippyai/cilium/metadata"
	"github.com/wippyai/cilium/pe"
)

func TestCodedTagBits(t *testing.T) {
	tests := []struct {
		kind metadata.CodedKind
		bits uint
	}{
		{metadata.CodedTypeDefOrRef, 2},
		{metadata.CodedHasConstant, 2},
		{metadata.CodedHasCustomAttribute, 5},
		{metadata.CodedHasFieldMarshal, 1},
		{metadata.CodedHasDeclSecurity, 2},
		{metadata.CodedMemberRefParent, 3},
		{metadata.CodedHasSemantics, 1},
		{metadata.CodedMethodDefOrRef, 1},
		{metadata.CodedMemberForwarded, 1},
		{metadata.CodedImplementation, 2},
		{metadata.CodedCustomAttributeType, 3},
		{metadata.CodedResolutionScope, 2},
		{metadata.CodedTypeOrMethodDef, 1},
		{metadata.CodedHasCustomDebugInformation, 5},
	}
	for _, tt := range tests {
		if got := tt.kind.TagBits(); got != tt.bits {
			t.Errorf("%s.TagBits() = %d, want %d", tt.kind, got, tt.bits)
		}
	}
}

func TestCodedDecodeEncode(t *testing.T) {
	ci := metadata.CodedMemberRefParent.Decode(0x2B) // 5<<3 | 3
	if ci.Table != metadata.TableMethodDef || ci.Row != 5 {
		t.Errorf("Decode = %v", ci)
	}
	raw, ok := metadata.CodedMemberRefParent.Encode(ci)
	if !ok || raw != 0x2B {
		t.Errorf("Encode = %#x, %v", raw, ok)
	}

	unused := metadata.CodedCustomAttributeType.Decode(0x08) // tag 0
	if unused.Table != metadata.TableUnused {
		t.Errorf("unused tag decoded to %v", unused.Table)
	}
	if _, ok := metadata.CodedCustomAttributeType.Encode(metadata.CodedIndex{Table: metadata.TableTypeDef, Row: 1}); ok {
		t.Error("TypeDef is not a CustomAttributeType member")
	}
	if !metadata.CodedTypeDefOrRef.Decode(0x02).IsNull() {
		t.Error("row 0 should be null regardless of tag")
	}
}

func TestIndexSizesHeapFlags(t *testing.T) {
	var rows [metadata.MaxTables]uint32
	tests := []struct {
		flags              metadata.HeapSizes
		str, guid, blobSz uint8
	}{
		{0, 2, 2, 2},
		{metadata.HeapStringsWide, 4, 2, 2},
		{metadata.HeapGUIDWide, 2, 4, 2},
		{metadata.HeapBlobWide, 2, 2, 4},
		{metadata.HeapStringsWide | metadata.HeapGUIDWide | metadata.HeapBlobWide, 4, 4, 4},
	}
	for _, tt := range tests {
		s := metadata.NewIndexSizes(tt.flags, rows)
		if s.String != tt.str || s.GUID != tt.guid || s.Blob != tt.blobSz {
			t.Errorf("flags %#x: got %d/%d/%d", tt.flags, s.String, s.GUID, s.Blob)
		}
	}
}

func TestIndexWidthThresholds(t *testing.T) {
	var rows [metadata.MaxTables]uint32

	rows[metadata.TableField] = 0xFFFF
	s := metadata.NewIndexSizes(0, rows)
	if w := s.TableIndexWidth(metadata.TableField); w != 2 {
		t.Errorf("65535 rows: width %d, want 2", w)
	}
	rows[metadata.TableField] = 0x10000
	s = metadata.NewIndexSizes(0, rows)
	if w := s.TableIndexWidth(metadata.TableField); w != 4 {
		t.Errorf("65536 rows: width %d, want 4", w)
	}

	// HasCustomAttribute has 5 tag bits, so 2^11 rows in any member flips it.
	rows = [metadata.MaxTables]uint32{}
	rows[metadata.TableGenericParam] = 1<<11 - 1
	if w := metadata.NewIndexSizes(0, rows).CodedWidth(metadata.CodedHasCustomAttribute); w != 2 {
		t.Errorf("2047 rows: width %d, want 2", w)
	}
	rows[metadata.TableGenericParam] = 1 << 11
	if w := metadata.NewIndexSizes(0, rows).CodedWidth(metadata.CodedHasCustomAttribute); w != 4 {
		t.Errorf("2048 rows: width %d, want 4", w)
	}
}

// TestCodedWidthFlipsRowSize builds two images that differ only in the
// TypeRef row count and checks every table using TypeDefOrRef grows by two
// bytes per coded column.
func TestCodedWidthFlipsRowSize(t *testing.T) {
	const threshold = 1 << (16 - 2) // TypeDefOrRef has 2 tag bits

	build := func(typeRefs int) *metadata.Assembly {
		b := asmtest.New().Minimal()
		b.AddRows(metadata.TableTypeRef, typeRefs)
		b.AddRows(metadata.TableInterfaceImpl, 1)
		b.AddRows(metadata.TableEvent, 1)
		b.AddRows(metadata.TableGenericParamConstraint, 1)
		return mustAssembly(t, b.Build().Bytes)
	}

	small := build(threshold - 1)
	large := build(threshold)

	if w := small.IndexSizes().CodedWidth(metadata.CodedTypeDefOrRef); w != 2 {
		t.Fatalf("below threshold: width %d", w)
	}
	if w := large.IndexSizes().CodedWidth(metadata.CodedTypeDefOrRef); w != 4 {
		t.Fatalf("at threshold: width %d", w)
	}

	for _, id := range []metadata.TableID{
		metadata.TableTypeDef, metadata.TableInterfaceImpl, metadata.TableEvent, metadata.TableGenericParamConstraint,
	} {
		ds := large.Layout().Table(id).RowSize - small.Layout().Table(id).RowSize
		if ds != 2 {
			t.Errorf("%s row size grew by %d, want 2", id, ds)
		}
	}
	if small.Layout().Table(metadata.TableModule).RowSize != large.Layout().Table(metadata.TableModule).RowSize {
		t.Error("Module does not use TypeDefOrRef and must not change")
	}
}

func TestComputeLayoutOffsets(t *testing.T) {
	b := asmtest.New().Minimal()
	b.AddRows(metadata.TableMethodDef, 3)
	b.AddRows(metadata.TableParam, 2)
	img := b.Build()

	stream := img.Bytes[img.Tables:]
	l, err := metadata.ComputeLayout(stream)
	if err != nil {
		t.Fatal(err)
	}

	if l.Header.Size != 24+4*4 {
		t.Errorf("header size = %d", l.Header.Size)
	}
	off := uint32(l.Header.Size)
	for _, id := range []metadata.TableID{metadata.TableModule, metadata.TableTypeDef, metadata.TableMethodDef, metadata.TableParam} {
		tl := l.Table(id)
		if !tl.Present {
			t.Fatalf("%s not present", id)
		}
		if tl.Offset != off {
			t.Errorf("%s offset = %d, want %d", id, tl.Offset, off)
		}
		off += tl.Rows * tl.RowSize
	}
	if l.Table(metadata.TableField).Present {
		t.Error("Field should be absent")
	}

	// Module: u16 + str + 3 guid = 10; MethodDef: 4+2+2+2+2+2 = 14.
	if rs := l.Table(metadata.TableModule).RowSize; rs != 10 {
		t.Errorf("Module row size = %d", rs)
	}
	if rs := l.Table(metadata.TableMethodDef).RowSize; rs != 14 {
		t.Errorf("MethodDef row size = %d", rs)
	}
}

func TestComputeLayoutExtraData(t *testing.T) {
	b := asmtest.New().Minimal()
	b.ExtraData = 0xCAFEF00D
	img := b.Build()

	l, err := metadata.ComputeLayout(img.Bytes[img.Tables:])
	if err != nil {
		t.Fatal(err)
	}
	if l.Header.ExtraData != 0xCAFEF00D {
		t.Errorf("ExtraData = %#x", l.Header.ExtraData)
	}
	if l.Header.Size != 24+2*4+4 {
		t.Errorf("header size = %d", l.Header.Size)
	}
}

func TestComputeLayoutErrors(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		_, err := metadata.ComputeLayout(make([]byte, 10))
		if !errors.Is(err, cerrors.ErrTruncatedStream) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("row counts past end", func(t *testing.T) {
		img := asmtest.New().Minimal().Build()
		_, err := metadata.ComputeLayout(img.Bytes[img.Tables : img.Tables+26])
		if !errors.Is(err, cerrors.ErrTruncatedStream) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("table data past end", func(t *testing.T) {
		img := asmtest.New().Minimal().Build()
		_, err := metadata.ComputeLayout(img.Bytes[img.Tables : img.Tables+24+8+12])
		if !errors.Is(err, cerrors.ErrTruncatedStream) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("unknown table", func(t *testing.T) {
		b := asmtest.New().Minimal()
		b.MarkPresent(metadata.TableDocument)
		img := b.Build()
		_, err := metadata.ComputeLayout(img.Bytes[img.Tables:])
		if !errors.Is(err, cerrors.ErrUnsupportedSchema) {
			t.Errorf("got %v", err)
		}
		var e *cerrors.Error
		if errors.As(err, &e) && e.Value != int(metadata.TableDocument) {
			t.Errorf("Value = %v", e.Value)
		}
	})
}

func TestSchemaLookup(t *testing.T) {
	cols, ok := metadata.Schema(metadata.TableExportedType)
	if !ok || len(cols) != 5 {
		t.Fatalf("ExportedType schema = %v, %v", cols, ok)
	}
	if cols[1].Kind != metadata.ColumnFixed || cols[1].Size != 4 {
		t.Errorf("TypeDefId must be a fixed 4-byte column, got %+v", cols[1])
	}
	if _, ok := metadata.Schema(0x2D); ok {
		t.Error("0x2D has no schema")
	}
	if _, ok := metadata.Schema(metadata.TableLocalScope); ok {
		t.Error("portable PDB tables have no schema")
	}
	if id, ok := metadata.LookupTable("GenericParamConstraint"); !ok || id != metadata.TableGenericParamConstraint {
		t.Errorf("LookupTable = %v, %v", id, ok)
	}
}

func mustAssembly(t *testing.T, data []byte) *metadata.Assembly {
	t.Helper()
	f, err := pe.Parse(data)
	if err != nil {
		t.Fatalf("pe.Parse: %v", err)
	}
	a, err := metadata.New(f)
	if err != nil {
		t.Fatalf("metadata.New: %v", err)
	}
	return a
}
