package metadata_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	cerrors "github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/asmtest"
	"github.com/wippyai/cilium/metadata"
	"github.com/wippyai/cilium/pe"
)

func TestMinimalAssembly(t *testing.T) {
	a := mustAssembly(t, asmtest.Minimal())

	modules, ok := a.ModuleTable()
	if !ok {
		t.Fatal("Module table absent")
	}
	if modules.Len() != 1 {
		t.Fatalf("Module rows = %d, want 1", modules.Len())
	}
	mod, err := modules.Row(0)
	if err != nil {
		t.Fatal(err)
	}
	name, err := a.Strings().Get(mod.Name)
	if err != nil || name != "<Module>" {
		t.Errorf("module name = %q, %v", name, err)
	}
	mvid, err := a.GUIDs().Get(mod.Mvid)
	if err != nil || mvid[0] != 0x01 || mvid[15] != 0x10 {
		t.Errorf("mvid = %v, %v", mvid, err)
	}

	if _, ok := a.TypeRefTable(); ok {
		t.Error("TypeRef should be absent")
	}
	if a.HasTable(metadata.TableTypeRef) || a.RowCount(metadata.TableTypeRef) != 0 {
		t.Error("TypeRef reported present")
	}

	types, ok := a.TypeDefTable()
	if !ok || types.Len() != 1 {
		t.Fatalf("TypeDef = %v rows, present %v", types.Len(), ok)
	}
	td, _ := types.Row(0)
	if !td.Extends.IsNull() {
		t.Errorf("<Module> extends %v", td.Extends)
	}

	if a.TablesStreamName() != metadata.StreamTables {
		t.Errorf("tables stream = %s", a.TablesStreamName())
	}
	if got := a.Root().Version; got != asmtest.DefaultVersion {
		t.Errorf("version = %q", got)
	}
	if !a.CLIHeader().Flags.ILOnly() {
		t.Error("expected ILONLY")
	}
	if n, err := a.Name(); err != nil || n != "<Module>" {
		t.Errorf("Name = %q, %v", n, err)
	}
}

func TestRowBounds(t *testing.T) {
	b := asmtest.New().Minimal()
	b.AddRows(metadata.TableMethodDef, 3)
	a := mustAssembly(t, b.Build().Bytes)

	methods, ok := a.MethodDefTable()
	if !ok {
		t.Fatal("MethodDef absent")
	}
	for i := range methods.Len() {
		if _, err := methods.Row(i); err != nil {
			t.Errorf("Row(%d): %v", i, err)
		}
	}
	for _, i := range []uint32{3, 4, 1 << 31} {
		if _, err := methods.Row(i); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
			t.Errorf("Row(%d) = %v, want index_out_of_range", i, err)
		}
	}

	fields, ok := a.FieldTable()
	if ok {
		t.Fatal("Field should be absent")
	}
	if _, err := fields.Row(0); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("Row on absent table = %v", err)
	}

	if _, err := methods.RID(0); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("RID(0) = %v", err)
	}
	if _, err := methods.RID(3); err != nil {
		t.Errorf("RID(3) = %v", err)
	}

	n := 0
	for i := range methods.All() {
		if i != uint32(n) {
			t.Errorf("All yielded index %d at step %d", i, n)
		}
		n++
	}
	if n != 3 {
		t.Errorf("All yielded %d rows", n)
	}
}

func TestTypedRows(t *testing.T) {
	b := asmtest.New().Minimal()
	sys := b.String("System")
	obj := b.String("Object")
	mscorlib := b.String("mscorlib")
	token := b.Blob([]byte{0xB7, 0x7A, 0x5C, 0x56, 0x19, 0x34, 0xE0, 0x89})

	b.AddRow(metadata.TableAssemblyRef, 4, 0, 0, 0, 0, uint32(token), uint32(mscorlib), 0, 0)
	b.AddRow(metadata.TableTypeRef,
		asmtest.Coded(metadata.CodedResolutionScope, metadata.TableAssemblyRef, 1), uint32(obj), uint32(sys))
	b.AddRow(metadata.TableAssembly, uint32(metadata.HashAlgorithmSHA1), 1, 2, 3, 4,
		uint32(metadata.AssemblyPublicKey), 0, uint32(b.String("Demo")), 0)
	b.AddRow(metadata.TableCustomAttribute,
		asmtest.Coded(metadata.CodedHasCustomAttribute, metadata.TableAssembly, 1),
		asmtest.Coded(metadata.CodedCustomAttributeType, metadata.TableMemberRef, 7),
		uint32(b.Blob([]byte{1, 0, 0, 0})))
	b.AddRow(metadata.TableExportedType, uint32(metadata.TypeIsTypeForwarder), 0x02000005,
		uint32(obj), uint32(sys), asmtest.Coded(metadata.CodedImplementation, metadata.TableAssemblyRef, 1))

	a := mustAssembly(t, b.Build().Bytes)

	refs, _ := a.TypeRefTable()
	tr, err := refs.Row(0)
	if err != nil {
		t.Fatal(err)
	}
	if tr.ResolutionScope.Table != metadata.TableAssemblyRef || tr.ResolutionScope.Row != 1 {
		t.Errorf("ResolutionScope = %v", tr.ResolutionScope)
	}
	if n, _ := a.Strings().Get(tr.TypeName); n != "Object" {
		t.Errorf("TypeName = %q", n)
	}

	arefs, _ := a.AssemblyRefTable()
	ar, _ := arefs.Row(0)
	pkt, err := a.Blobs().Get(ar.PublicKeyOrToken)
	if err != nil || !bytes.Equal(pkt, []byte{0xB7, 0x7A, 0x5C, 0x56, 0x19, 0x34, 0xE0, 0x89}) {
		t.Errorf("public key token = %x, %v", pkt, err)
	}
	if ar.MajorVersion != 4 {
		t.Errorf("MajorVersion = %d", ar.MajorVersion)
	}

	asms, _ := a.AssemblyTable()
	def, _ := asms.Row(0)
	if def.HashAlgID != metadata.HashAlgorithmSHA1 || def.RevisionNumber != 4 || !def.Flags.HasPublicKey() {
		t.Errorf("Assembly row = %+v", def)
	}
	if n, err := a.Name(); err != nil || n != "Demo" {
		t.Errorf("Name = %q, %v", n, err)
	}

	cas, _ := a.CustomAttributeTable()
	ca, _ := cas.Row(0)
	if ca.Parent.Table != metadata.TableAssembly || ca.Type.Table != metadata.TableMemberRef || ca.Type.Row != 7 {
		t.Errorf("CustomAttribute = %+v", ca)
	}
	if ca.Type.Token() != metadata.MakeToken(metadata.TableMemberRef, 7) {
		t.Errorf("Token = %v", ca.Type.Token())
	}

	ets, _ := a.ExportedTypeTable()
	et, _ := ets.Row(0)
	if !et.Flags.IsForwarder() || et.TypeDefID != 0x02000005 || et.Implementation.Table != metadata.TableAssemblyRef {
		t.Errorf("ExportedType = %+v", et)
	}

	row, err := a.Row(metadata.TableTypeRef, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := row.(metadata.TypeRef); !ok || got != tr {
		t.Errorf("Row(any) = %#v", row)
	}
	if _, err := a.Row(metadata.TableField, 0); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("Row on absent table = %v", err)
	}
}

func TestMissingCLIHeader(t *testing.T) {
	f, err := pe.Parse(asmtest.PlainPE())
	if err != nil {
		t.Fatal(err)
	}
	_, err = metadata.New(f)
	if !errors.Is(err, cerrors.ErrMissingCLIHeader) {
		t.Fatalf("got %v, want missing_cli_header", err)
	}
	if errors.Is(err, cerrors.ErrMalformedContainer) {
		t.Error("missing CLI header must be distinguishable from a malformed container")
	}

	b := asmtest.New().Minimal()
	b.NumberOfRvaAndSizes = 14
	f, err = pe.Parse(b.Build().Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := metadata.New(f); !errors.Is(err, cerrors.ErrMissingCLIHeader) {
		t.Errorf("14 directories: %v", err)
	}
}

func TestTruncatedCLIHeader(t *testing.T) {
	img := asmtest.New().Minimal().Build()
	data := img.Bytes
	// Directory 14 size lives at the end of the PE32 directory array.
	dirSize := asmtest.LFANew + 24 + 96 + pe.DirectoryCLR*8 + 4
	binary.LittleEndian.PutUint32(data[dirSize:], 40)

	f, err := pe.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	_, err = metadata.New(f)
	var e *cerrors.Error
	if !errors.As(err, &e) || e.Kind != cerrors.KindMissingCLIHeader || e.Detail != "truncated" {
		t.Errorf("got %v", err)
	}
}

func TestCLIHeaderRVAUnmapped(t *testing.T) {
	img := asmtest.New().Minimal().Build()
	dirRVA := asmtest.LFANew + 24 + 96 + pe.DirectoryCLR*8
	binary.LittleEndian.PutUint32(img.Bytes[dirRVA:], 0x9000)

	f, err := pe.Parse(img.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := metadata.New(f); !errors.Is(err, cerrors.ErrRVAResolutionFailed) {
		t.Errorf("got %v", err)
	}
}

func TestMalformedRoot(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(img *asmtest.Image)
	}{
		{"bad signature", func(img *asmtest.Image) {
			img.Bytes[img.Metadata] = 'X'
		}},
		{"version length past end", func(img *asmtest.Image) {
			binary.LittleEndian.PutUint32(img.Bytes[img.Metadata+12:], 0x10000)
		}},
		{"stream beyond root", func(img *asmtest.Image) {
			// first stream header size field
			binary.LittleEndian.PutUint32(img.Bytes[img.Metadata+16+12+4+4:], 0x100000)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := asmtest.New().Minimal().Build()
			tt.mutate(img)
			f, err := pe.Parse(img.Bytes)
			if err != nil {
				t.Fatal(err)
			}
			a, err := metadata.New(f)
			if a != nil {
				t.Error("no partial assembly on failure")
			}
			if !errors.Is(err, cerrors.ErrMalformedMetadataRoot) {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestParseRootStreams(t *testing.T) {
	b := asmtest.New().Minimal()
	b.ExtraStreams = map[string][]byte{"#Pdb": {1, 2, 3, 4}}
	img := b.Build()

	f, err := pe.Parse(img.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	cli, err := metadata.ReadCLIHeader(f)
	if err != nil {
		t.Fatal(err)
	}
	md, err := f.ReadDirectory(cli.MetaData)
	if err != nil {
		t.Fatal(err)
	}
	root, err := metadata.ParseRoot(md)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, s := range root.Streams {
		names = append(names, s.Name)
	}
	want := []string{"#~", "#Strings", "#US", "#GUID", "#Blob", "#Pdb"}
	if len(names) != len(want) {
		t.Fatalf("streams = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("stream %d = %s, want %s", i, names[i], want[i])
		}
	}
	pdb, ok := root.Stream("#Pdb")
	if !ok || !bytes.Equal(pdb, []byte{1, 2, 3, 4}) {
		t.Errorf("#Pdb = %v, %v", pdb, ok)
	}
	if _, ok := root.Stream("#Nope"); ok {
		t.Error("unexpected stream")
	}
}

func TestUncompressedTablesStream(t *testing.T) {
	b := asmtest.New().Minimal()
	b.Uncompressed = true
	b.AddRows(metadata.TableFieldPtr, 2)
	a := mustAssembly(t, b.Build().Bytes)

	if a.TablesStreamName() != metadata.StreamTablesUncompressed {
		t.Errorf("tables stream = %s", a.TablesStreamName())
	}
	ptrs, ok := a.FieldPtrTable()
	if !ok || ptrs.Len() != 2 || ptrs.RowSize() != 2 {
		t.Errorf("FieldPtr len=%d size=%d ok=%v", ptrs.Len(), ptrs.RowSize(), ok)
	}
}

func TestWideHeapIndices(t *testing.T) {
	b := asmtest.New().Minimal()
	b.HeapSizes = metadata.HeapStringsWide | metadata.HeapBlobWide | metadata.HeapGUIDWide
	a := mustAssembly(t, b.Build().Bytes)

	if a.Layout().Table(metadata.TableModule).RowSize != 2+4+3*4 {
		t.Errorf("Module row size = %d", a.Layout().Table(metadata.TableModule).RowSize)
	}
	if n, err := a.Name(); err != nil || n != "<Module>" {
		t.Errorf("Name = %q, %v", n, err)
	}
}

func TestPE64Assembly(t *testing.T) {
	b := asmtest.New().Minimal()
	b.PE64 = true
	a := mustAssembly(t, b.Build().Bytes)
	if !a.PE().Is64() {
		t.Error("expected PE32+")
	}
	if a.RowCount(metadata.TableModule) != 1 {
		t.Error("Module row missing")
	}
}

func TestResourcesAndStrongName(t *testing.T) {
	res := []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o', 0, 0, 0, 2, 0, 0, 0, 'h', 'i'}
	b := asmtest.New().Minimal()
	b.Resources = res
	b.StrongName = bytes.Repeat([]byte{0x5A}, 128)
	b.Flags |= metadata.RuntimeStrongNameSigned
	b.EntryPoint = metadata.MakeToken(metadata.TableMethodDef, 1)
	a := mustAssembly(t, b.Build().Bytes)

	got, err := a.Resource(0)
	if err != nil || string(got) != "hello" {
		t.Errorf("Resource(0) = %q, %v", got, err)
	}
	got, err = a.Resource(12)
	if err != nil || string(got) != "hi" {
		t.Errorf("Resource(12) = %q, %v", got, err)
	}
	if _, err := a.Resource(14); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("Resource(14) = %v", err)
	}

	sig, err := a.StrongNameSignature()
	if err != nil || len(sig) != 128 {
		t.Errorf("signature = %d bytes, %v", len(sig), err)
	}
	if !a.CLIHeader().Flags.StrongNameSigned() {
		t.Error("expected STRONGNAMESIGNED")
	}
	if ep := a.EntryPoint(); ep.Table() != metadata.TableMethodDef || ep.Row() != 1 {
		t.Errorf("EntryPoint = %v", ep)
	}

	plain := mustAssembly(t, asmtest.Minimal())
	if sig, err := plain.StrongNameSignature(); sig != nil || err != nil {
		t.Errorf("unsigned image signature = %v, %v", sig, err)
	}
}

func TestUserStringsThroughAssembly(t *testing.T) {
	b := asmtest.New().Minimal()
	idx := b.UserString("Hello, world")
	a := mustAssembly(t, b.Build().Bytes)

	s, err := a.UserStrings().String(idx)
	if err != nil || s != "Hello, world" {
		t.Errorf("user string = %q, %v", s, err)
	}
}

func TestToken(t *testing.T) {
	tok := metadata.MakeToken(metadata.TableTypeDef, 0x123456)
	if tok != 0x02123456 {
		t.Errorf("token = %v", tok)
	}
	if tok.Table() != metadata.TableTypeDef || tok.Row() != 0x123456 || tok.IsNull() {
		t.Errorf("decoded %v %d", tok.Table(), tok.Row())
	}
	if tok.String() != "0x02123456" {
		t.Errorf("String = %s", tok)
	}
	if !metadata.MakeToken(metadata.TableField, 0).IsNull() {
		t.Error("row 0 is null")
	}
}

func TestRawRow(t *testing.T) {
	b := asmtest.New().Minimal()
	ns := b.String("Demo")
	name := b.String("Widget")
	b.AddRow(metadata.TableTypeDef, uint32(metadata.TypePublic), uint32(name), uint32(ns),
		asmtest.Coded(metadata.CodedTypeDefOrRef, metadata.TableTypeDef, 1), 1, 1)
	a := mustAssembly(t, b.Build().Bytes)

	raw, err := a.RawRow(metadata.TableTypeDef, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{uint32(metadata.TypePublic), uint32(name), uint32(ns), 1 << 2, 1, 1}
	if len(raw) != len(want) {
		t.Fatalf("RawRow = %v", raw)
	}
	for i := range want {
		if raw[i] != want[i] {
			t.Errorf("column %d = %#x, want %#x", i, raw[i], want[i])
		}
	}

	if _, err := a.RawRow(metadata.TableTypeDef, 2); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("past end: %v", err)
	}
	if _, err := a.RawRow(metadata.TableField, 0); !errors.Is(err, cerrors.ErrIndexOutOfRange) {
		t.Errorf("absent table: %v", err)
	}
}
