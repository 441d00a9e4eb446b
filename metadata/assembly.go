package metadata

import (
	"github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/binary"
	"github.com/wippyai/cilium/pe"
)

// Assembly is a fully parsed metadata image. It is immutable; every accessor
// is safe for concurrent use. Tables, rows and heap values borrow from the
// image buffer, which must outlive them.
type Assembly struct {
	file   *pe.File
	cli    CLIHeader
	root   *Root
	layout *Layout

	tablesStream string
	strings      StringHeap
	blobs        BlobHeap
	guids        GUIDHeap
	userStrings  UserStringHeap
}

// New reads the CLI header, metadata root and tables layout of f. The first
// failure aborts construction.
func New(f *pe.File) (*Assembly, error) {
	cli, err := ReadCLIHeader(f)
	if err != nil {
		return nil, err
	}

	md, err := f.ReadDirectory(cli.MetaData)
	if err != nil {
		return nil, err
	}
	root, err := ParseRoot(md)
	if err != nil {
		return nil, err
	}

	name, stream, ok := root.TablesStream()
	if !ok {
		return nil, errors.MalformedMetadataRoot("no %s or %s stream", StreamTables, StreamTablesUncompressed)
	}
	layout, err := ComputeLayout(stream)
	if err != nil {
		return nil, err
	}

	a := &Assembly{
		file:         f,
		cli:          cli,
		root:         root,
		layout:       layout,
		tablesStream: name,
	}
	s, _ := root.Stream(StreamStrings)
	a.strings = NewStringHeap(s)
	b, _ := root.Stream(StreamBlob)
	a.blobs = NewBlobHeap(b)
	g, _ := root.Stream(StreamGUID)
	a.guids = NewGUIDHeap(g)
	us, _ := root.Stream(StreamUserStrings)
	a.userStrings = NewUserStringHeap(us)
	return a, nil
}

// PE returns the container the metadata was read from.
func (a *Assembly) PE() *pe.File { return a.file }

// CLIHeader returns the decoded CLI header.
func (a *Assembly) CLIHeader() CLIHeader { return a.cli }

// Root returns the metadata root and its stream headers.
func (a *Assembly) Root() *Root { return a.root }

// Layout returns the computed tables stream layout.
func (a *Assembly) Layout() *Layout { return a.layout }

// IndexSizes returns the heap, table and coded index widths shared by every row.
func (a *Assembly) IndexSizes() *IndexSizes { return a.layout.Sizes }

// Strings returns the #Strings heap, empty if the stream is absent.
func (a *Assembly) Strings() StringHeap { return a.strings }

// Blobs returns the #Blob heap, empty if the stream is absent.
func (a *Assembly) Blobs() BlobHeap { return a.blobs }

// GUIDs returns the #GUID heap, empty if the stream is absent.
func (a *Assembly) GUIDs() GUIDHeap { return a.guids }

// UserStrings returns the #US heap, empty if the stream is absent.
func (a *Assembly) UserStrings() UserStringHeap { return a.userStrings }

// TablesStreamName is "#~", or "#-" for images with uncompressed tables.
func (a *Assembly) TablesStreamName() string { return a.tablesStream }

// EntryPoint returns the CLI header entry point token.
func (a *Assembly) EntryPoint() Token { return a.cli.EntryPointToken }

// RowCount returns the number of rows in table id, 0 if absent.
func (a *Assembly) RowCount(id TableID) uint32 {
	return a.layout.Table(id).Rows
}

// HasTable reports whether the valid mask includes id.
func (a *Assembly) HasTable(id TableID) bool {
	return a.layout.Table(id).Present
}

// Row decodes row i of table id into its row struct, returned by value in
// an any. It serves callers that pick tables at run time.
func (a *Assembly) Row(id TableID, i uint32) (any, error) {
	tl := a.layout.Table(id)
	if int(id) >= len(rowDecoders) || rowDecoders[id] == nil || !tl.Present {
		return nil, errors.OutOfRange(errors.PhaseTable, []string{id.String()}, uint64(i), 0)
	}
	return newTable(a.layout, id, rowDecoders[id]).Row(i)
}

// Name returns the assembly's simple name, or the module name for images
// without an Assembly row.
func (a *Assembly) Name() (string, error) {
	if t, ok := a.AssemblyTable(); ok && t.Len() > 0 {
		row, err := t.Row(0)
		if err != nil {
			return "", err
		}
		return a.strings.Get(row.Name)
	}
	if t, ok := a.ModuleTable(); ok && t.Len() > 0 {
		row, err := t.Row(0)
		if err != nil {
			return "", err
		}
		return a.strings.Get(row.Name)
	}
	return "", errors.NotFound(errors.PhaseTable, "table", "Module")
}

// Resource returns the managed resource at offset inside the CLI header's
// Resources directory. Each resource is a u32 length followed by the data.
func (a *Assembly) Resource(offset uint32) ([]byte, error) {
	dir, err := a.file.ReadDirectory(a.cli.Resources)
	if err != nil {
		return nil, err
	}
	r, err := binary.NewReaderAt(dir, int(offset))
	if err != nil {
		return nil, errors.OutOfRange(errors.PhaseHeap, []string{"resources"}, uint64(offset), uint64(len(dir)))
	}
	n, err := r.ReadU32()
	if err != nil {
		return nil, errors.OutOfRange(errors.PhaseHeap, []string{"resources"}, uint64(offset)+4, uint64(len(dir)))
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		end := uint64(offset) + 4 + uint64(n)
		return nil, errors.OutOfRange(errors.PhaseHeap, []string{"resources"}, end, uint64(len(dir)))
	}
	return b, nil
}

// StrongNameSignature returns the signature blob, or nil if the image is
// not signed.
func (a *Assembly) StrongNameSignature() ([]byte, error) {
	if a.cli.StrongNameSignature.IsZero() {
		return nil, nil
	}
	return a.file.ReadDirectory(a.cli.StrongNameSignature)
}

func table[R any](a *Assembly, id TableID, decode func(*rowReader) R) (Table[R], bool) {
	if !a.layout.Table(id).Present {
		return Table[R]{id: id}, false
	}
	return newTable(a.layout, id, decode), true
}

// Per-table accessors. The bool is false when the table is absent; the
// returned Table is then empty and every Row call fails.

// ModuleTable returns the Module table, or false if the image has none.
func (a *Assembly) ModuleTable() (Table[Module], bool) {
	return table(a, TableModule, decodeModule)
}

// TypeRefTable returns the TypeRef table, or false if the image has none.
func (a *Assembly) TypeRefTable() (Table[TypeRef], bool) {
	return table(a, TableTypeRef, decodeTypeRef)
}

// TypeDefTable returns the TypeDef table, or false if the image has none.
func (a *Assembly) TypeDefTable() (Table[TypeDef], bool) {
	return table(a, TableTypeDef, decodeTypeDef)
}

// FieldPtrTable returns the FieldPtr table, or false if the image has none.
func (a *Assembly) FieldPtrTable() (Table[FieldPtr], bool) {
	return table(a, TableFieldPtr, decodeFieldPtr)
}

// FieldTable returns the Field table, or false if the image has none.
func (a *Assembly) FieldTable() (Table[Field], bool) {
	return table(a, TableField, decodeField)
}

// MethodPtrTable returns the MethodPtr table, or false if the image has none.
func (a *Assembly) MethodPtrTable() (Table[MethodPtr], bool) {
	return table(a, TableMethodPtr, decodeMethodPtr)
}

// MethodDefTable returns the MethodDef table, or false if the image has none.
func (a *Assembly) MethodDefTable() (Table[MethodDef], bool) {
	return table(a, TableMethodDef, decodeMethodDef)
}

// ParamPtrTable returns the ParamPtr table, or false if the image has none.
func (a *Assembly) ParamPtrTable() (Table[ParamPtr], bool) {
	return table(a, TableParamPtr, decodeParamPtr)
}

// ParamTable returns the Param table, or false if the image has none.
func (a *Assembly) ParamTable() (Table[Param], bool) {
	return table(a, TableParam, decodeParam)
}

// InterfaceImplTable returns the InterfaceImpl table, or false if the image has none.
func (a *Assembly) InterfaceImplTable() (Table[InterfaceImpl], bool) {
	return table(a, TableInterfaceImpl, decodeInterfaceImpl)
}

// MemberRefTable returns the MemberRef table, or false if the image has none.
func (a *Assembly) MemberRefTable() (Table[MemberRef], bool) {
	return table(a, TableMemberRef, decodeMemberRef)
}

// ConstantTable returns the Constant table, or false if the image has none.
func (a *Assembly) ConstantTable() (Table[Constant], bool) {
	return table(a, TableConstant, decodeConstant)
}

// CustomAttributeTable returns the CustomAttribute table, or false if the image has none.
func (a *Assembly) CustomAttributeTable() (Table[CustomAttribute], bool) {
	return table(a, TableCustomAttribute, decodeCustomAttribute)
}

// FieldMarshalTable returns the FieldMarshal table, or false if the image has none.
func (a *Assembly) FieldMarshalTable() (Table[FieldMarshal], bool) {
	return table(a, TableFieldMarshal, decodeFieldMarshal)
}

// DeclSecurityTable returns the DeclSecurity table, or false if the image has none.
func (a *Assembly) DeclSecurityTable() (Table[DeclSecurity], bool) {
	return table(a, TableDeclSecurity, decodeDeclSecurity)
}

// ClassLayoutTable returns the ClassLayout table, or false if the image has none.
func (a *Assembly) ClassLayoutTable() (Table[ClassLayout], bool) {
	return table(a, TableClassLayout, decodeClassLayout)
}

// FieldLayoutTable returns the FieldLayout table, or false if the image has none.
func (a *Assembly) FieldLayoutTable() (Table[FieldLayout], bool) {
	return table(a, TableFieldLayout, decodeFieldLayout)
}

// StandAloneSigTable returns the StandAloneSig table, or false if the image has none.
func (a *Assembly) StandAloneSigTable() (Table[StandAloneSig], bool) {
	return table(a, TableStandAloneSig, decodeStandAloneSig)
}

// EventMapTable returns the EventMap table, or false if the image has none.
func (a *Assembly) EventMapTable() (Table[EventMap], bool) {
	return table(a, TableEventMap, decodeEventMap)
}

// EventPtrTable returns the EventPtr table, or false if the image has none.
func (a *Assembly) EventPtrTable() (Table[EventPtr], bool) {
	return table(a, TableEventPtr, decodeEventPtr)
}

// EventTable returns the Event table, or false if the image has none.
func (a *Assembly) EventTable() (Table[Event], bool) {
	return table(a, TableEvent, decodeEvent)
}

// PropertyMapTable returns the PropertyMap table, or false if the image has none.
func (a *Assembly) PropertyMapTable() (Table[PropertyMap], bool) {
	return table(a, TablePropertyMap, decodePropertyMap)
}

// PropertyPtrTable returns the PropertyPtr table, or false if the image has none.
func (a *Assembly) PropertyPtrTable() (Table[PropertyPtr], bool) {
	return table(a, TablePropertyPtr, decodePropertyPtr)
}

// PropertyTable returns the Property table, or false if the image has none.
func (a *Assembly) PropertyTable() (Table[Property], bool) {
	return table(a, TableProperty, decodeProperty)
}

// MethodSemanticsTable returns the MethodSemantics table, or false if the image has none.
func (a *Assembly) MethodSemanticsTable() (Table[MethodSemantics], bool) {
	return table(a, TableMethodSemantics, decodeMethodSemantics)
}

// MethodImplTable returns the MethodImpl table, or false if the image has none.
func (a *Assembly) MethodImplTable() (Table[MethodImpl], bool) {
	return table(a, TableMethodImpl, decodeMethodImpl)
}

// ModuleRefTable returns the ModuleRef table, or false if the image has none.
func (a *Assembly) ModuleRefTable() (Table[ModuleRef], bool) {
	return table(a, TableModuleRef, decodeModuleRef)
}

// TypeSpecTable returns the TypeSpec table, or false if the image has none.
func (a *Assembly) TypeSpecTable() (Table[TypeSpec], bool) {
	return table(a, TableTypeSpec, decodeTypeSpec)
}

// ImplMapTable returns the ImplMap table, or false if the image has none.
func (a *Assembly) ImplMapTable() (Table[ImplMap], bool) {
	return table(a, TableImplMap, decodeImplMap)
}

// FieldRVATable returns the FieldRVA table, or false if the image has none.
func (a *Assembly) FieldRVATable() (Table[FieldRVA], bool) {
	return table(a, TableFieldRVA, decodeFieldRVA)
}

// EncLogTable returns the EncLog table, or false if the image has none.
func (a *Assembly) EncLogTable() (Table[EncLog], bool) {
	return table(a, TableEncLog, decodeEncLog)
}

// EncMapTable returns the EncMap table, or false if the image has none.
func (a *Assembly) EncMapTable() (Table[EncMap], bool) {
	return table(a, TableEncMap, decodeEncMap)
}

// AssemblyTable returns the Assembly table, or false if the image has none.
func (a *Assembly) AssemblyTable() (Table[AssemblyDef], bool) {
	return table(a, TableAssembly, decodeAssemblyDef)
}

// AssemblyProcessorTable returns the AssemblyProcessor table, or false if the image has none.
func (a *Assembly) AssemblyProcessorTable() (Table[AssemblyProcessor], bool) {
	return table(a, TableAssemblyProcessor, decodeAssemblyProcessor)
}

// AssemblyOSTable returns the AssemblyOS table, or false if the image has none.
func (a *Assembly) AssemblyOSTable() (Table[AssemblyOS], bool) {
	return table(a, TableAssemblyOS, decodeAssemblyOS)
}

// AssemblyRefTable returns the AssemblyRef table, or false if the image has none.
func (a *Assembly) AssemblyRefTable() (Table[AssemblyRef], bool) {
	return table(a, TableAssemblyRef, decodeAssemblyRef)
}

// AssemblyRefProcessorTable returns the AssemblyRefProcessor table, or false if the image has none.
func (a *Assembly) AssemblyRefProcessorTable() (Table[AssemblyRefProcessor], bool) {
	return table(a, TableAssemblyRefProcessor, decodeAssemblyRefProcessor)
}

// AssemblyRefOSTable returns the AssemblyRefOS table, or false if the image has none.
func (a *Assembly) AssemblyRefOSTable() (Table[AssemblyRefOS], bool) {
	return table(a, TableAssemblyRefOS, decodeAssemblyRefOS)
}

// FileTable returns the File table, or false if the image has none.
func (a *Assembly) FileTable() (Table[File], bool) {
	return table(a, TableFile, decodeFile)
}

// ExportedTypeTable returns the ExportedType table, or false if the image has none.
func (a *Assembly) ExportedTypeTable() (Table[ExportedType], bool) {
	return table(a, TableExportedType, decodeExportedType)
}

// ManifestResourceTable returns the ManifestResource table, or false if the image has none.
func (a *Assembly) ManifestResourceTable() (Table[ManifestResource], bool) {
	return table(a, TableManifestResource, decodeManifestResource)
}

// NestedClassTable returns the NestedClass table, or false if the image has none.
func (a *Assembly) NestedClassTable() (Table[NestedClass], bool) {
	return table(a, TableNestedClass, decodeNestedClass)
}

// GenericParamTable returns the GenericParam table, or false if the image has none.
func (a *Assembly) GenericParamTable() (Table[GenericParam], bool) {
	return table(a, TableGenericParam, decodeGenericParam)
}

// MethodSpecTable returns the MethodSpec table, or false if the image has none.
func (a *Assembly) MethodSpecTable() (Table[MethodSpec], bool) {
	return table(a, TableMethodSpec, decodeMethodSpec)
}

// GenericParamConstraintTable returns the GenericParamConstraint table, or false if the image has none.
func (a *Assembly) GenericParamConstraintTable() (Table[GenericParamConstraint], bool) {
	return table(a, TableGenericParamConstraint, decodeGenericParamConstraint)
}

// RawRow returns the undecoded column values of row i of table id, in schema
// order. Heap and table indices are returned as stored.
func (a *Assembly) RawRow(id TableID, i uint32) ([]uint32, error) {
	cols, ok := Schema(id)
	tl := a.layout.Table(id)
	if !ok || !tl.Present {
		return nil, errors.OutOfRange(errors.PhaseTable, []string{id.String()}, uint64(i), 0)
	}
	if i >= tl.Rows {
		return nil, errors.OutOfRange(errors.PhaseTable, []string{id.String()}, uint64(i), uint64(tl.Rows))
	}
	off := uint64(i) * uint64(tl.RowSize)
	r := rowReader{b: a.layout.TableData(id)[off : off+uint64(tl.RowSize)], sizes: a.layout.Sizes}
	vals := make([]uint32, len(cols))
	for j, c := range cols {
		vals[j] = r.read(a.layout.Sizes.ColumnWidth(c))
	}
	return vals, nil
}
