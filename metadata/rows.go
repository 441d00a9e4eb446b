package metadata

import "github.com/wippyai/cilium/internal/binary"

// Heap references.
type (
	StringIndex     uint32 // byte offset into #Strings
	BlobIndex       uint32 // byte offset into #Blob
	GUIDIndex       uint32 // 1-based index into #GUID
	UserStringIndex uint32 // byte offset into #US
)

// Simple table indices. They are 1-based row numbers; 0 is null.
type (
	FieldIndex        uint32
	MethodDefIndex    uint32
	ParamIndex        uint32
	TypeDefIndex      uint32
	EventIndex        uint32
	PropertyIndex     uint32
	ModuleRefIndex    uint32
	AssemblyRefIndex  uint32
	GenericParamIndex uint32
)

// Module is a row of the Module table.
type Module struct {
	Generation uint16
	Name       StringIndex
	Mvid       GUIDIndex
	EncID      GUIDIndex
	EncBaseID  GUIDIndex
}

// TypeRef is a row of the TypeRef table.
type TypeRef struct {
	ResolutionScope ResolutionScope
	TypeName        StringIndex
	TypeNamespace   StringIndex
}

// TypeDef is a row of the TypeDef table. FieldList and MethodList start the
// runs of fields and methods owned by the type; the runs end where the next
// row's begin.
type TypeDef struct {
	Flags         TypeAttributes
	TypeName      StringIndex
	TypeNamespace StringIndex
	Extends       TypeDefOrRef
	FieldList     FieldIndex
	MethodList    MethodDefIndex
}

// FieldPtr is a row of the FieldPtr indirection table of unoptimized metadata.
type FieldPtr struct {
	Field FieldIndex
}

// Field is a row of the Field table.
type Field struct {
	Flags     FieldAttributes
	Name      StringIndex
	Signature BlobIndex
}

// MethodPtr is a row of the MethodPtr indirection table.
type MethodPtr struct {
	Method MethodDefIndex
}

// MethodDef is a row of the MethodDef table. RVA is 0 for abstract and
// runtime-implemented methods.
type MethodDef struct {
	RVA       uint32
	ImplFlags MethodImplAttributes
	Flags     MethodAttributes
	Name      StringIndex
	Signature BlobIndex
	ParamList ParamIndex
}

// ParamPtr is a row of the ParamPtr indirection table.
type ParamPtr struct {
	Param ParamIndex
}

// Param is a row of the Param table. Sequence 0 is the return value.
type Param struct {
	Flags    ParamAttributes
	Sequence uint16
	Name     StringIndex
}

// InterfaceImpl records that Class implements Interface.
type InterfaceImpl struct {
	Class     TypeDefIndex
	Interface TypeDefOrRef
}

// MemberRef is a row of the MemberRef table: a field or method reference with its signature.
type MemberRef struct {
	Class     MemberRefParent
	Name      StringIndex
	Signature BlobIndex
}

// Constant is a row of the Constant table. Type is the element type of Value.
type Constant struct {
	Type    ElementType
	Padding uint8
	Parent  HasConstant
	Value   BlobIndex
}

// CustomAttribute is a row of the CustomAttribute table.
type CustomAttribute struct {
	Parent HasCustomAttribute
	Type   CustomAttributeType
	Value  BlobIndex
}

// FieldMarshal is a row of the FieldMarshal table.
type FieldMarshal struct {
	Parent     HasFieldMarshal
	NativeType BlobIndex
}

// DeclSecurity is a row of the DeclSecurity table.
type DeclSecurity struct {
	Action        uint16
	Parent        HasDeclSecurity
	PermissionSet BlobIndex
}

// ClassLayout is a row of the ClassLayout table.
type ClassLayout struct {
	PackingSize uint16
	ClassSize   uint32
	Parent      TypeDefIndex
}

// FieldLayout is a row of the FieldLayout table.
type FieldLayout struct {
	Offset uint32
	Field  FieldIndex
}

// StandAloneSig is a row of the StandAloneSig table.
type StandAloneSig struct {
	Signature BlobIndex
}

// EventMap maps a type to the start of its run of events.
type EventMap struct {
	Parent    TypeDefIndex
	EventList EventIndex
}

// EventPtr is a row of the EventPtr indirection table.
type EventPtr struct {
	Event EventIndex
}

// Event is a row of the Event table.
type Event struct {
	EventFlags EventAttributes
	Name       StringIndex
	EventType  TypeDefOrRef
}

// PropertyMap maps a type to the start of its run of properties.
type PropertyMap struct {
	Parent       TypeDefIndex
	PropertyList PropertyIndex
}

// PropertyPtr is a row of the PropertyPtr indirection table.
type PropertyPtr struct {
	Property PropertyIndex
}

// Property is a row of the Property table.
type Property struct {
	Flags PropertyAttributes
	Name  StringIndex
	Type  BlobIndex
}

// MethodSemantics links an event or property to one of its accessor methods.
type MethodSemantics struct {
	Semantics   MethodSemanticsAttributes
	Method      MethodDefIndex
	Association HasSemantics
}

// MethodImpl is a row of the MethodImpl table.
type MethodImpl struct {
	Class             TypeDefIndex
	MethodBody        MethodDefOrRef
	MethodDeclaration MethodDefOrRef
}

// ModuleRef is a row of the ModuleRef table.
type ModuleRef struct {
	Name StringIndex
}

// TypeSpec is a row of the TypeSpec table.
type TypeSpec struct {
	Signature BlobIndex
}

// ImplMap is a row of the ImplMap table describing a P/Invoke target.
type ImplMap struct {
	MappingFlags    PInvokeAttributes
	MemberForwarded MemberForwarded
	ImportName      StringIndex
	ImportScope     ModuleRefIndex
}

// FieldRVA is a row of the FieldRVA table.
type FieldRVA struct {
	RVA   uint32
	Field FieldIndex
}

// EncLog is a row of the edit-and-continue log.
type EncLog struct {
	Token    Token
	FuncCode uint32
}

// EncMap is a row of the edit-and-continue token map.
type EncMap struct {
	Token Token
}

// AssemblyDef is a row of the Assembly table. The table holds at most one
// row.
type AssemblyDef struct {
	HashAlgID      AssemblyHashAlgorithm
	MajorVersion   uint16
	MinorVersion   uint16
	BuildNumber    uint16
	RevisionNumber uint16
	Flags          AssemblyFlags
	PublicKey      BlobIndex
	Name           StringIndex
	Culture        StringIndex
}

// AssemblyProcessor is a row of the AssemblyProcessor table. Runtimes ignore it.
type AssemblyProcessor struct {
	Processor uint32
}

// AssemblyOS is a row of the AssemblyOS table. Runtimes ignore it.
type AssemblyOS struct {
	OSPlatformID   uint32
	OSMajorVersion uint32
	OSMinorVersion uint32
}

// AssemblyRef is a row of the AssemblyRef table.
type AssemblyRef struct {
	MajorVersion     uint16
	MinorVersion     uint16
	BuildNumber      uint16
	RevisionNumber   uint16
	Flags            AssemblyFlags
	PublicKeyOrToken BlobIndex
	Name             StringIndex
	Culture          StringIndex
	HashValue        BlobIndex
}

// AssemblyRefProcessor is a row of the AssemblyRefProcessor table.
type AssemblyRefProcessor struct {
	Processor   uint32
	AssemblyRef AssemblyRefIndex
}

// AssemblyRefOS is a row of the AssemblyRefOS table.
type AssemblyRefOS struct {
	OSPlatformID   uint32
	OSMajorVersion uint32
	OSMinorVersion uint32
	AssemblyRef    AssemblyRefIndex
}

// File is a row of the File table.
type File struct {
	Flags     FileAttributes
	Name      StringIndex
	HashValue BlobIndex
}

// ExportedType is a row of the ExportedType table. TypeDefID is a hint into
// the TypeDef table of the target module and is always 4 bytes.
type ExportedType struct {
	Flags          TypeAttributes
	TypeDefID      uint32
	TypeName       StringIndex
	TypeNamespace  StringIndex
	Implementation Implementation
}

// ManifestResource is a row of the ManifestResource table. A null
// Implementation means the resource is embedded at Offset in the CLI
// header's Resources directory.
type ManifestResource struct {
	Offset         uint32
	Flags          ManifestResourceAttributes
	Name           StringIndex
	Implementation Implementation
}

// NestedClass is a row of the NestedClass table.
type NestedClass struct {
	NestedClass    TypeDefIndex
	EnclosingClass TypeDefIndex
}

// GenericParam is a row of the GenericParam table.
type GenericParam struct {
	Number uint16
	Flags  GenericParamAttributes
	Owner  TypeOrMethodDef
	Name   StringIndex
}

// MethodSpec is a row of the MethodSpec table: a generic method instantiation.
type MethodSpec struct {
	Method        MethodDefOrRef
	Instantiation BlobIndex
}

// GenericParamConstraint is a row of the GenericParamConstraint table.
type GenericParamConstraint struct {
	Owner      GenericParamIndex
	Constraint TypeDefOrRef
}

// rowReader decodes columns of a single row. Widths come from sizes; the
// caller guarantees b holds exactly one row.
type rowReader struct {
	b     []byte
	pos   int
	sizes *IndexSizes
}

func (r *rowReader) read(n int) uint32 {
	v := binary.Uint[uint32](r.b[r.pos : r.pos+n])
	r.pos += n
	return v
}

func (r *rowReader) u8() uint8                    { return uint8(r.read(1)) }
func (r *rowReader) u16() uint16                  { return uint16(r.read(2)) }
func (r *rowReader) u32() uint32                  { return r.read(4) }
func (r *rowReader) str() StringIndex             { return StringIndex(r.read(int(r.sizes.String))) }
func (r *rowReader) guid() GUIDIndex              { return GUIDIndex(r.read(int(r.sizes.GUID))) }
func (r *rowReader) blob() BlobIndex              { return BlobIndex(r.read(int(r.sizes.Blob))) }
func (r *rowReader) index(t TableID) uint32       { return r.read(r.sizes.TableIndexWidth(t)) }
func (r *rowReader) coded(k CodedKind) CodedIndex { return k.Decode(r.read(r.sizes.CodedWidth(k))) }

func decodeModule(r *rowReader) Module {
	return Module{
		Generation: r.u16(),
		Name:       r.str(),
		Mvid:       r.guid(),
		EncID:      r.guid(),
		EncBaseID:  r.guid(),
	}
}

func decodeTypeRef(r *rowReader) TypeRef {
	return TypeRef{
		ResolutionScope: ResolutionScope{r.coded(CodedResolutionScope)},
		TypeName:        r.str(),
		TypeNamespace:   r.str(),
	}
}

func decodeTypeDef(r *rowReader) TypeDef {
	return TypeDef{
		Flags:         TypeAttributes(r.u32()),
		TypeName:      r.str(),
		TypeNamespace: r.str(),
		Extends:       TypeDefOrRef{r.coded(CodedTypeDefOrRef)},
		FieldList:     FieldIndex(r.index(TableField)),
		MethodList:    MethodDefIndex(r.index(TableMethodDef)),
	}
}

func decodeFieldPtr(r *rowReader) FieldPtr {
	return FieldPtr{Field: FieldIndex(r.index(TableField))}
}

func decodeField(r *rowReader) Field {
	return Field{
		Flags:     FieldAttributes(r.u16()),
		Name:      r.str(),
		Signature: r.blob(),
	}
}

func decodeMethodPtr(r *rowReader) MethodPtr {
	return MethodPtr{Method: MethodDefIndex(r.index(TableMethodDef))}
}

func decodeMethodDef(r *rowReader) MethodDef {
	return MethodDef{
		RVA:       r.u32(),
		ImplFlags: MethodImplAttributes(r.u16()),
		Flags:     MethodAttributes(r.u16()),
		Name:      r.str(),
		Signature: r.blob(),
		ParamList: ParamIndex(r.index(TableParam)),
	}
}

func decodeParamPtr(r *rowReader) ParamPtr {
	return ParamPtr{Param: ParamIndex(r.index(TableParam))}
}

func decodeParam(r *rowReader) Param {
	return Param{
		Flags:    ParamAttributes(r.u16()),
		Sequence: r.u16(),
		Name:     r.str(),
	}
}

func decodeInterfaceImpl(r *rowReader) InterfaceImpl {
	return InterfaceImpl{
		Class:     TypeDefIndex(r.index(TableTypeDef)),
		Interface: TypeDefOrRef{r.coded(CodedTypeDefOrRef)},
	}
}

func decodeMemberRef(r *rowReader) MemberRef {
	return MemberRef{
		Class:     MemberRefParent{r.coded(CodedMemberRefParent)},
		Name:      r.str(),
		Signature: r.blob(),
	}
}

func decodeConstant(r *rowReader) Constant {
	return Constant{
		Type:    ElementType(r.u8()),
		Padding: r.u8(),
		Parent:  HasConstant{r.coded(CodedHasConstant)},
		Value:   r.blob(),
	}
}

func decodeCustomAttribute(r *rowReader) CustomAttribute {
	return CustomAttribute{
		Parent: HasCustomAttribute{r.coded(CodedHasCustomAttribute)},
		Type:   CustomAttributeType{r.coded(CodedCustomAttributeType)},
		Value:  r.blob(),
	}
}

func decodeFieldMarshal(r *rowReader) FieldMarshal {
	return FieldMarshal{
		Parent:     HasFieldMarshal{r.coded(CodedHasFieldMarshal)},
		NativeType: r.blob(),
	}
}

func decodeDeclSecurity(r *rowReader) DeclSecurity {
	return DeclSecurity{
		Action:        r.u16(),
		Parent:        HasDeclSecurity{r.coded(CodedHasDeclSecurity)},
		PermissionSet: r.blob(),
	}
}

func decodeClassLayout(r *rowReader) ClassLayout {
	return ClassLayout{
		PackingSize: r.u16(),
		ClassSize:   r.u32(),
		Parent:      TypeDefIndex(r.index(TableTypeDef)),
	}
}

func decodeFieldLayout(r *rowReader) FieldLayout {
	return FieldLayout{
		Offset: r.u32(),
		Field:  FieldIndex(r.index(TableField)),
	}
}

func decodeStandAloneSig(r *rowReader) StandAloneSig {
	return StandAloneSig{Signature: r.blob()}
}

func decodeEventMap(r *rowReader) EventMap {
	return EventMap{
		Parent:    TypeDefIndex(r.index(TableTypeDef)),
		EventList: EventIndex(r.index(TableEvent)),
	}
}

func decodeEventPtr(r *rowReader) EventPtr {
	return EventPtr{Event: EventIndex(r.index(TableEvent))}
}

func decodeEvent(r *rowReader) Event {
	return Event{
		EventFlags: EventAttributes(r.u16()),
		Name:       r.str(),
		EventType:  TypeDefOrRef{r.coded(CodedTypeDefOrRef)},
	}
}

func decodePropertyMap(r *rowReader) PropertyMap {
	return PropertyMap{
		Parent:       TypeDefIndex(r.index(TableTypeDef)),
		PropertyList: PropertyIndex(r.index(TableProperty)),
	}
}

func decodePropertyPtr(r *rowReader) PropertyPtr {
	return PropertyPtr{Property: PropertyIndex(r.index(TableProperty))}
}

func decodeProperty(r *rowReader) Property {
	return Property{
		Flags: PropertyAttributes(r.u16()),
		Name:  r.str(),
		Type:  r.blob(),
	}
}

func decodeMethodSemantics(r *rowReader) MethodSemantics {
	return MethodSemantics{
		Semantics:   MethodSemanticsAttributes(r.u16()),
		Method:      MethodDefIndex(r.index(TableMethodDef)),
		Association: HasSemantics{r.coded(CodedHasSemantics)},
	}
}

func decodeMethodImpl(r *rowReader) MethodImpl {
	return MethodImpl{
		Class:             TypeDefIndex(r.index(TableTypeDef)),
		MethodBody:        MethodDefOrRef{r.coded(CodedMethodDefOrRef)},
		MethodDeclaration: MethodDefOrRef{r.coded(CodedMethodDefOrRef)},
	}
}

func decodeModuleRef(r *rowReader) ModuleRef {
	return ModuleRef{Name: r.str()}
}

func decodeTypeSpec(r *rowReader) TypeSpec {
	return TypeSpec{Signature: r.blob()}
}

func decodeImplMap(r *rowReader) ImplMap {
	return ImplMap{
		MappingFlags:    PInvokeAttributes(r.u16()),
		MemberForwarded: MemberForwarded{r.coded(CodedMemberForwarded)},
		ImportName:      r.str(),
		ImportScope:     ModuleRefIndex(r.index(TableModuleRef)),
	}
}

func decodeFieldRVA(r *rowReader) FieldRVA {
	return FieldRVA{
		RVA:   r.u32(),
		Field: FieldIndex(r.index(TableField)),
	}
}

func decodeEncLog(r *rowReader) EncLog {
	return EncLog{Token: Token(r.u32()), FuncCode: r.u32()}
}

func decodeEncMap(r *rowReader) EncMap {
	return EncMap{Token: Token(r.u32())}
}

func decodeAssemblyDef(r *rowReader) AssemblyDef {
	return AssemblyDef{
		HashAlgID:      AssemblyHashAlgorithm(r.u32()),
		MajorVersion:   r.u16(),
		MinorVersion:   r.u16(),
		BuildNumber:    r.u16(),
		RevisionNumber: r.u16(),
		Flags:          AssemblyFlags(r.u32()),
		PublicKey:      r.blob(),
		Name:           r.str(),
		Culture:        r.str(),
	}
}

func decodeAssemblyProcessor(r *rowReader) AssemblyProcessor {
	return AssemblyProcessor{Processor: r.u32()}
}

func decodeAssemblyOS(r *rowReader) AssemblyOS {
	return AssemblyOS{
		OSPlatformID:   r.u32(),
		OSMajorVersion: r.u32(),
		OSMinorVersion: r.u32(),
	}
}

func decodeAssemblyRef(r *rowReader) AssemblyRef {
	return AssemblyRef{
		MajorVersion:     r.u16(),
		MinorVersion:     r.u16(),
		BuildNumber:      r.u16(),
		RevisionNumber:   r.u16(),
		Flags:            AssemblyFlags(r.u32()),
		PublicKeyOrToken: r.blob(),
		Name:             r.str(),
		Culture:          r.str(),
		HashValue:        r.blob(),
	}
}

func decodeAssemblyRefProcessor(r *rowReader) AssemblyRefProcessor {
	return AssemblyRefProcessor{
		Processor:   r.u32(),
		AssemblyRef: AssemblyRefIndex(r.index(TableAssemblyRef)),
	}
}

func decodeAssemblyRefOS(r *rowReader) AssemblyRefOS {
	return AssemblyRefOS{
		OSPlatformID:   r.u32(),
		OSMajorVersion: r.u32(),
		OSMinorVersion: r.u32(),
		AssemblyRef:    AssemblyRefIndex(r.index(TableAssemblyRef)),
	}
}

func decodeFile(r *rowReader) File {
	return File{
		Flags:     FileAttributes(r.u32()),
		Name:      r.str(),
		HashValue: r.blob(),
	}
}

func decodeExportedType(r *rowReader) ExportedType {
	return ExportedType{
		Flags:          TypeAttributes(r.u32()),
		TypeDefID:      r.u32(),
		TypeName:       r.str(),
		TypeNamespace:  r.str(),
		Implementation: Implementation{r.coded(CodedImplementation)},
	}
}

func decodeManifestResource(r *rowReader) ManifestResource {
	return ManifestResource{
		Offset:         r.u32(),
		Flags:          ManifestResourceAttributes(r.u32()),
		Name:           r.str(),
		Implementation: Implementation{r.coded(CodedImplementation)},
	}
}

func decodeNestedClass(r *rowReader) NestedClass {
	return NestedClass{
		NestedClass:    TypeDefIndex(r.index(TableTypeDef)),
		EnclosingClass: TypeDefIndex(r.index(TableTypeDef)),
	}
}

func decodeGenericParam(r *rowReader) GenericParam {
	return GenericParam{
		Number: r.u16(),
		Flags:  GenericParamAttributes(r.u16()),
		Owner:  TypeOrMethodDef{r.coded(CodedTypeOrMethodDef)},
		Name:   r.str(),
	}
}

func decodeMethodSpec(r *rowReader) MethodSpec {
	return MethodSpec{
		Method:        MethodDefOrRef{r.coded(CodedMethodDefOrRef)},
		Instantiation: r.blob(),
	}
}

func decodeGenericParamConstraint(r *rowReader) GenericParamConstraint {
	return GenericParamConstraint{
		Owner:      GenericParamIndex(r.index(TableGenericParam)),
		Constraint: TypeDefOrRef{r.coded(CodedTypeDefOrRef)},
	}
}

// anyDecoder adapts a typed decoder for the untyped registry.
func anyDecoder[R any](d func(*rowReader) R) func(*rowReader) any {
	return func(r *rowReader) any { return d(r) }
}

// rowDecoders holds the decoder of every table with a schema.
var rowDecoders = [...]func(*rowReader) any{
	TableModule:                 anyDecoder(decodeModule),
	TableTypeRef:                anyDecoder(decodeTypeRef),
	TableTypeDef:                anyDecoder(decodeTypeDef),
	TableFieldPtr:               anyDecoder(decodeFieldPtr),
	TableField:                  anyDecoder(decodeField),
	TableMethodPtr:              anyDecoder(decodeMethodPtr),
	TableMethodDef:              anyDecoder(decodeMethodDef),
	TableParamPtr:               anyDecoder(decodeParamPtr),
	TableParam:                  anyDecoder(decodeParam),
	TableInterfaceImpl:          anyDecoder(decodeInterfaceImpl),
	TableMemberRef:              anyDecoder(decodeMemberRef),
	TableConstant:               anyDecoder(decodeConstant),
	TableCustomAttribute:        anyDecoder(decodeCustomAttribute),
	TableFieldMarshal:           anyDecoder(decodeFieldMarshal),
	TableDeclSecurity:           anyDecoder(decodeDeclSecurity),
	TableClassLayout:            anyDecoder(decodeClassLayout),
	TableFieldLayout:            anyDecoder(decodeFieldLayout),
	TableStandAloneSig:          anyDecoder(decodeStandAloneSig),
	TableEventMap:               anyDecoder(decodeEventMap),
	TableEventPtr:               anyDecoder(decodeEventPtr),
	TableEvent:                  anyDecoder(decodeEvent),
	TablePropertyMap:            anyDecoder(decodePropertyMap),
	TablePropertyPtr:            anyDecoder(decodePropertyPtr),
	TableProperty:               anyDecoder(decodeProperty),
	TableMethodSemantics:        anyDecoder(decodeMethodSemantics),
	TableMethodImpl:             anyDecoder(decodeMethodImpl),
	TableModuleRef:              anyDecoder(decodeModuleRef),
	TableTypeSpec:               anyDecoder(decodeTypeSpec),
	TableImplMap:                anyDecoder(decodeImplMap),
	TableFieldRVA:               anyDecoder(decodeFieldRVA),
	TableEncLog:                 anyDecoder(decodeEncLog),
	TableEncMap:                 anyDecoder(decodeEncMap),
	TableAssembly:               anyDecoder(decodeAssemblyDef),
	TableAssemblyProcessor:      anyDecoder(decodeAssemblyProcessor),
	TableAssemblyOS:             anyDecoder(decodeAssemblyOS),
	TableAssemblyRef:            anyDecoder(decodeAssemblyRef),
	TableAssemblyRefProcessor:   anyDecoder(decodeAssemblyRefProcessor),
	TableAssemblyRefOS:          anyDecoder(decodeAssemblyRefOS),
	TableFile:                   anyDecoder(decodeFile),
	TableExportedType:           anyDecoder(decodeExportedType),
	TableManifestResource:       anyDecoder(decodeManifestResource),
	TableNestedClass:            anyDecoder(decodeNestedClass),
	TableGenericParam:           anyDecoder(decodeGenericParam),
	TableMethodSpec:             anyDecoder(decodeMethodSpec),
	TableGenericParamConstraint: anyDecoder(decodeGenericParamConstraint),
}
