package metadata

import "fmt"

// TableID identifies a metadata table. It is the bit position in the tables
// stream's valid mask and the top byte of a Token.
type TableID uint8

// ECMA-335 tables.
const (
	TableModule                 TableID = 0x00
	TableTypeRef                TableID = 0x01
	TableTypeDef                TableID = 0x02
	TableFieldPtr               TableID = 0x03
	TableField                  TableID = 0x04
	TableMethodPtr              TableID = 0x05
	TableMethodDef              TableID = 0x06
	TableParamPtr               TableID = 0x07
	TableParam                  TableID = 0x08
	TableInterfaceImpl          TableID = 0x09
	TableMemberRef              TableID = 0x0A
	TableConstant               TableID = 0x0B
	TableCustomAttribute        TableID = 0x0C
	TableFieldMarshal           TableID = 0x0D
	TableDeclSecurity           TableID = 0x0E
	TableClassLayout            TableID = 0x0F
	TableFieldLayout            TableID = 0x10
	TableStandAloneSig          TableID = 0x11
	TableEventMap               TableID = 0x12
	TableEventPtr               TableID = 0x13
	TableEvent                  TableID = 0x14
	TablePropertyMap            TableID = 0x15
	TablePropertyPtr            TableID = 0x16
	TableProperty               TableID = 0x17
	TableMethodSemantics        TableID = 0x18
	TableMethodImpl             TableID = 0x19
	TableModuleRef              TableID = 0x1A
	TableTypeSpec               TableID = 0x1B
	TableImplMap                TableID = 0x1C
	TableFieldRVA               TableID = 0x1D
	TableEncLog                 TableID = 0x1E
	TableEncMap                 TableID = 0x1F
	TableAssembly               TableID = 0x20
	TableAssemblyProcessor      TableID = 0x21
	TableAssemblyOS             TableID = 0x22
	TableAssemblyRef            TableID = 0x23
	TableAssemblyRefProcessor   TableID = 0x24
	TableAssemblyRefOS          TableID = 0x25
	TableFile                   TableID = 0x26
	TableExportedType           TableID = 0x27
	TableManifestResource       TableID = 0x28
	TableNestedClass            TableID = 0x29
	TableGenericParam           TableID = 0x2A
	TableMethodSpec             TableID = 0x2B
	TableGenericParamConstraint TableID = 0x2C
)

// Portable PDB tables. They have no row schema here; the ids exist because
// HasCustomDebugInformation can reference them.
const (
	TableDocument               TableID = 0x30
	TableMethodDebugInformation TableID = 0x31
	TableLocalScope             TableID = 0x32
	TableLocalVariable          TableID = 0x33
	TableLocalConstant          TableID = 0x34
	TableImportScope            TableID = 0x35
	TableStateMachineMethod     TableID = 0x36
	TableCustomDebugInformation TableID = 0x37
)

const (
	// MaxTables is the number of bits in the valid mask.
	MaxTables = 64

	// TableUnused marks a coded index tag that selects no table.
	TableUnused TableID = 0xFF
)

var tableNames = [MaxTables]string{
	TableModule:                 "Module",
	TableTypeRef:                "TypeRef",
	TableTypeDef:                "TypeDef",
	TableFieldPtr:               "FieldPtr",
	TableField:                  "Field",
	TableMethodPtr:              "MethodPtr",
	TableMethodDef:              "MethodDef",
	TableParamPtr:               "ParamPtr",
	TableParam:                  "Param",
	TableInterfaceImpl:          "InterfaceImpl",
	TableMemberRef:              "MemberRef",
	TableConstant:               "Constant",
	TableCustomAttribute:        "CustomAttribute",
	TableFieldMarshal:           "FieldMarshal",
	TableDeclSecurity:           "DeclSecurity",
	TableClassLayout:            "ClassLayout",
	TableFieldLayout:            "FieldLayout",
	TableStandAloneSig:          "StandAloneSig",
	TableEventMap:               "EventMap",
	TableEventPtr:               "EventPtr",
	TableEvent:                  "Event",
	TablePropertyMap:            "PropertyMap",
	TablePropertyPtr:            "PropertyPtr",
	TableProperty:               "Property",
	TableMethodSemantics:        "MethodSemantics",
	TableMethodImpl:             "MethodImpl",
	TableModuleRef:              "ModuleRef",
	TableTypeSpec:               "TypeSpec",
	TableImplMap:                "ImplMap",
	TableFieldRVA:               "FieldRVA",
	TableEncLog:                 "EncLog",
	TableEncMap:                 "EncMap",
	TableAssembly:               "Assembly",
	TableAssemblyProcessor:      "AssemblyProcessor",
	TableAssemblyOS:             "AssemblyOS",
	TableAssemblyRef:            "AssemblyRef",
	TableAssemblyRefProcessor:   "AssemblyRefProcessor",
	TableAssemblyRefOS:          "AssemblyRefOS",
	TableFile:                   "File",
	TableExportedType:           "ExportedType",
	TableManifestResource:       "ManifestResource",
	TableNestedClass:            "NestedClass",
	TableGenericParam:           "GenericParam",
	TableMethodSpec:             "MethodSpec",
	TableGenericParamConstraint: "GenericParamConstraint",
	TableDocument:               "Document",
	TableMethodDebugInformation: "MethodDebugInformation",
	TableLocalScope:             "LocalScope",
	TableLocalVariable:          "LocalVariable",
	TableLocalConstant:          "LocalConstant",
	TableImportScope:            "ImportScope",
	TableStateMachineMethod:     "StateMachineMethod",
	TableCustomDebugInformation: "CustomDebugInformation",
}

func (t TableID) String() string {
	if int(t) < MaxTables && tableNames[t] != "" {
		return tableNames[t]
	}
	return fmt.Sprintf("Table(0x%02x)", uint8(t))
}

// LookupTable returns the table with the given name, as printed by String.
func LookupTable(name string) (TableID, bool) {
	for i, n := range tableNames {
		if n == name {
			return TableID(i), true
		}
	}
	return 0, false
}

// ColumnKind says how a column's width is determined.
type ColumnKind uint8

const (
	ColumnFixed  ColumnKind = iota // Size bytes
	ColumnString                   // #Strings offset
	ColumnGUID                     // #GUID index
	ColumnBlob                     // #Blob offset
	ColumnTable                    // simple index into Table
	ColumnCoded                    // coded index of kind Coded
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnFixed:
		return "fixed"
	case ColumnString:
		return "string"
	case ColumnGUID:
		return "guid"
	case ColumnBlob:
		return "blob"
	case ColumnTable:
		return "index"
	case ColumnCoded:
		return "coded"
	default:
		return fmt.Sprintf("ColumnKind(%d)", uint8(k))
	}
}

// Column describes one column of a table row.
type Column struct {
	Name  string
	Kind  ColumnKind
	Size  uint8     // ColumnFixed only
	Table TableID   // ColumnTable only
	Coded CodedKind // ColumnCoded only
}

func fixed(name string, size uint8) Column { return Column{Name: name, Kind: ColumnFixed, Size: size} }
func strCol(name string) Column            { return Column{Name: name, Kind: ColumnString} }
func guidCol(name string) Column           { return Column{Name: name, Kind: ColumnGUID} }
func blobCol(name string) Column           { return Column{Name: name, Kind: ColumnBlob} }

func index(name string, t TableID) Column {
	return Column{Name: name, Kind: ColumnTable, Table: t}
}

func coded(name string, k CodedKind) Column {
	return Column{Name: name, Kind: ColumnCoded, Coded: k}
}

// schemas lists the columns of every table in ECMA-335 Partition II §22.
var schemas = [...][]Column{
	TableModule: {
		fixed("Generation", 2), strCol("Name"), guidCol("Mvid"), guidCol("EncId"), guidCol("EncBaseId"),
	},
	TableTypeRef: {
		coded("ResolutionScope", CodedResolutionScope), strCol("TypeName"), strCol("TypeNamespace"),
	},
	TableTypeDef: {
		fixed("Flags", 4), strCol("TypeName"), strCol("TypeNamespace"),
		coded("Extends", CodedTypeDefOrRef), index("FieldList", TableField), index("MethodList", TableMethodDef),
	},
	TableFieldPtr: {index("Field", TableField)},
	TableField: {
		fixed("Flags", 2), strCol("Name"), blobCol("Signature"),
	},
	TableMethodPtr: {index("Method", TableMethodDef)},
	TableMethodDef: {
		fixed("RVA", 4), fixed("ImplFlags", 2), fixed("Flags", 2), strCol("Name"), blobCol("Signature"),
		index("ParamList", TableParam),
	},
	TableParamPtr: {index("Param", TableParam)},
	TableParam: {
		fixed("Flags", 2), fixed("Sequence", 2), strCol("Name"),
	},
	TableInterfaceImpl: {
		index("Class", TableTypeDef), coded("Interface", CodedTypeDefOrRef),
	},
	TableMemberRef: {
		coded("Class", CodedMemberRefParent), strCol("Name"), blobCol("Signature"),
	},
	TableConstant: {
		fixed("Type", 1), fixed("Padding", 1), coded("Parent", CodedHasConstant), blobCol("Value"),
	},
	TableCustomAttribute: {
		coded("Parent", CodedHasCustomAttribute), coded("Type", CodedCustomAttributeType), blobCol("Value"),
	},
	TableFieldMarshal: {
		coded("Parent", CodedHasFieldMarshal), blobCol("NativeType"),
	},
	TableDeclSecurity: {
		fixed("Action", 2), coded("Parent", CodedHasDeclSecurity), blobCol("PermissionSet"),
	},
	TableClassLayout: {
		fixed("PackingSize", 2), fixed("ClassSize", 4), index("Parent", TableTypeDef),
	},
	TableFieldLayout: {
		fixed("Offset", 4), index("Field", TableField),
	},
	TableStandAloneSig: {blobCol("Signature")},
	TableEventMap: {
		index("Parent", TableTypeDef), index("EventList", TableEvent),
	},
	TableEventPtr: {index("Event", TableEvent)},
	TableEvent: {
		fixed("EventFlags", 2), strCol("Name"), coded("EventType", CodedTypeDefOrRef),
	},
	TablePropertyMap: {
		index("Parent", TableTypeDef), index("PropertyList", TableProperty),
	},
	TablePropertyPtr: {index("Property", TableProperty)},
	TableProperty: {
		fixed("Flags", 2), strCol("Name"), blobCol("Type"),
	},
	TableMethodSemantics: {
		fixed("Semantics", 2), index("Method", TableMethodDef), coded("Association", CodedHasSemantics),
	},
	TableMethodImpl: {
		index("Class", TableTypeDef), coded("MethodBody", CodedMethodDefOrRef),
		coded("MethodDeclaration", CodedMethodDefOrRef),
	},
	TableModuleRef: {strCol("Name")},
	TableTypeSpec:  {blobCol("Signature")},
	TableImplMap: {
		fixed("MappingFlags", 2), coded("MemberForwarded", CodedMemberForwarded), strCol("ImportName"),
		index("ImportScope", TableModuleRef),
	},
	TableFieldRVA: {
		fixed("RVA", 4), index("Field", TableField),
	},
	TableEncLog: {fixed("Token", 4), fixed("FuncCode", 4)},
	TableEncMap: {fixed("Token", 4)},
	TableAssembly: {
		fixed("HashAlgId", 4), fixed("MajorVersion", 2), fixed("MinorVersion", 2),
		fixed("BuildNumber", 2), fixed("RevisionNumber", 2), fixed("Flags", 4),
		blobCol("PublicKey"), strCol("Name"), strCol("Culture"),
	},
	TableAssemblyProcessor: {fixed("Processor", 4)},
	TableAssemblyOS: {
		fixed("OSPlatformID", 4), fixed("OSMajorVersion", 4), fixed("OSMinorVersion", 4),
	},
	TableAssemblyRef: {
		fixed("MajorVersion", 2), fixed("MinorVersion", 2), fixed("BuildNumber", 2), fixed("RevisionNumber", 2),
		fixed("Flags", 4), blobCol("PublicKeyOrToken"), strCol("Name"), strCol("Culture"), blobCol("HashValue"),
	},
	TableAssemblyRefProcessor: {
		fixed("Processor", 4), index("AssemblyRef", TableAssemblyRef),
	},
	TableAssemblyRefOS: {
		fixed("OSPlatformID", 4), fixed("OSMajorVersion", 4), fixed("OSMinorVersion", 4),
		index("AssemblyRef", TableAssemblyRef),
	},
	TableFile: {
		fixed("Flags", 4), strCol("Name"), blobCol("HashValue"),
	},
	TableExportedType: {
		fixed("Flags", 4), fixed("TypeDefId", 4), strCol("TypeName"), strCol("TypeNamespace"),
		coded("Implementation", CodedImplementation),
	},
	TableManifestResource: {
		fixed("Offset", 4), fixed("Flags", 4), strCol("Name"), coded("Implementation", CodedImplementation),
	},
	TableNestedClass: {
		index("NestedClass", TableTypeDef), index("EnclosingClass", TableTypeDef),
	},
	TableGenericParam: {
		fixed("Number", 2), fixed("Flags", 2), coded("Owner", CodedTypeOrMethodDef), strCol("Name"),
	},
	TableMethodSpec: {
		coded("Method", CodedMethodDefOrRef), blobCol("Instantiation"),
	},
	TableGenericParamConstraint: {
		index("Owner", TableGenericParam), coded("Constraint", CodedTypeDefOrRef),
	},
}

// Schema returns the column list of table id. The bool is false for ids
// without a known row layout.
func Schema(id TableID) ([]Column, bool) {
	if int(id) >= len(schemas) {
		return nil, false
	}
	cols := schemas[id]
	return cols, cols != nil
}
