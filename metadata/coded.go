package metadata

import (
	"fmt"
	"math/bits"
)

// CodedKind identifies one of the coded index families of ECMA-335 II.24.2.6.
type CodedKind uint8

const (
	CodedTypeDefOrRef CodedKind = iota
	CodedHasConstant
	CodedHasCustomAttribute
	CodedHasFieldMarshal
	CodedHasDeclSecurity
	CodedMemberRefParent
	CodedHasSemantics
	CodedMethodDefOrRef
	CodedMemberForwarded
	CodedImplementation
	CodedCustomAttributeType
	CodedResolutionScope
	CodedTypeOrMethodDef
	CodedHasCustomDebugInformation

	NumCodedKinds = int(iota)
)

// codedTables maps each kind's tag values to tables, in tag order.
var codedTables = [NumCodedKinds][]TableID{
	CodedTypeDefOrRef: {TableTypeDef, TableTypeRef, TableTypeSpec},
	CodedHasConstant:  {TableField, TableParam, TableProperty},
	CodedHasCustomAttribute: {
		TableMethodDef, TableField, TableTypeRef, TableTypeDef, TableParam, TableInterfaceImpl,
		TableMemberRef, TableModule, TableDeclSecurity, TableProperty, TableEvent, TableStandAloneSig,
		TableModuleRef, TableTypeSpec, TableAssembly, TableAssemblyRef, TableFile, TableExportedType,
		TableManifestResource, TableGenericParam, TableGenericParamConstraint, TableMethodSpec,
	},
	CodedHasFieldMarshal: {TableField, TableParam},
	CodedHasDeclSecurity: {TableTypeDef, TableMethodDef, TableAssembly},
	CodedMemberRefParent: {TableTypeDef, TableTypeRef, TableModuleRef, TableMethodDef, TableTypeSpec},
	CodedHasSemantics:    {TableEvent, TableProperty},
	CodedMethodDefOrRef:  {TableMethodDef, TableMemberRef},
	CodedMemberForwarded: {TableField, TableMethodDef},
	CodedImplementation:  {TableFile, TableAssemblyRef, TableExportedType},
	CodedCustomAttributeType: {
		TableUnused, TableUnused, TableMethodDef, TableMemberRef, TableUnused,
	},
	CodedResolutionScope: {TableModule, TableModuleRef, TableAssemblyRef, TableTypeRef},
	CodedTypeOrMethodDef: {TableTypeDef, TableMethodDef},
	CodedHasCustomDebugInformation: {
		TableMethodDef, TableField, TableTypeRef, TableTypeDef, TableParam, TableInterfaceImpl,
		TableMemberRef, TableModule, TableDeclSecurity, TableProperty, TableEvent, TableStandAloneSig,
		TableModuleRef, TableTypeSpec, TableAssembly, TableAssemblyRef, TableFile, TableExportedType,
		TableManifestResource, TableGenericParam, TableGenericParamConstraint, TableMethodSpec,
		TableDocument, TableLocalScope, TableLocalVariable, TableLocalConstant, TableImportScope,
	},
}

var codedNames = [NumCodedKinds]string{
	"TypeDefOrRef", "HasConstant", "HasCustomAttribute", "HasFieldMarshal", "HasDeclSecurity",
	"MemberRefParent", "HasSemantics", "MethodDefOrRef", "MemberForwarded", "Implementation",
	"CustomAttributeType", "ResolutionScope", "TypeOrMethodDef", "HasCustomDebugInformation",
}

func (k CodedKind) String() string {
	if int(k) < NumCodedKinds {
		return codedNames[k]
	}
	return fmt.Sprintf("CodedKind(%d)", uint8(k))
}

// Tables returns the tables selectable by the kind's tag, in tag order.
// Unused tags are TableUnused.
func (k CodedKind) Tables() []TableID {
	return codedTables[k]
}

// TagBits is ceil(log2(n)) for the kind's n tag values.
func (k CodedKind) TagBits() uint {
	n := len(codedTables[k])
	return uint(bits.Len(uint(n - 1)))
}

// Decode splits a raw coded value into table and row.
func (k CodedKind) Decode(raw uint32) CodedIndex {
	tb := k.TagBits()
	tag := raw & (1<<tb - 1)
	ci := CodedIndex{Table: TableUnused, Row: raw >> tb}
	if ts := codedTables[k]; int(tag) < len(ts) {
		ci.Table = ts[tag]
	}
	return ci
}

// Encode packs ci into a raw coded value. It fails if ci.Table is not a
// member of the kind.
func (k CodedKind) Encode(ci CodedIndex) (uint32, bool) {
	tb := k.TagBits()
	for tag, t := range codedTables[k] {
		if t == ci.Table && t != TableUnused {
			return ci.Row<<tb | uint32(tag), true
		}
	}
	return 0, false
}

// CodedIndex is a decoded coded index: the tag selects Table, Row is the
// 1-based row in it. Row 0 is the null reference.
type CodedIndex struct {
	Table TableID
	Row   uint32
}

// IsNull reports whether the index references nothing.
func (c CodedIndex) IsNull() bool {
	return c.Row == 0
}

// Token returns the metadata token for the referenced row.
func (c CodedIndex) Token() Token {
	return MakeToken(c.Table, c.Row)
}

func (c CodedIndex) String() string {
	if c.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%s[%d]", c.Table, c.Row)
}

// Named coded index kinds. Each wraps CodedIndex so row fields document
// which tables they can reference.
type (
	TypeDefOrRef              struct{ CodedIndex }
	HasConstant               struct{ CodedIndex }
	HasCustomAttribute        struct{ CodedIndex }
	HasFieldMarshal           struct{ CodedIndex }
	HasDeclSecurity           struct{ CodedIndex }
	MemberRefParent           struct{ CodedIndex }
	HasSemantics              struct{ CodedIndex }
	MethodDefOrRef            struct{ CodedIndex }
	MemberForwarded           struct{ CodedIndex }
	Implementation            struct{ CodedIndex }
	CustomAttributeType       struct{ CodedIndex }
	ResolutionScope           struct{ CodedIndex }
	TypeOrMethodDef           struct{ CodedIndex }
	HasCustomDebugInformation struct{ CodedIndex }
)
