package metadata

// Flag types for the bitmask columns of ECMA-335 II.23.1. Each is a plain
// integer; predicates test the named bits.

// RuntimeFlags are the CLI header flags.
type RuntimeFlags uint32

const (
	RuntimeILOnly           RuntimeFlags = 0x00000001
	Runtime32BitRequired    RuntimeFlags = 0x00000002
	RuntimeILLibrary        RuntimeFlags = 0x00000004
	RuntimeStrongNameSigned RuntimeFlags = 0x00000008
	RuntimeNativeEntryPoint RuntimeFlags = 0x00000010
	RuntimeTrackDebugData   RuntimeFlags = 0x00010000
	Runtime32BitPreferred   RuntimeFlags = 0x00020000
)

func (f RuntimeFlags) ILOnly() bool           { return f&RuntimeILOnly != 0 }
func (f RuntimeFlags) Requires32Bit() bool    { return f&Runtime32BitRequired != 0 }
func (f RuntimeFlags) Prefers32Bit() bool     { return f&Runtime32BitPreferred != 0 }
func (f RuntimeFlags) StrongNameSigned() bool { return f&RuntimeStrongNameSigned != 0 }

// NativeEntryPoint reports whether EntryPointToken is an RVA of native code
// rather than a MethodDef or File token.
func (f RuntimeFlags) NativeEntryPoint() bool { return f&RuntimeNativeEntryPoint != 0 }

// TypeAttributes are TypeDef and ExportedType flags.
type TypeAttributes uint32

const (
	TypeVisibilityMask        TypeAttributes = 0x00000007
	TypeNotPublic             TypeAttributes = 0x00000000
	TypePublic                TypeAttributes = 0x00000001
	TypeNestedPublic          TypeAttributes = 0x00000002
	TypeNestedPrivate         TypeAttributes = 0x00000003
	TypeNestedFamily          TypeAttributes = 0x00000004
	TypeNestedAssembly        TypeAttributes = 0x00000005
	TypeNestedFamANDAssem     TypeAttributes = 0x00000006
	TypeNestedFamORAssem      TypeAttributes = 0x00000007
	TypeLayoutMask            TypeAttributes = 0x00000018
	TypeAutoLayout            TypeAttributes = 0x00000000
	TypeSequentialLayout      TypeAttributes = 0x00000008
	TypeExplicitLayout        TypeAttributes = 0x00000010
	TypeClassSemanticsMask    TypeAttributes = 0x00000020
	TypeInterface             TypeAttributes = 0x00000020
	TypeAbstract              TypeAttributes = 0x00000080
	TypeSealed                TypeAttributes = 0x00000100
	TypeSpecialName           TypeAttributes = 0x00000400
	TypeImport                TypeAttributes = 0x00001000
	TypeSerializable          TypeAttributes = 0x00002000
	TypeWindowsRuntime        TypeAttributes = 0x00004000
	TypeStringFormatMask      TypeAttributes = 0x00030000
	TypeAnsiClass             TypeAttributes = 0x00000000
	TypeUnicodeClass          TypeAttributes = 0x00010000
	TypeAutoClass             TypeAttributes = 0x00020000
	TypeCustomFormatClass     TypeAttributes = 0x00030000
	TypeCustomStringFormatMsk TypeAttributes = 0x00C00000
	TypeBeforeFieldInit       TypeAttributes = 0x00100000
	TypeRTSpecialName         TypeAttributes = 0x00000800
	TypeHasSecurity           TypeAttributes = 0x00040000
	TypeIsTypeForwarder       TypeAttributes = 0x00200000
)

func (f TypeAttributes) Visibility() TypeAttributes { return f & TypeVisibilityMask }
func (f TypeAttributes) Layout() TypeAttributes     { return f & TypeLayoutMask }
func (f TypeAttributes) IsInterface() bool          { return f&TypeClassSemanticsMask == TypeInterface }
func (f TypeAttributes) IsAbstract() bool           { return f&TypeAbstract != 0 }
func (f TypeAttributes) IsSealed() bool             { return f&TypeSealed != 0 }
func (f TypeAttributes) IsNested() bool             { return f.Visibility() > TypePublic }
func (f TypeAttributes) IsPublic() bool {
	v := f.Visibility()
	return v == TypePublic || v == TypeNestedPublic
}
func (f TypeAttributes) IsForwarder() bool { return f&TypeIsTypeForwarder != 0 }

// FieldAttributes are Field flags.
type FieldAttributes uint16

const (
	FieldAccessMask      FieldAttributes = 0x0007
	FieldCompilerControl FieldAttributes = 0x0000
	FieldPrivate         FieldAttributes = 0x0001
	FieldFamANDAssem     FieldAttributes = 0x0002
	FieldAssembly        FieldAttributes = 0x0003
	FieldFamily          FieldAttributes = 0x0004
	FieldFamORAssem      FieldAttributes = 0x0005
	FieldPublic          FieldAttributes = 0x0006
	FieldStatic          FieldAttributes = 0x0010
	FieldInitOnly        FieldAttributes = 0x0020
	FieldLiteral         FieldAttributes = 0x0040
	FieldNotSerialized   FieldAttributes = 0x0080
	FieldSpecialName     FieldAttributes = 0x0200
	FieldPInvokeImpl     FieldAttributes = 0x2000
	FieldRTSpecialName   FieldAttributes = 0x0400
	FieldHasFieldMarshal FieldAttributes = 0x1000
	FieldHasDefault      FieldAttributes = 0x8000
	FieldHasFieldRVA     FieldAttributes = 0x0100
)

func (f FieldAttributes) Access() FieldAttributes { return f & FieldAccessMask }
func (f FieldAttributes) IsStatic() bool          { return f&FieldStatic != 0 }
func (f FieldAttributes) IsLiteral() bool         { return f&FieldLiteral != 0 }
func (f FieldAttributes) IsInitOnly() bool        { return f&FieldInitOnly != 0 }
func (f FieldAttributes) HasDefault() bool        { return f&FieldHasDefault != 0 }
func (f FieldAttributes) HasRVA() bool            { return f&FieldHasFieldRVA != 0 }

// MethodAttributes are MethodDef flags.
type MethodAttributes uint16

const (
	MethodMemberAccessMask   MethodAttributes = 0x0007
	MethodCompilerControlled MethodAttributes = 0x0000
	MethodPrivate            MethodAttributes = 0x0001
	MethodFamANDAssem        MethodAttributes = 0x0002
	MethodAssem              MethodAttributes = 0x0003
	MethodFamily             MethodAttributes = 0x0004
	MethodFamORAssem         MethodAttributes = 0x0005
	MethodPublic             MethodAttributes = 0x0006
	MethodStatic             MethodAttributes = 0x0010
	MethodFinal              MethodAttributes = 0x0020
	MethodVirtual            MethodAttributes = 0x0040
	MethodHideBySig          MethodAttributes = 0x0080
	MethodNewSlot            MethodAttributes = 0x0100
	MethodStrict             MethodAttributes = 0x0200
	MethodAbstract           MethodAttributes = 0x0400
	MethodSpecialName        MethodAttributes = 0x0800
	MethodRTSpecialName      MethodAttributes = 0x1000
	MethodPInvokeImpl        MethodAttributes = 0x2000
	MethodHasSecurity        MethodAttributes = 0x4000
	MethodRequireSecObject   MethodAttributes = 0x8000
	MethodUnmanagedExport    MethodAttributes = 0x0008
)

func (f MethodAttributes) Access() MethodAttributes { return f & MethodMemberAccessMask }
func (f MethodAttributes) IsStatic() bool           { return f&MethodStatic != 0 }
func (f MethodAttributes) IsVirtual() bool          { return f&MethodVirtual != 0 }
func (f MethodAttributes) IsAbstract() bool         { return f&MethodAbstract != 0 }
func (f MethodAttributes) IsPInvoke() bool          { return f&MethodPInvokeImpl != 0 }
func (f MethodAttributes) IsSpecialName() bool      { return f&MethodSpecialName != 0 }

// MethodImplAttributes are MethodDef implementation flags.
type MethodImplAttributes uint16

const (
	MethodImplCodeTypeMask      MethodImplAttributes = 0x0003
	MethodImplIL                MethodImplAttributes = 0x0000
	MethodImplNative            MethodImplAttributes = 0x0001
	MethodImplOPTIL             MethodImplAttributes = 0x0002
	MethodImplRuntime           MethodImplAttributes = 0x0003
	MethodImplUnmanaged         MethodImplAttributes = 0x0004
	MethodImplNoInlining        MethodImplAttributes = 0x0008
	MethodImplForwardRef        MethodImplAttributes = 0x0010
	MethodImplSynchronized      MethodImplAttributes = 0x0020
	MethodImplNoOptimization    MethodImplAttributes = 0x0040
	MethodImplPreserveSig       MethodImplAttributes = 0x0080
	MethodImplAggressiveInline  MethodImplAttributes = 0x0100
	MethodImplAggressiveOptimiz MethodImplAttributes = 0x0200
	MethodImplInternalCall      MethodImplAttributes = 0x1000
)

func (f MethodImplAttributes) CodeType() MethodImplAttributes { return f & MethodImplCodeTypeMask }
func (f MethodImplAttributes) IsInternalCall() bool           { return f&MethodImplInternalCall != 0 }

// ParamAttributes are Param flags.
type ParamAttributes uint16

const (
	ParamIn              ParamAttributes = 0x0001
	ParamOut             ParamAttributes = 0x0002
	ParamOptional        ParamAttributes = 0x0010
	ParamHasDefault      ParamAttributes = 0x1000
	ParamHasFieldMarshal ParamAttributes = 0x2000
)

func (f ParamAttributes) IsIn() bool       { return f&ParamIn != 0 }
func (f ParamAttributes) IsOut() bool      { return f&ParamOut != 0 }
func (f ParamAttributes) IsOptional() bool { return f&ParamOptional != 0 }

// EventAttributes are Event flags.
type EventAttributes uint16

const (
	EventSpecialName   EventAttributes = 0x0200
	EventRTSpecialName EventAttributes = 0x0400
)

// PropertyAttributes are Property flags.
type PropertyAttributes uint16

const (
	PropertySpecialName   PropertyAttributes = 0x0200
	PropertyRTSpecialName PropertyAttributes = 0x0400
	PropertyHasDefault    PropertyAttributes = 0x1000
)

func (f PropertyAttributes) HasDefault() bool { return f&PropertyHasDefault != 0 }

// MethodSemanticsAttributes are MethodSemantics flags.
type MethodSemanticsAttributes uint16

const (
	SemanticsSetter   MethodSemanticsAttributes = 0x0001
	SemanticsGetter   MethodSemanticsAttributes = 0x0002
	SemanticsOther    MethodSemanticsAttributes = 0x0004
	SemanticsAddOn    MethodSemanticsAttributes = 0x0008
	SemanticsRemoveOn MethodSemanticsAttributes = 0x0010
	SemanticsFire     MethodSemanticsAttributes = 0x0020
)

func (f MethodSemanticsAttributes) IsGetter() bool { return f&SemanticsGetter != 0 }
func (f MethodSemanticsAttributes) IsSetter() bool { return f&SemanticsSetter != 0 }

// PInvokeAttributes are ImplMap flags.
type PInvokeAttributes uint16

const (
	PInvokeNoMangle          PInvokeAttributes = 0x0001
	PInvokeCharSetMask       PInvokeAttributes = 0x0006
	PInvokeCharSetNotSpec    PInvokeAttributes = 0x0000
	PInvokeCharSetAnsi       PInvokeAttributes = 0x0002
	PInvokeCharSetUnicode    PInvokeAttributes = 0x0004
	PInvokeCharSetAuto       PInvokeAttributes = 0x0006
	PInvokeSupportsLastError PInvokeAttributes = 0x0040
	PInvokeCallConvMask      PInvokeAttributes = 0x0700
	PInvokeCallConvWinapi    PInvokeAttributes = 0x0100
	PInvokeCallConvCdecl     PInvokeAttributes = 0x0200
	PInvokeCallConvStdcall   PInvokeAttributes = 0x0300
	PInvokeCallConvThiscall  PInvokeAttributes = 0x0400
	PInvokeCallConvFastcall  PInvokeAttributes = 0x0500
)

func (f PInvokeAttributes) CharSet() PInvokeAttributes  { return f & PInvokeCharSetMask }
func (f PInvokeAttributes) CallConv() PInvokeAttributes { return f & PInvokeCallConvMask }

// AssemblyFlags are Assembly and AssemblyRef flags.
type AssemblyFlags uint32

const (
	AssemblyPublicKey                  AssemblyFlags = 0x0001
	AssemblyRetargetable               AssemblyFlags = 0x0100
	AssemblyWindowsRuntime             AssemblyFlags = 0x0200
	AssemblyDisableJITcompileOptimizer AssemblyFlags = 0x4000
	AssemblyEnableJITcompileTracking   AssemblyFlags = 0x8000
)

func (f AssemblyFlags) HasPublicKey() bool     { return f&AssemblyPublicKey != 0 }
func (f AssemblyFlags) IsRetargetable() bool   { return f&AssemblyRetargetable != 0 }
func (f AssemblyFlags) IsWindowsRuntime() bool { return f&AssemblyWindowsRuntime != 0 }

// AssemblyHashAlgorithm is the Assembly HashAlgId column.
type AssemblyHashAlgorithm uint32

const (
	HashAlgorithmNone   AssemblyHashAlgorithm = 0x0000
	HashAlgorithmMD5    AssemblyHashAlgorithm = 0x8003
	HashAlgorithmSHA1   AssemblyHashAlgorithm = 0x8004
	HashAlgorithmSHA256 AssemblyHashAlgorithm = 0x800C
	HashAlgorithmSHA384 AssemblyHashAlgorithm = 0x800D
	HashAlgorithmSHA512 AssemblyHashAlgorithm = 0x800E
)

func (a AssemblyHashAlgorithm) String() string {
	switch a {
	case HashAlgorithmNone:
		return "None"
	case HashAlgorithmMD5:
		return "MD5"
	case HashAlgorithmSHA1:
		return "SHA1"
	case HashAlgorithmSHA256:
		return "SHA256"
	case HashAlgorithmSHA384:
		return "SHA384"
	case HashAlgorithmSHA512:
		return "SHA512"
	default:
		return "Unknown"
	}
}

// FileAttributes are File flags.
type FileAttributes uint32

const (
	FileContainsMetaData   FileAttributes = 0x0000
	FileContainsNoMetaData FileAttributes = 0x0001
)

func (f FileAttributes) HasMetadata() bool { return f&FileContainsNoMetaData == 0 }

// ManifestResourceAttributes are ManifestResource flags.
type ManifestResourceAttributes uint32

const (
	ManifestResourceVisibilityMask ManifestResourceAttributes = 0x0007
	ManifestResourcePublic         ManifestResourceAttributes = 0x0001
	ManifestResourcePrivate        ManifestResourceAttributes = 0x0002
)

func (f ManifestResourceAttributes) IsPublic() bool {
	return f&ManifestResourceVisibilityMask == ManifestResourcePublic
}

// GenericParamAttributes are GenericParam flags.
type GenericParamAttributes uint16

const (
	GenericParamVarianceMask          GenericParamAttributes = 0x0003
	GenericParamNone                  GenericParamAttributes = 0x0000
	GenericParamCovariant             GenericParamAttributes = 0x0001
	GenericParamContravariant         GenericParamAttributes = 0x0002
	GenericParamSpecialConstraintMask GenericParamAttributes = 0x001C
	GenericParamReferenceType         GenericParamAttributes = 0x0004
	GenericParamNotNullableValueType  GenericParamAttributes = 0x0008
	GenericParamDefaultConstructor    GenericParamAttributes = 0x0010
)

func (f GenericParamAttributes) Variance() GenericParamAttributes {
	return f & GenericParamVarianceMask
}

// ElementType is the Constant Type column (ECMA-335 II.23.1.16).
type ElementType uint8

const (
	ElementBoolean ElementType = 0x02
	ElementChar    ElementType = 0x03
	ElementI1      ElementType = 0x04
	ElementU1      ElementType = 0x05
	ElementI2      ElementType = 0x06
	ElementU2      ElementType = 0x07
	ElementI4      ElementType = 0x08
	ElementU4      ElementType = 0x09
	ElementI8      ElementType = 0x0A
	ElementU8      ElementType = 0x0B
	ElementR4      ElementType = 0x0C
	ElementR8      ElementType = 0x0D
	ElementString  ElementType = 0x0E
	ElementClass   ElementType = 0x12
)
