package pe

// Magic values of the container headers.
const (
	DOSMagic      uint16 = 0x5A4D     // "MZ"
	PESignature   uint32 = 0x00004550 // "PE\0\0"
	MagicPE32     uint16 = 0x10B
	MagicPE32Plus uint16 = 0x20B
)

// Fixed header sizes in bytes.
const (
	DOSHeaderSize      = 64
	FileHeaderSize     = 20
	SectionHeaderSize  = 40
	DataDirectorySize  = 8
	NumDataDirectories = 16

	// Minimum SizeOfOptionalHeader values: the fixed fields plus all 16
	// data directories.
	OptionalHeader32Size = 96 + NumDataDirectories*DataDirectorySize
	OptionalHeader64Size = 112 + NumDataDirectories*DataDirectorySize
)

// Data directory indices.
const (
	DirectoryExport       = 0
	DirectoryImport       = 1
	DirectoryResource     = 2
	DirectoryException    = 3
	DirectorySecurity     = 4
	DirectoryBaseReloc    = 5
	DirectoryDebug        = 6
	DirectoryArchitecture = 7
	DirectoryGlobalPtr    = 8
	DirectoryTLS          = 9
	DirectoryLoadConfig   = 10
	DirectoryBoundImport  = 11
	DirectoryIAT          = 12
	DirectoryDelayImport  = 13
	DirectoryCLR          = 14 // CLR runtime header
	DirectoryReserved     = 15
)

// Machine types seen in managed images.
const (
	MachineUnknown uint16 = 0x0000
	MachineI386    uint16 = 0x014C
	MachineAMD64   uint16 = 0x8664
	MachineARM     uint16 = 0x01C4
	MachineARM64   uint16 = 0xAA64
)

// Section characteristics.
const (
	SectionCntCode              uint32 = 0x00000020
	SectionCntInitializedData   uint32 = 0x00000040
	SectionCntUninitializedData uint32 = 0x00000080
	SectionMemExecute           uint32 = 0x20000000
	SectionMemRead              uint32 = 0x40000000
	SectionMemWrite             uint32 = 0x80000000
)

// DOSHeader is the MS-DOS stub header at the start of every PE image.
type DOSHeader struct {
	Magic                  uint16
	LastPageBytes          uint16
	FilePages              uint16
	Relocations            uint16
	HeaderSize             uint16
	MinAlloc               uint16
	MaxAlloc               uint16
	SS                     uint16
	SP                     uint16
	Checksum               uint16
	IP                     uint16
	CS                     uint16
	RelocationTableAddress uint16
	OverlayNumber          uint16
	Reserved               [4]uint16
	OEMID                  uint16
	OEMInfo                uint16
	Reserved2              [10]uint16
	NewHeaderStart         uint32 // e_lfanew
}

// FileHeader is the COFF file header following the PE signature.
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// DataDirectory locates a table by RVA and size.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// IsZero reports whether the directory is unused.
func (d DataDirectory) IsZero() bool {
	return d.VirtualAddress == 0 && d.Size == 0
}

// OptionalHeader32 is the PE32 optional header (magic 0x10B).
type OptionalHeader32 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	BaseOfData                  uint32
	ImageBase                   uint32
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint32
	SizeOfStackCommit           uint32
	SizeOfHeapReserve           uint32
	SizeOfHeapCommit            uint32
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
	DataDirectories             [NumDataDirectories]DataDirectory
}

// OptionalHeader64 is the PE32+ optional header (magic 0x20B). It has no
// BaseOfData and widens ImageBase and the stack/heap sizes to 64 bits.
type OptionalHeader64 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	ImageBase                   uint64
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint64
	SizeOfStackCommit           uint64
	SizeOfHeapReserve           uint64
	SizeOfHeapCommit            uint64
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
	DataDirectories             [NumDataDirectories]DataDirectory
}

// OptionalHeader holds exactly one of PE32 or PE64, selected by Magic.
type OptionalHeader struct {
	PE32  *OptionalHeader32
	PE64  *OptionalHeader64
	Magic uint16
}

// Is64 reports whether this is a PE32+ header.
func (h *OptionalHeader) Is64() bool {
	return h.Magic == MagicPE32Plus
}

// ImageBase returns the preferred load address widened to 64 bits.
func (h *OptionalHeader) ImageBase() uint64 {
	if h.PE64 != nil {
		return h.PE64.ImageBase
	}
	return uint64(h.PE32.ImageBase)
}

// AddressOfEntryPoint returns the native entry point RVA.
func (h *OptionalHeader) AddressOfEntryPoint() uint32 {
	if h.PE64 != nil {
		return h.PE64.AddressOfEntryPoint
	}
	return h.PE32.AddressOfEntryPoint
}

// Subsystem returns the Windows subsystem.
func (h *OptionalHeader) Subsystem() uint16 {
	if h.PE64 != nil {
		return h.PE64.Subsystem
	}
	return h.PE32.Subsystem
}

// NumberOfRvaAndSizes returns the declared number of meaningful data
// directories.
func (h *OptionalHeader) NumberOfRvaAndSizes() uint32 {
	if h.PE64 != nil {
		return h.PE64.NumberOfRvaAndSizes
	}
	return h.PE32.NumberOfRvaAndSizes
}

// DataDirectories returns all 16 directory slots.
func (h *OptionalHeader) DataDirectories() [NumDataDirectories]DataDirectory {
	if h.PE64 != nil {
		return h.PE64.DataDirectories
	}
	return h.PE32.DataDirectories
}

// DataDirectory returns directory i. Slots at or beyond NumberOfRvaAndSizes
// are reported as zero, as the loader ignores them.
func (h *OptionalHeader) DataDirectory(i int) DataDirectory {
	if i < 0 || i >= NumDataDirectories || uint32(i) >= h.NumberOfRvaAndSizes() {
		return DataDirectory{}
	}
	return h.DataDirectories()[i]
}
