package pe

import (
	"github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/binary"
)

// File is a parsed PE image. It is immutable once Parse returns.
type File struct {
	data     []byte
	mapper   *RVAMapper
	Sections []*Section

	DOS            DOSHeader
	Signature      uint32
	FileHeader     FileHeader
	OptionalHeader OptionalHeader
}

// Parse decodes the DOS header, PE signature, COFF file header, optional
// header and section table of data. The returned File keeps data; callers
// must not modify it afterwards.
func Parse(data []byte) (*File, error) {
	f := &File{data: data}
	r := binary.NewReader(data)

	if err := readDOSHeader(r, &f.DOS); err != nil {
		return nil, err
	}
	if f.DOS.Magic != DOSMagic {
		return nil, errors.MalformedContainer("invalid DOS magic %#04x", f.DOS.Magic)
	}

	if err := r.Seek(int(f.DOS.NewHeaderStart)); err != nil {
		return nil, malformed("pe signature", err)
	}
	sig, err := r.ReadU32()
	if err != nil {
		return nil, malformed("pe signature", r.WrapError("pe signature", err))
	}
	if sig != PESignature {
		return nil, errors.MalformedContainer("invalid PE signature %#08x", sig)
	}
	f.Signature = sig

	if err := readFileHeader(r, &f.FileHeader); err != nil {
		return nil, err
	}

	optStart := r.Position()
	if err := readOptionalHeader(r, &f.OptionalHeader, f.FileHeader.SizeOfOptionalHeader); err != nil {
		return nil, err
	}

	// Section headers follow the declared optional header size, which may
	// exceed the part we decode.
	if err := r.Seek(optStart + int(f.FileHeader.SizeOfOptionalHeader)); err != nil {
		return nil, malformed("section table", err)
	}
	f.Sections = make([]*Section, 0, f.FileHeader.NumberOfSections)
	for i := 0; i < int(f.FileHeader.NumberOfSections); i++ {
		s, err := readSection(r, data)
		if err != nil {
			return nil, err
		}
		f.Sections = append(f.Sections, s)
	}

	f.mapper = NewRVAMapper(f.Sections)
	return f, nil
}

// Bytes returns the whole image.
func (f *File) Bytes() []byte {
	return f.data
}

// Is64 reports whether the image has a PE32+ optional header.
func (f *File) Is64() bool {
	return f.OptionalHeader.Is64()
}

// DataDirectory returns optional header directory i.
func (f *File) DataDirectory(i int) DataDirectory {
	return f.OptionalHeader.DataDirectory(i)
}

// Section returns the first section with the given name.
func (f *File) Section(name string) *Section {
	for _, s := range f.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Mapper returns the RVA mapper built from the section table.
func (f *File) Mapper() *RVAMapper {
	return f.mapper
}

// ResolveRVA maps rva to a file offset.
func (f *File) ResolveRVA(rva uint32) (uint32, error) {
	return f.mapper.Resolve(rva)
}

// ReadRVA returns size bytes of the image starting at rva.
func (f *File) ReadRVA(rva, size uint32) ([]byte, error) {
	return f.mapper.Slice(rva, size)
}

// ReadDirectory returns the bytes referenced by a data directory.
func (f *File) ReadDirectory(d DataDirectory) ([]byte, error) {
	return f.mapper.Slice(d.VirtualAddress, d.Size)
}

func malformed(what string, cause error) error {
	return errors.New(errors.PhaseContainer, errors.KindMalformedContainer).
		Path(what).
		Detail("header extends beyond end of image").
		Cause(cause).
		Build()
}

func readDOSHeader(r *binary.Reader, h *DOSHeader) error {
	if r.Len() < DOSHeaderSize {
		return errors.New(errors.PhaseContainer, errors.KindMalformedContainer).
			Path("dos header").
			Detail("image is %d bytes, DOS header needs %d", r.Len(), DOSHeaderSize).
			Build()
	}
	words := make([]uint16, 30)
	for i := range words {
		words[i], _ = r.ReadU16()
	}
	h.Magic = words[0]
	h.LastPageBytes = words[1]
	h.FilePages = words[2]
	h.Relocations = words[3]
	h.HeaderSize = words[4]
	h.MinAlloc = words[5]
	h.MaxAlloc = words[6]
	h.SS = words[7]
	h.SP = words[8]
	h.Checksum = words[9]
	h.IP = words[10]
	h.CS = words[11]
	h.RelocationTableAddress = words[12]
	h.OverlayNumber = words[13]
	copy(h.Reserved[:], words[14:18])
	h.OEMID = words[18]
	h.OEMInfo = words[19]
	copy(h.Reserved2[:], words[20:30])
	h.NewHeaderStart, _ = r.ReadU32()
	return nil
}

func readFileHeader(r *binary.Reader, h *FileHeader) error {
	if r.Len() < FileHeaderSize {
		return malformed("file header", r.WrapError("file header", binary.ErrShortRead))
	}
	h.Machine, _ = r.ReadU16()
	h.NumberOfSections, _ = r.ReadU16()
	h.TimeDateStamp, _ = r.ReadU32()
	h.PointerToSymbolTable, _ = r.ReadU32()
	h.NumberOfSymbols, _ = r.ReadU32()
	h.SizeOfOptionalHeader, _ = r.ReadU16()
	h.Characteristics, _ = r.ReadU16()
	return nil
}

func readOptionalHeader(r *binary.Reader, h *OptionalHeader, declared uint16) error {
	if r.Len() < 2 {
		return malformed("optional header", r.WrapError("optional header", binary.ErrShortRead))
	}
	start := r.Position()
	magic, _ := r.ReadU16()
	if err := r.Seek(start); err != nil {
		return malformed("optional header", err)
	}

	var need int
	switch magic {
	case MagicPE32:
		need = OptionalHeader32Size
	case MagicPE32Plus:
		need = OptionalHeader64Size
	default:
		return errors.MalformedContainer("unknown optional header magic %#04x", magic)
	}
	if int(declared) < need {
		return errors.MalformedContainer("optional header size %d is below the %d bytes required for magic %#04x",
			declared, need, magic)
	}
	if r.Len() < need {
		return malformed("optional header", r.WrapError("optional header", binary.ErrShortRead))
	}

	h.Magic = magic
	if magic == MagicPE32 {
		h.PE32 = readOptionalHeader32(r)
	} else {
		h.PE64 = readOptionalHeader64(r)
	}
	return nil
}

// readOptionalHeader32 and readOptionalHeader64 are only called once the
// full fixed size is known to be available, so read errors cannot occur.
func readOptionalHeader32(r *binary.Reader) *OptionalHeader32 {
	h := &OptionalHeader32{}
	h.Magic, _ = r.ReadU16()
	h.MajorLinkerVersion, _ = r.ReadU8()
	h.MinorLinkerVersion, _ = r.ReadU8()
	h.SizeOfCode, _ = r.ReadU32()
	h.SizeOfInitializedData, _ = r.ReadU32()
	h.SizeOfUninitializedData, _ = r.ReadU32()
	h.AddressOfEntryPoint, _ = r.ReadU32()
	h.BaseOfCode, _ = r.ReadU32()
	h.BaseOfData, _ = r.ReadU32()
	h.ImageBase, _ = r.ReadU32()
	h.SectionAlignment, _ = r.ReadU32()
	h.FileAlignment, _ = r.ReadU32()
	h.MajorOperatingSystemVersion, _ = r.ReadU16()
	h.MinorOperatingSystemVersion, _ = r.ReadU16()
	h.MajorImageVersion, _ = r.ReadU16()
	h.MinorImageVersion, _ = r.ReadU16()
	h.MajorSubsystemVersion, _ = r.ReadU16()
	h.MinorSubsystemVersion, _ = r.ReadU16()
	h.Win32VersionValue, _ = r.ReadU32()
	h.SizeOfImage, _ = r.ReadU32()
	h.SizeOfHeaders, _ = r.ReadU32()
	h.CheckSum, _ = r.ReadU32()
	h.Subsystem, _ = r.ReadU16()
	h.DllCharacteristics, _ = r.ReadU16()
	h.SizeOfStackReserve, _ = r.ReadU32()
	h.SizeOfStackCommit, _ = r.ReadU32()
	h.SizeOfHeapReserve, _ = r.ReadU32()
	h.SizeOfHeapCommit, _ = r.ReadU32()
	h.LoaderFlags, _ = r.ReadU32()
	h.NumberOfRvaAndSizes, _ = r.ReadU32()
	readDataDirectories(r, &h.DataDirectories)
	return h
}

func readOptionalHeader64(r *binary.Reader) *OptionalHeader64 {
	h := &OptionalHeader64{}
	h.Magic, _ = r.ReadU16()
	h.MajorLinkerVersion, _ = r.ReadU8()
	h.MinorLinkerVersion, _ = r.ReadU8()
	h.SizeOfCode, _ = r.ReadU32()
	h.SizeOfInitializedData, _ = r.ReadU32()
	h.SizeOfUninitializedData, _ = r.ReadU32()
	h.AddressOfEntryPoint, _ = r.ReadU32()
	h.BaseOfCode, _ = r.ReadU32()
	h.ImageBase, _ = r.ReadU64()
	h.SectionAlignment, _ = r.ReadU32()
	h.FileAlignment, _ = r.ReadU32()
	h.MajorOperatingSystemVersion, _ = r.ReadU16()
	h.MinorOperatingSystemVersion, _ = r.ReadU16()
	h.MajorImageVersion, _ = r.ReadU16()
	h.MinorImageVersion, _ = r.ReadU16()
	h.MajorSubsystemVersion, _ = r.ReadU16()
	h.MinorSubsystemVersion, _ = r.ReadU16()
	h.Win32VersionValue, _ = r.ReadU32()
	h.SizeOfImage, _ = r.ReadU32()
	h.SizeOfHeaders, _ = r.ReadU32()
	h.CheckSum, _ = r.ReadU32()
	h.Subsystem, _ = r.ReadU16()
	h.DllCharacteristics, _ = r.ReadU16()
	h.SizeOfStackReserve, _ = r.ReadU64()
	h.SizeOfStackCommit, _ = r.ReadU64()
	h.SizeOfHeapReserve, _ = r.ReadU64()
	h.SizeOfHeapCommit, _ = r.ReadU64()
	h.LoaderFlags, _ = r.ReadU32()
	h.NumberOfRvaAndSizes, _ = r.ReadU32()
	readDataDirectories(r, &h.DataDirectories)
	return h
}

func readDataDirectories(r *binary.Reader, dirs *[NumDataDirectories]DataDirectory) {
	for i := range dirs {
		dirs[i].VirtualAddress, _ = r.ReadU32()
		dirs[i].Size, _ = r.ReadU32()
	}
}

func readSection(r *binary.Reader, image []byte) (*Section, error) {
	raw, err := r.ReadBytes(SectionHeaderSize)
	if err != nil {
		return nil, malformed("section table", err)
	}
	sr := binary.NewReader(raw)
	name, _ := sr.ReadBytes(8)
	s := &Section{Name: sectionName(name)}
	s.VirtualSize, _ = sr.ReadU32()
	s.VirtualAddress, _ = sr.ReadU32()
	s.SizeOfRawData, _ = sr.ReadU32()
	s.PointerToRawData, _ = sr.ReadU32()
	s.PointerToRelocations, _ = sr.ReadU32()
	s.PointerToLinenumbers, _ = sr.ReadU32()
	s.NumberOfRelocations, _ = sr.ReadU16()
	s.NumberOfLinenumbers, _ = sr.ReadU16()
	s.Characteristics, _ = sr.ReadU32()

	start := uint64(s.PointerToRawData)
	end := start + uint64(s.SizeOfRawData)
	if end > uint64(len(image)) {
		return nil, errors.New(errors.PhaseContainer, errors.KindMalformedContainer).
			Path("section", s.Name).
			Offset(int64(start)).
			Detail("raw data [%#x, %#x) exceeds image size %#x", start, end, len(image)).
			Build()
	}
	s.data = image[start:end:end]
	return s, nil
}
