package pe

import (
	"bytes"

	"github.com/wippyai/cilium/errors"
)

// Section is one entry of the section table together with its raw bytes.
type Section struct {
	data                 []byte
	Name                 string
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// Data returns the section's raw bytes as stored in the file.
func (s *Section) Data() []byte {
	return s.data
}

// VirtualEnd is the first RVA past the section's mapped extent.
func (s *Section) VirtualEnd() uint32 {
	return s.VirtualAddress + s.mappedSize()
}

// Contains reports whether rva falls inside the section's mapped extent.
func (s *Section) Contains(rva uint32) bool {
	return rva >= s.VirtualAddress && rva-s.VirtualAddress < s.mappedSize()
}

// mappedSize is VirtualSize, or SizeOfRawData for linkers that leave
// VirtualSize zero.
func (s *Section) mappedSize() uint32 {
	if s.VirtualSize == 0 {
		return s.SizeOfRawData
	}
	return s.VirtualSize
}

func sectionName(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

// RVAMapper translates relative virtual addresses to file offsets using the
// section table. Resolution is a linear first-match search in table order.
type RVAMapper struct {
	sections []*Section
}

// NewRVAMapper creates a mapper over sections.
func NewRVAMapper(sections []*Section) *RVAMapper {
	return &RVAMapper{sections: sections}
}

// Section returns the first section containing rva.
func (m *RVAMapper) Section(rva uint32) (*Section, bool) {
	for _, s := range m.sections {
		if s.Contains(rva) {
			return s, true
		}
	}
	return nil, false
}

// Resolve maps rva to a file offset.
func (m *RVAMapper) Resolve(rva uint32) (uint32, error) {
	s, ok := m.Section(rva)
	if !ok {
		return 0, errors.RVAResolutionFailed(rva, 0)
	}
	return s.PointerToRawData + (rva - s.VirtualAddress), nil
}

// Slice returns size bytes starting at rva. The whole range must lie in the
// raw data of one section; bytes that exist only in memory (the zero-filled
// tail beyond SizeOfRawData) cannot be read from the file.
func (m *RVAMapper) Slice(rva, size uint32) ([]byte, error) {
	s, ok := m.Section(rva)
	if !ok {
		return nil, errors.RVAResolutionFailed(rva, size)
	}
	start := uint64(rva - s.VirtualAddress)
	end := start + uint64(size)
	if end > uint64(s.mappedSize()) || end > uint64(len(s.data)) {
		return nil, errors.RVAResolutionFailed(rva, size)
	}
	return s.data[start:end:end], nil
}
