package metadata

import (
	"github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/binary"
	"github.com/wippyai/cilium/pe"
)

// CLIHeaderSize is the size of the CLI header (ECMA-335 II.25.3.3).
const CLIHeaderSize = 72

// CLIHeader is the CLR runtime header referenced by data directory 14.
type CLIHeader struct {
	Cb                      uint32
	MajorRuntimeVersion     uint16
	MinorRuntimeVersion     uint16
	MetaData                pe.DataDirectory
	Flags                   RuntimeFlags
	EntryPointToken         Token
	Resources               pe.DataDirectory
	StrongNameSignature     pe.DataDirectory
	CodeManagerTable        pe.DataDirectory
	VTableFixups            pe.DataDirectory
	ExportAddressTableJumps pe.DataDirectory
	ManagedNativeHeader     pe.DataDirectory
}

// ReadCLIHeader locates and decodes the CLI header of f.
func ReadCLIHeader(f *pe.File) (CLIHeader, error) {
	var h CLIHeader

	if f.OptionalHeader.NumberOfRvaAndSizes() <= pe.DirectoryCLR {
		return h, errors.MissingCLIHeader("optional header has no CLR runtime header directory")
	}
	dir := f.DataDirectory(pe.DirectoryCLR)
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return h, errors.MissingCLIHeader("CLR runtime header directory is empty")
	}
	if _, err := f.ResolveRVA(dir.VirtualAddress); err != nil {
		return h, err
	}
	if dir.Size < CLIHeaderSize {
		return h, errors.MissingCLIHeader("truncated")
	}
	b, err := f.ReadRVA(dir.VirtualAddress, CLIHeaderSize)
	if err != nil {
		return h, errors.New(errors.PhaseCLIHeader, errors.KindMissingCLIHeader).
			Cause(err).
			Detail("truncated").
			Build()
	}

	r := binary.NewReader(b)
	h.Cb, _ = r.ReadU32()
	h.MajorRuntimeVersion, _ = r.ReadU16()
	h.MinorRuntimeVersion, _ = r.ReadU16()
	h.MetaData = readDirectory(r)
	flags, _ := r.ReadU32()
	h.Flags = RuntimeFlags(flags)
	tok, _ := r.ReadU32()
	h.EntryPointToken = Token(tok)
	h.Resources = readDirectory(r)
	h.StrongNameSignature = readDirectory(r)
	h.CodeManagerTable = readDirectory(r)
	h.VTableFixups = readDirectory(r)
	h.ExportAddressTableJumps = readDirectory(r)
	h.ManagedNativeHeader = readDirectory(r)
	return h, nil
}

func readDirectory(r *binary.Reader) pe.DataDirectory {
	var d pe.DataDirectory
	d.VirtualAddress, _ = r.ReadU32()
	d.Size, _ = r.ReadU32()
	return d
}
