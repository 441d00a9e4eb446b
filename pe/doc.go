// Package pe decodes the Portable Executable container of a .NET assembly.
//
// Only the parts needed to reach CLI metadata are decoded: the MS-DOS
// header, the PE signature, the COFF file header, the PE32 or PE32+
// optional header with its 16 data directories, and the section table.
//
//	data, _ := os.ReadFile("app.dll")
//	f, err := pe.Parse(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	clr := f.DataDirectory(pe.DirectoryCLR)
//	hdr, err := f.ReadDirectory(clr)
//
// # Optional Header
//
// OptionalHeader is a tagged variant: Magic selects which of PE32 or PE64 is
// set. Accessors such as ImageBase and DataDirectory work on either.
//
// # RVA Mapping
//
// RVAMapper translates relative virtual addresses to file offsets. The first
// section whose [VirtualAddress, VirtualAddress+VirtualSize) contains the RVA
// wins; an RVA covered by no section fails with KindRVAResolutionFailed
// rather than being clamped.
//
// All failures are *errors.Error values with Phase "container".
package pe
