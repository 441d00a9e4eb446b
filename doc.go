// Package cilium reads ECMA-335 CLI metadata out of .NET PE images.
//
// Managed assemblies are ordinary PE/COFF files whose CLI header points at a
// metadata blob of heaps and tables. This module decodes that blob without
// executing anything and without copying: every row and heap value is a view
// into the caller's buffer.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	cilium/              Root package with the one-call Parse helper
//	├── pe/              DOS/PE headers, section table, RVA resolution
//	├── metadata/        CLI header, metadata root, heaps, table layout and rows
//	├── loader/          File-backed registry with search paths and mmap
//	├── errors/          Structured error types for debugging
//	└── cmd/asmdump/     Command-line and interactive metadata dumper
//
// # Quick Start
//
// Decode an in-memory image and walk its types:
//
//	asm, err := cilium.Parse(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	types, _ := asm.TypeDefTable()
//	for i, td := range types.All() {
//	    name, _ := asm.Strings().Get(td.TypeName)
//	    fmt.Println(i, name)
//	}
//
// Load from disk with a shared registry:
//
//	lc := loader.New(loader.DefaultOptions())
//	defer lc.Close()
//
//	asm, err := lc.LoadByName(ctx, "System.Xml")
//
// # Errors
//
// Failures are *errors.Error values carrying the decoding phase, a kind and,
// where known, the byte offset. Match them with the standard library:
//
//	if errors.Is(err, cerrors.ErrMissingCLIHeader) {
//	    // a native PE, not an assembly
//	}
//
// # Thread Safety
//
// A decoded Assembly is immutable and safe for concurrent use. The loader
// Context synchronizes its registry internally.
package cilium
