// Package metadata decodes ECMA-335 CLI metadata from a parsed PE image.
//
// New reads the CLI header, the BSJB metadata root and its stream headers,
// and computes the layout of the tables stream. After that every table and
// heap is available through typed, bounds-checked accessors that decode on
// demand from the image buffer:
//
//	asm, err := metadata.New(f)
//	if err != nil {
//	    return err
//	}
//	types, ok := asm.TypeDefTable()
//	for i, td := range types.All() {
//	    name, _ := asm.Strings().Get(td.TypeName)
//	    fmt.Println(i, name)
//	}
//
// # Layout
//
// Row sizes depend on the whole image: heap index widths come from the
// heap-sizes byte, simple index widths from the row count of the target
// table, and coded index widths from the largest member table of each
// coded kind. IndexSizes holds these widths and is shared by every Table.
//
// # Errors
//
// Construction errors are fatal and New returns no Assembly. Row and heap
// errors affect only the failing call.
package metadata
