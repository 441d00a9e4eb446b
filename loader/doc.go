// Package loader opens CLI assemblies from disk and keeps them alive.
//
// A Context is a registry of decoded assemblies keyed by absolute path. Files
// are mapped read-only where the platform allows it, so every table row and
// heap value handed out by an Assembly is a view into the mapping; the
// mapping is released only by Context.Close.
//
//	opts := loader.DefaultOptions()
//	opts.SearchPaths = append(opts.SearchPaths, "/usr/lib/mono/4.5")
//	lc := loader.New(opts)
//	defer lc.Close()
//
//	asm, err := lc.LoadByName(ctx, "mscorlib")
//	if err != nil {
//		return err
//	}
//	types, _ := asm.TypeDefTable()
//	for i, td := range types.All() {
//		...
//	}
//
// Defaults come from the environment: CILIUM_PATH is a list of search
// directories separated by the OS list separator and CILIUM_MMAP=true
// maps files instead of reading them into memory. A mapped assembly must not
// be used after its Context is closed.
package loader
