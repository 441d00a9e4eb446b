package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/cilium/loader"
	"github.com/wippyai/cilium/metadata"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type options struct {
	table   string
	path    string
	row     int
	limit   int
	heaps   bool
	verbose bool
	tui     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.table, "table", "", "Dump rows of the named table (e.g. TypeDef)")
	flag.IntVar(&opts.row, "row", -1, "Dump only this 0-based row of -table")
	flag.IntVar(&opts.limit, "limit", 50, "Maximum rows to dump with -table (0 for all)")
	flag.BoolVar(&opts.heaps, "heaps", false, "Show heap sizes and index widths")
	flag.StringVar(&opts.path, "path", "", "Assembly search paths, separated by the OS list separator")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.BoolVar(&opts.tui, "i", false, "Interactive table browser")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: asmdump [-table NAME [-row N] [-limit N]] [-heaps] [-path DIRS] [-v] FILE")
		fmt.Fprintln(os.Stderr, "       asmdump -i FILE  (interactive mode)")
		os.Exit(1)
	}

	if err := run(os.Stdout, flag.Arg(0), opts); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func run(w io.Writer, target string, opts options) error {
	log := zap.NewNop()
	if opts.verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer func() { _ = log.Sync() }()
	}

	lopts := loader.DefaultOptions()
	lopts.Logger = log
	if opts.path != "" {
		lopts.SearchPaths = append(filepath.SplitList(opts.path), lopts.SearchPaths...)
	}
	lc := loader.New(lopts)
	defer lc.Close()

	asm, err := lc.LoadByName(context.Background(), target)
	if err != nil {
		return err
	}

	if opts.tui {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(asm, target)
	}

	styled := isTerminal(w)
	if opts.table != "" {
		id, ok := metadata.LookupTable(opts.table)
		if !ok {
			return fmt.Errorf("unknown table %q", opts.table)
		}
		return dumpTable(w, asm, id, opts.row, opts.limit, styled)
	}

	printSummary(w, asm, styled)
	if opts.heaps {
		printHeaps(w, asm, styled)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func header(title string, styled bool) string {
	if styled {
		return titleStyle.Render(title)
	}
	return "== " + title + " =="
}

func field(w io.Writer, label string, value any, styled bool) {
	l := fmt.Sprintf("%-22s", label+":")
	v := fmt.Sprint(value)
	if styled {
		l = labelStyle.Render(l)
		v = valueStyle.Render(v)
	}
	fmt.Fprintf(w, "  %s %s\n", l, v)
}

func printSummary(w io.Writer, asm *metadata.Assembly, styled bool) {
	f := asm.PE()
	kind := "PE32"
	if f.Is64() {
		kind = "PE32+"
	}

	fmt.Fprintln(w, header("Container", styled))
	field(w, "Format", kind, styled)
	field(w, "Machine", fmt.Sprintf("%#04x", f.FileHeader.Machine), styled)
	field(w, "Characteristics", fmt.Sprintf("%#04x", f.FileHeader.Characteristics), styled)
	field(w, "Sections", len(f.Sections), styled)
	for _, s := range f.Sections {
		fmt.Fprintf(w, "    %-8s rva=%#08x vsize=%#x raw=%#x@%#x\n",
			s.Name, s.VirtualAddress, s.VirtualSize, s.SizeOfRawData, s.PointerToRawData)
	}

	cli := asm.CLIHeader()
	fmt.Fprintln(w, header("CLI header", styled))
	field(w, "Runtime", fmt.Sprintf("%d.%d", cli.MajorRuntimeVersion, cli.MinorRuntimeVersion), styled)
	field(w, "Flags", fmt.Sprintf("%#08x", uint32(cli.Flags)), styled)
	field(w, "Entry point", cli.EntryPointToken, styled)
	field(w, "Metadata", fmt.Sprintf("rva=%#x size=%#x", cli.MetaData.VirtualAddress, cli.MetaData.Size), styled)
	if name, err := asm.Name(); err == nil {
		field(w, "Name", name, styled)
	}

	root := asm.Root()
	fmt.Fprintln(w, header("Metadata root", styled))
	field(w, "Version", root.Version, styled)
	field(w, "Tables stream", asm.TablesStreamName(), styled)
	for _, s := range root.Streams {
		fmt.Fprintf(w, "    %-10s offset=%#x size=%#x\n", s.Name, s.Offset, s.Size)
	}

	l := asm.Layout()
	fmt.Fprintln(w, header("Tables", styled))
	field(w, "Schema", fmt.Sprintf("%d.%d", l.Header.MajorVersion, l.Header.MinorVersion), styled)
	fmt.Fprintf(w, "    %-4s %-24s %8s %8s %10s\n", "ID", "Name", "Rows", "RowSize", "Offset")
	for _, tl := range l.Tables {
		if !tl.Present {
			continue
		}
		fmt.Fprintf(w, "    %#02x %-24s %8d %8d %#10x\n", uint8(tl.ID), tl.ID, tl.Rows, tl.RowSize, tl.Offset)
	}
}

func printHeaps(w io.Writer, asm *metadata.Assembly, styled bool) {
	s := asm.IndexSizes()
	fmt.Fprintln(w, header("Heaps", styled))
	field(w, metadata.StreamStrings, fmt.Sprintf("%d bytes, %d-byte index", asm.Strings().Len(), s.String), styled)
	field(w, metadata.StreamBlob, fmt.Sprintf("%d bytes, %d-byte index", asm.Blobs().Len(), s.Blob), styled)
	field(w, metadata.StreamGUID, fmt.Sprintf("%d entries, %d-byte index", asm.GUIDs().Len(), s.GUID), styled)
	field(w, metadata.StreamUserStrings, fmt.Sprintf("%d bytes", asm.UserStrings().Len()), styled)
}

func dumpTable(w io.Writer, asm *metadata.Assembly, id metadata.TableID, row, limit int, styled bool) error {
	cols, ok := metadata.Schema(id)
	if !ok {
		return fmt.Errorf("table %s has no schema", id)
	}
	n := asm.RowCount(id)
	fmt.Fprintln(w, header(fmt.Sprintf("%s (%d rows)", id, n), styled))

	first, last := uint32(0), n
	if row >= 0 {
		if uint32(row) >= n {
			return fmt.Errorf("row %d out of range, %s has %d rows", row, id, n)
		}
		first, last = uint32(row), uint32(row)+1
	} else if limit > 0 && uint32(limit) < n {
		last = uint32(limit)
	}

	for i := first; i < last; i++ {
		cells, err := formatRow(asm, id, cols, i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  [%d] %s\n", i, metadata.MakeToken(id, i+1))
		for j, c := range cols {
			field(w, "  "+c.Name, cells[j], styled)
		}
	}
	if last-first < n && row < 0 {
		fmt.Fprintf(w, "  ... %d more\n", n-last)
	}
	return nil
}

// formatRow renders each column of row i with heap indices resolved.
func formatRow(asm *metadata.Assembly, id metadata.TableID, cols []metadata.Column, i uint32) ([]string, error) {
	raw, err := asm.RawRow(id, i)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cols))
	for j, c := range cols {
		out[j] = formatCell(asm, c, raw[j])
	}
	return out, nil
}

func formatCell(asm *metadata.Assembly, c metadata.Column, v uint32) string {
	switch c.Kind {
	case metadata.ColumnString:
		s, err := asm.Strings().Get(metadata.StringIndex(v))
		if err != nil {
			return fmt.Sprintf("#Strings[%#x] <%v>", v, err)
		}
		return fmt.Sprintf("%q", s)
	case metadata.ColumnGUID:
		if v == 0 {
			return "null"
		}
		g, err := asm.GUIDs().Get(metadata.GUIDIndex(v))
		if err != nil {
			return fmt.Sprintf("#GUID[%d] <%v>", v, err)
		}
		return "{" + g.String() + "}"
	case metadata.ColumnBlob:
		b, err := asm.Blobs().Get(metadata.BlobIndex(v))
		if err != nil {
			return fmt.Sprintf("#Blob[%#x] <%v>", v, err)
		}
		return fmt.Sprintf("#Blob[%#x] %s", v, hexPreview(b, 16))
	case metadata.ColumnTable:
		if v == 0 {
			return "null"
		}
		return fmt.Sprintf("%s[%d]", c.Table, v)
	case metadata.ColumnCoded:
		ci := c.Coded.Decode(v)
		if ci.IsNull() {
			return "null"
		}
		return ci.String()
	default:
		return fmt.Sprintf("%#0*x", int(c.Size)*2+2, v)
	}
}

func hexPreview(b []byte, max int) string {
	if len(b) == 0 {
		return "(empty)"
	}
	var sb strings.Builder
	for i, c := range b {
		if i == max {
			fmt.Fprintf(&sb, " ... (%d bytes)", len(b))
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}
