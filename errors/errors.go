package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseContainer    Phase = "container"     // DOS/PE headers and section table
	PhaseCLIHeader    Phase = "cli_header"    // CLR runtime header
	PhaseMetadataRoot Phase = "metadata_root" // BSJB root and stream headers
	PhaseLayout       Phase = "layout"        // tables stream header and layout
	PhaseTable        Phase = "table"         // row access
	PhaseHeap         Phase = "heap"          // heap access
	PhaseLoad         Phase = "load"          // file loading
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedContainer    Kind = "malformed_container"
	KindMissingCLIHeader      Kind = "missing_cli_header"
	KindMalformedMetadataRoot Kind = "malformed_metadata_root"
	KindTruncatedStream       Kind = "truncated_stream"
	KindUnsupportedSchema     Kind = "unsupported_schema"
	KindIndexOutOfRange       Kind = "index_out_of_range"
	KindMalformedBlobLength   Kind = "malformed_blob_length"
	KindUnterminatedString    Kind = "unterminated_string"
	KindRVAResolutionFailed   Kind = "rva_resolution_failed"
	KindNotFound              Kind = "not_found"
	KindUnreadable            Kind = "unreadable"
	KindInvalidInput          Kind = "invalid_input"
)

// Sentinels for errors.Is. They carry no Phase, so they match any phase.
var (
	ErrMalformedContainer    = &Error{Kind: KindMalformedContainer}
	ErrMissingCLIHeader      = &Error{Kind: KindMissingCLIHeader}
	ErrMalformedMetadataRoot = &Error{Kind: KindMalformedMetadataRoot}
	ErrTruncatedStream       = &Error{Kind: KindTruncatedStream}
	ErrUnsupportedSchema     = &Error{Kind: KindUnsupportedSchema}
	ErrIndexOutOfRange       = &Error{Kind: KindIndexOutOfRange}
	ErrMalformedBlobLength   = &Error{Kind: KindMalformedBlobLength}
	ErrUnterminatedString    = &Error{Kind: KindUnterminatedString}
	ErrRVAResolutionFailed   = &Error{Kind: KindRVAResolutionFailed}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrUnreadable            = &Error{Kind: KindUnreadable}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput}
)

// NoOffset marks an Error whose byte offset is unknown.
const NoOffset int64 = -1

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
	Offset int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Offset > 0 {
		fmt.Fprintf(&b, " (offset %#x)", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a Phase
// matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: NoOffset,
		},
	}
}

// Path sets the table/heap/column path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Offset sets the byte offset the error refers to
func (b *Builder) Offset(off int64) *Builder {
	b.err.Offset = off
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedContainer creates a bad DOS/PE header error
func MalformedContainer(format string, args ...any) *Error {
	return New(PhaseContainer, KindMalformedContainer).Detail(format, args...).Build()
}

// MissingCLIHeader creates an error for a PE image without CLI metadata
func MissingCLIHeader(detail string) *Error {
	return New(PhaseCLIHeader, KindMissingCLIHeader).Detail("%s", detail).Build()
}

// MalformedMetadataRoot creates a bad BSJB root or stream header error
func MalformedMetadataRoot(format string, args ...any) *Error {
	return New(PhaseMetadataRoot, KindMalformedMetadataRoot).Detail(format, args...).Build()
}

// TruncatedStream creates an error for a tables stream shorter than its
// declared contents
func TruncatedStream(path []string, end, size int) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindTruncatedStream,
		Path:   path,
		Offset: NoOffset,
		Detail: fmt.Sprintf("data ends at %d, stream is %d bytes", end, size),
		Value:  end,
	}
}

// UnsupportedSchema creates an error for a present table without a known
// column schema
func UnsupportedSchema(tableID int) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindUnsupportedSchema,
		Offset: NoOffset,
		Detail: fmt.Sprintf("table 0x%02x is present but has no known schema", tableID),
		Value:  tableID,
	}
}

// OutOfRange creates an index out of range error
func OutOfRange(phase Phase, path []string, index, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIndexOutOfRange,
		Path:   path,
		Offset: NoOffset,
		Detail: fmt.Sprintf("index %d out of range (length %d)", index, length),
		Value:  index,
	}
}

// MalformedBlobLength creates an error for an invalid compressed length prefix
func MalformedBlobLength(path []string, offset int64, lead byte) *Error {
	return &Error{
		Phase:  PhaseHeap,
		Kind:   KindMalformedBlobLength,
		Path:   path,
		Offset: offset,
		Detail: fmt.Sprintf("invalid length prefix byte %#02x", lead),
		Value:  lead,
	}
}

// UnterminatedString creates an error for a #Strings entry without a NUL
func UnterminatedString(offset int64) *Error {
	return &Error{
		Phase:  PhaseHeap,
		Kind:   KindUnterminatedString,
		Path:   []string{"#Strings"},
		Offset: offset,
		Detail: "no NUL terminator before end of heap",
	}
}

// RVAResolutionFailed creates an error for an RVA not covered by any section
func RVAResolutionFailed(rva, size uint32) *Error {
	return &Error{
		Phase:  PhaseContainer,
		Kind:   KindRVAResolutionFailed,
		Offset: NoOffset,
		Detail: fmt.Sprintf("rva %#x (size %d) is not covered by any section", rva, size),
		Value:  rva,
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Offset: NoOffset,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Unreadable creates an error for a file that exists but cannot be read
func Unreadable(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindUnreadable,
		Offset: NoOffset,
		Detail: path,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Offset: NoOffset,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: NoOffset,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
