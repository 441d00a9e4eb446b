package metadata

import (
	"iter"

	"github.com/wippyai/cilium/errors"
)

// Table is a read-only view of one metadata table. Rows are decoded on each
// call; the view holds no state beyond the row bytes and shared index sizes,
// so it is cheap to copy and safe for concurrent use.
type Table[R any] struct {
	data    []byte
	sizes   *IndexSizes
	decode  func(*rowReader) R
	rows    uint32
	rowSize uint32
	id      TableID
}

func newTable[R any](l *Layout, id TableID, decode func(*rowReader) R) Table[R] {
	tl := l.Table(id)
	return Table[R]{
		data:    l.TableData(id),
		sizes:   l.Sizes,
		decode:  decode,
		rows:    tl.Rows,
		rowSize: tl.RowSize,
		id:      id,
	}
}

// ID returns the table id.
func (t Table[R]) ID() TableID { return t.id }

// Len returns the number of rows.
func (t Table[R]) Len() uint32 { return t.rows }

// RowSize returns the byte size of one row.
func (t Table[R]) RowSize() uint32 { return t.rowSize }

// Row decodes row i, counting from 0.
func (t Table[R]) Row(i uint32) (R, error) {
	if i >= t.rows {
		var zero R
		return zero, errors.OutOfRange(errors.PhaseTable, []string{t.id.String()}, uint64(i), uint64(t.rows))
	}
	off := uint64(i) * uint64(t.rowSize)
	r := rowReader{b: t.data[off : off+uint64(t.rowSize)], sizes: t.sizes}
	return t.decode(&r), nil
}

// RID decodes the row with 1-based row id rid, as stored in tokens and
// index columns. RID 0 is the null reference and fails.
func (t Table[R]) RID(rid uint32) (R, error) {
	if rid == 0 {
		var zero R
		return zero, errors.OutOfRange(errors.PhaseTable, []string{t.id.String()}, 0, uint64(t.rows))
	}
	return t.Row(rid - 1)
}

// All iterates rows in order with their 0-based index.
func (t Table[R]) All() iter.Seq2[uint32, R] {
	return func(yield func(uint32, R) bool) {
		for i := range t.rows {
			row, _ := t.Row(i)
			if !yield(i, row) {
				return
			}
		}
	}
}
