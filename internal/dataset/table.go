package dataset

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when an interval or offset does not fit
// the table it addresses.
var ErrIndexOutOfRange = errors.New("index out of range")

// Table is an ordered, read-only sequence of fixed-schema records.
type Table[T any] interface {
	// Len returns the number of records.
	Len() int
	// Slice returns records [start, end). Callers go through Resolve, which
	// checks the bounds first.
	Slice(start, end int) ([]T, error)
}

// MemTable is a Table backed by a slice. Slices returned from it are views
// sharing the backing array and capped so appends cannot write through.
type MemTable[T any] []T

// Len returns the number of records.
func (t MemTable[T]) Len() int { return len(t) }

// Slice returns a capped view of records [start, end).
func (t MemTable[T]) Slice(start, end int) ([]T, error) {
	if err := checkBounds(start, end, len(t)); err != nil {
		return nil, err
	}
	return t[start:end:end], nil
}

// Resolve returns the records of table addressed by iv, in table order.
// It never clamps: an interval that does not satisfy
// 0 <= Start <= End <= table.Len() fails with ErrIndexOutOfRange.
func Resolve[T any](table Table[T], iv Interval) ([]T, error) {
	n := 0
	if table != nil {
		n = table.Len()
	}
	if err := checkBounds(iv.Start, iv.End, n); err != nil {
		return nil, err
	}
	if iv.Start == iv.End {
		return []T{}, nil
	}
	return table.Slice(iv.Start, iv.End)
}

// At returns the record at offset i.
func At[T any](table Table[T], i int) (T, error) {
	recs, err := Resolve(table, Interval{Start: i, End: i + 1})
	if err != nil {
		var zero T
		return zero, err
	}
	return recs[0], nil
}

func checkBounds(start, end, n int) error {
	if start < 0 || end < start || end > n {
		return fmt.Errorf("%w: interval [%d, %d) for table of %d records", ErrIndexOutOfRange, start, end, n)
	}
	return nil
}
