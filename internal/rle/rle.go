// Package rle implements the two-array (value, run-length) structure used
// to compactly encode per-block read lengths and quality-score scheme
// offsets.
package rle

// List is a run-length encoded sequence of values of type T. Values and
// Runs are parallel arrays: Values[i] occurs Runs[i] times before the
// next entry begins.
type List[T comparable] struct {
	Values []T
	Runs   []uint32
}

// Append extends the active run if v equals the last value written,
// otherwise opens a new run of length 1.
func (l *List[T]) Append(v T) {
	n := len(l.Values)
	if n > 0 && l.Values[n-1] == v {
		l.Runs[n-1]++
		return
	}
	l.Values = append(l.Values, v)
	l.Runs = append(l.Runs, 1)
}

// AppendRun opens a new run unconditionally, with the given length. This
// is used by the writer to record a quality-scheme boundary, where even
// a value equal to the previous entry's value must start a fresh run
// (e.g. the zero-length carry-over sentinel emitted at block flush).
func (l *List[T]) AppendRun(v T, run uint32) {
	l.Values = append(l.Values, v)
	l.Runs = append(l.Runs, run)
}

// ExtendLastRun grows the most recently appended run by n. The caller
// must ensure the list is non-empty.
func (l *List[T]) ExtendLastRun(n uint32) {
	l.Runs[len(l.Runs)-1] += n
}

// Last returns the value of the most recently appended run.
func (l *List[T]) Last() T {
	return l.Values[len(l.Values)-1]
}

// Len reports the number of (value, run) entries.
func (l *List[T]) Len() int {
	return len(l.Values)
}

// Reset empties the list in place, retaining the backing arrays.
func (l *List[T]) Reset() {
	l.Values = l.Values[:0]
	l.Runs = l.Runs[:0]
}

// Sum returns the total run length across all entries.
func (l *List[T]) Sum() uint64 {
	var total uint64
	for _, r := range l.Runs {
		total += uint64(r)
	}
	return total
}

// Cursor walks a List one element at a time, tracking which entry index
// and offset-within-run the next read belongs to. The sequence and
// quality decoder workers each need a private cursor snapshotted at
// chunk start, so Cursor is a plain value type that the orchestrator
// copies by assignment rather than sharing a pointer.
type Cursor[T comparable] struct {
	list *List[T]
	idx  int
	off  uint32
}

// NewCursor returns a cursor positioned at the start of list.
func NewCursor[T comparable](list *List[T]) Cursor[T] {
	return Cursor[T]{list: list}
}

// Value returns the value the cursor currently points at.
func (c *Cursor[T]) Value() T {
	return c.list.Values[c.idx]
}

// Advance moves the cursor forward by one read, returning true if this
// step crossed into a new run (i.e. the value just consumed was the last
// of its run).
func (c *Cursor[T]) Advance() (crossedBoundary bool) {
	c.off++
	if c.off >= c.list.Runs[c.idx] {
		c.off = 0
		c.idx++
		return true
	}
	return false
}

// More reports whether the cursor still has an entry to read, i.e.
// whether Value is safe to call. Advance can legitimately move the
// cursor one past the final entry on the last element of a list — the
// caller must check More before calling Value again in that case.
func (c *Cursor[T]) More() bool {
	return c.idx < len(c.list.Values)
}

// SkipZeroRuns advances past any leading zero-length runs, used by the
// reader to skip the writer's quality-scheme carry-over sentinel.
func (c *Cursor[T]) SkipZeroRuns() {
	for c.idx < len(c.list.Runs)-1 && c.list.Runs[c.idx] == 0 {
		c.idx++
	}
}
