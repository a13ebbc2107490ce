package punch

import (
	"errors"
	"fmt"
	"io"
)

// ErrUnsupported is returned when the platform or filesystem cannot punch holes
var ErrUnsupported = errors.New("hole punching not supported")

// Backing is the output a Writer appends to and reclaims space from
type Backing interface {
	io.Writer
	// PunchHole deallocates [offset, offset+length) without changing the
	// logical size of the output.
	PunchHole(offset, length int64) error
	Sync() error
	Close() error
}

// HoleError reports that bytes were written but reclaiming space behind them
// failed. The logical stream is intact.
type HoleError struct {
	Offset int64
	Length int64
	Err    error
}

func (e *HoleError) Error() string {
	return fmt.Sprintf("punch hole [%d, %d): %v", e.Offset, e.Offset+e.Length, e.Err)
}

func (e *HoleError) Unwrap() error { return e.Err }

// Writer is an append-only writer that keeps only a bounded dense tail of its
// backing file allocated. Everything more than one keep unit behind the write
// position is punched out, a whole number of punch units at a time.
type Writer struct {
	keepSizeShl  uint8
	punchSizeShl uint8

	// up to this position is sparse
	sparseOffset int64
	// up to this position has been written
	writtenOffset int64

	punched int64
	backing Backing
}

// NewWriter wraps b. keepShl and punchShl are log2 of the retained tail and
// of the punch granularity.
func NewWriter(keepShl, punchShl uint8, b Backing) *Writer {
	if keepShl > 62 || punchShl > 62 {
		panic(fmt.Sprintf("punch: size exponents out of range (keep=%d punch=%d)", keepShl, punchShl))
	}
	return &Writer{
		keepSizeShl:  keepShl,
		punchSizeShl: punchShl,
		backing:      b,
	}
}

// Write appends p to the backing output. Errors from the backing write are
// returned unchanged. A failed reclaim is reported as a *HoleError after the
// bytes have been counted as written.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.backing.Write(p)
	w.writtenOffset += int64(n)
	if err != nil {
		return n, err
	}

	offset, length, ok := w.nextHole()
	if !ok {
		return n, nil
	}
	if err := w.backing.PunchHole(offset, length); err != nil {
		return n, &HoleError{Offset: offset, Length: length, Err: err}
	}
	w.sparseOffset = offset + length
	w.punched += length
	return n, nil
}

// nextHole returns the range to reclaim, if at least one aligned punch unit
// lies behind the keep window.
func (w *Writer) nextHole() (offset, length int64, ok bool) {
	keepSize := int64(1) << w.keepSizeShl

	if w.writtenOffset <= w.sparseOffset {
		return 0, 0, false
	}
	dense := w.writtenOffset - w.sparseOffset
	if dense < keepSize {
		return 0, 0, false
	}
	units := (dense - keepSize) >> w.punchSizeShl
	if units == 0 {
		return 0, 0, false
	}
	return w.sparseOffset, units << w.punchSizeShl, true
}

// Offsets returns the sparse and written positions
func (w *Writer) Offsets() (sparse, written int64) {
	return w.sparseOffset, w.writtenOffset
}

// Punched returns the total number of bytes reclaimed so far
func (w *Writer) Punched() int64 { return w.punched }

// Flush syncs the backing output to stable storage
func (w *Writer) Flush() error {
	return w.backing.Sync()
}

// Close flushes and closes the backing output
func (w *Writer) Close() error {
	syncErr := w.backing.Sync()
	if err := w.backing.Close(); err != nil {
		return err
	}
	return syncErr
}
