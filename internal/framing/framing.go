package framing

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Preamble starts every record
var Preamble = [8]byte{0x98, 0x56, 0xcb, 0x6b, 0x56, 0xf8, 0xc8, 0x15}

// HeaderSize is the preamble plus seconds, nanoseconds and payload length
const HeaderSize = len(Preamble) + 8 + 4 + 4

// ErrBadPreamble is returned when a record does not start with Preamble
var ErrBadPreamble = errors.New("bad record preamble")

// Record is one timestamped payload
type Record struct {
	Timestamp time.Time
	Payload   []byte
	// Offset is where the record starts in the stream (reader only)
	Offset int64
}

// Writer emits framed records
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter creates a record writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord writes one record in a single call to the underlying writer
func (fw *Writer) WriteRecord(ts time.Time, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("payload too large: %d bytes", len(payload))
	}

	need := HeaderSize + len(payload)
	if cap(fw.buf) < need {
		fw.buf = make([]byte, 0, need)
	}
	b := fw.buf[:0]
	b = append(b, Preamble[:]...)
	b = binary.BigEndian.AppendUint64(b, uint64(ts.Unix()))
	b = binary.BigEndian.AppendUint32(b, uint32(int32(ts.Nanosecond())))
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)))
	b = append(b, payload...)
	fw.buf = b

	_, err := fw.w.Write(b)
	return err
}

// Reader parses framed records
type Reader struct {
	r      *bufio.Reader
	offset int64
}

// NewReader creates a record reader on r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// maxPrealloc bounds the up-front payload allocation; larger payloads grow
// as bytes actually arrive, so a corrupt length cannot force a huge make.
const maxPrealloc = 1 << 20

// Next returns the next record. It returns io.EOF at a clean end of stream
// and io.ErrUnexpectedEOF when the stream stops inside a record. On
// ErrBadPreamble nothing is consumed, so Resync scans from the same offset.
func (fr *Reader) Next() (Record, error) {
	start := fr.offset

	hdr, err := fr.r.Peek(HeaderSize)
	if len(hdr) == 0 && err != nil {
		return Record{}, err
	}
	pre := min(len(hdr), len(Preamble))
	if !bytes.Equal(hdr[:pre], Preamble[:pre]) {
		return Record{}, fmt.Errorf("%w at offset %d", ErrBadPreamble, start)
	}
	if err != nil {
		k, _ := fr.r.Discard(len(hdr))
		fr.offset += int64(k)
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}

	p := hdr[len(Preamble):]
	sec := int64(binary.BigEndian.Uint64(p[0:8]))
	nsec := int32(binary.BigEndian.Uint32(p[8:12]))
	size := int64(binary.BigEndian.Uint32(p[12:16]))
	k, _ := fr.r.Discard(HeaderSize)
	fr.offset += int64(k)

	var payload bytes.Buffer
	payload.Grow(int(min(size, maxPrealloc)))
	n, err := io.CopyN(&payload, fr.r, size)
	fr.offset += n
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}

	return Record{
		Timestamp: time.Unix(sec, int64(nsec)),
		Payload:   payload.Bytes(),
		Offset:    start,
	}, nil
}

// Resync discards input until the next preamble, leaving the reader
// positioned on it. Used to step over punched (zeroed) regions. It returns
// the number of bytes skipped.
func (fr *Reader) Resync() (int64, error) {
	var skipped int64
	for {
		head, err := fr.r.Peek(len(Preamble))
		if bytes.Equal(head, Preamble[:]) {
			return skipped, nil
		}
		if err != nil {
			// fewer than a preamble's worth left: drop the tail
			k, _ := fr.r.Discard(len(head))
			fr.offset += int64(k)
			return skipped + int64(k), err
		}

		// jump straight to the next candidate first byte
		buffered, _ := fr.r.Peek(fr.r.Buffered())
		idx := bytes.IndexByte(buffered[1:], Preamble[0])
		step := len(buffered)
		if idx >= 0 {
			step = idx + 1
		}
		k, _ := fr.r.Discard(step)
		fr.offset += int64(k)
		skipped += int64(k)
	}
}

// Offset returns the number of bytes consumed so far
func (fr *Reader) Offset() int64 { return fr.offset }
