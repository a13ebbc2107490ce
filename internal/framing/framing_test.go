package framing

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRecordLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	ts := time.Unix(0x0102030405, 0x0A0B0C0D)
	require.NoError(t, w.WriteRecord(ts, []byte{0xDE, 0xAD}))

	expected := []byte{
		0x98, 0x56, 0xCB, 0x6B, 0x56, 0xF8, 0xC8, 0x15,
		0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05,
		0x0A, 0x0B, 0x0C, 0x0D,
		0x00, 0x00, 0x00, 0x02,
		0xDE, 0xAD,
	}
	assert.Equal(t, expected, buf.Bytes())
}

type countingWriter struct {
	calls int
	bytes.Buffer
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.calls++
	return c.Buffer.Write(p)
}

func TestWriteRecordSingleWrite(t *testing.T) {
	cw := &countingWriter{}
	w := NewWriter(cw)
	require.NoError(t, w.WriteRecord(time.Now(), make([]byte, 1000)))
	require.NoError(t, w.WriteRecord(time.Now(), make([]byte, 10)))
	assert.Equal(t, 2, cw.calls)
	assert.Equal(t, 2*HeaderSize+1010, cw.Len())
}

func TestReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	base := time.Unix(1700000000, 123456789)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteRecord(base.Add(time.Duration(i)*time.Second), bytes.Repeat([]byte{byte(i)}, i+1)))
	}

	r := NewReader(&buf)
	var offset int64
	for i := 0; i < 3; i++ {
		rec, err := r.Next()
		require.NoError(t, err)
		assert.True(t, rec.Timestamp.Equal(base.Add(time.Duration(i)*time.Second)))
		assert.Equal(t, bytes.Repeat([]byte{byte(i)}, i+1), rec.Payload)
		assert.Equal(t, offset, rec.Offset)
		offset += int64(HeaderSize + i + 1)
	}

	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderTornRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteRecord(time.Unix(1, 0), make([]byte, 100)))

	r := NewReader(bytes.NewReader(buf.Bytes()[:buf.Len()-10]))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderResyncSkipsHole(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 4; i++ {
		require.NoError(t, w.WriteRecord(time.Unix(int64(i), 0), bytes.Repeat([]byte{0x98}, 50)))
	}
	data := buf.Bytes()
	recLen := HeaderSize + 50

	// zero out the first record and half of the second, as a punch would
	hole := recLen + recLen/2
	copy(data, make([]byte, hole))

	r := NewReader(bytes.NewReader(data))
	_, err := r.Next()
	require.ErrorIs(t, err, ErrBadPreamble)

	var got []int64
	for {
		if _, err := r.Resync(); err != nil {
			require.True(t, errors.Is(err, io.EOF))
			break
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, rec.Timestamp.Unix())
		if rec.Timestamp.Unix() == 3 {
			break
		}
	}
	assert.Equal(t, []int64{2, 3}, got)
}

func TestReaderResyncAfterShortGarbage(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x02, 0x98, 0x03, 0x04})
	require.NoError(t, NewWriter(&buf).WriteRecord(time.Unix(7, 0), []byte("hello")))

	r := NewReader(&buf)
	_, err := r.Next()
	require.ErrorIs(t, err, ErrBadPreamble)
	assert.Equal(t, int64(0), r.Offset())

	skipped, err := r.Resync()
	require.NoError(t, err)
	assert.Equal(t, int64(5), skipped)

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.Timestamp.Unix())
	assert.Equal(t, []byte("hello"), rec.Payload)
	assert.Equal(t, int64(5), rec.Offset)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderTornHeader(t *testing.T) {
	r := NewReader(bytes.NewReader(Preamble[:5]))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderHugeLengthOnShortStream(t *testing.T) {
	var hdr []byte
	hdr = append(hdr, Preamble[:]...)
	hdr = append(hdr, make([]byte, 12)...)
	hdr = append(hdr, 0xFF, 0xFF, 0xFF, 0xF0)
	hdr = append(hdr, []byte("short")...)

	r := NewReader(bytes.NewReader(hdr))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(len(hdr)), r.Offset())
}
