package record

import (
	"encoding/binary"
	"io"
	"math"
	"strings"
)

// Writer emits records with the same framing convention Reader consumes:
// a 4-byte byte count, the payload, and a trailing copy of the count. It
// exists so that synthetic trajectory files can be generated for tests and
// demos without a simulator run.
type Writer struct {
	wr io.Writer
	order binary.ByteOrder
}

// NewWriter creates a Writer targeting wr with the given byte order.
func NewWriter(wr io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{ wr: wr, order: order }
}

func (w *Writer) writeRecord(payload []byte) error {
	marker := make([]byte, 4)
	w.order.PutUint32(marker, uint32(len(payload)))

	if _, err := w.wr.Write(marker); err != nil { return err }
	if _, err := w.wr.Write(payload); err != nil { return err }
	_, err := w.wr.Write(marker)
	return err
}

// WriteInts writes one record of 4-byte integers.
func (w *Writer) WriteInts(x []int32) error {
	payload := make([]byte, 4*len(x))
	for i := range x {
		w.order.PutUint32(payload[4*i:], uint32(x[i]))
	}
	return w.writeRecord(payload)
}

// WriteInt64s writes one record of 8-byte integers.
func (w *Writer) WriteInt64s(x []int64) error {
	payload := make([]byte, 8*len(x))
	for i := range x {
		w.order.PutUint64(payload[8*i:], uint64(x[i]))
	}
	return w.writeRecord(payload)
}

// WriteFixedText writes one record holding s right-padded with spaces to
// exactly width bytes. s must not be longer than width.
func (w *Writer) WriteFixedText(s string, width int) error {
	if len(s) > width {
		return Errorf("the text field '%s' has %d bytes, but the table " +
			"it belongs to stores %d-byte fields", s, len(s), width)
	}
	padded := s + strings.Repeat(" ", width - len(s))
	return w.writeRecord([]byte(padded))
}

// WriteFloats writes one record of 8-byte IEEE-754 floats.
func (w *Writer) WriteFloats(x []float64) error {
	payload := make([]byte, 8*len(x))
	for i := range x {
		w.order.PutUint64(payload[8*i:], math.Float64bits(x[i]))
	}
	return w.writeRecord(payload)
}
