/*package record reads and writes the sequential unformatted record stream
used by RAMSES trajectory files. Every record in the stream is framed the
same way: a 4-byte byte count, the payload, and a trailing copy of the same
byte count. The stream is strictly sequential; there is no way to skip to a
record without reading everything before it.
*/
package record

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// FormatError reports a violation of the record-framing convention: a
// missing or inconsistent length marker, a truncated record, or a payload
// whose size doesn't match the type being read. A FormatError means the
// stream can't be trusted past the point where it occurred.
type FormatError struct {
	msg string
}

func (e *FormatError) Error() string { return e.msg }

// Errorf creates a FormatError with the same formatting rules as
// fmt.Errorf.
func Errorf(format string, a ...interface{}) *FormatError {
	return &FormatError{ fmt.Sprintf(format, a...) }
}

// Reader reads one framed record at a time from an underlying stream.
// Each ReadX call consumes exactly one record. Reader never reads ahead.
type Reader struct {
	rd io.Reader
	order binary.ByteOrder
	n int // records read so far, for error messages
}

// NewReader creates a Reader over rd. order is the byte order the records
// were written with, which is the native order of the machine that ran the
// simulation. In practice this is almost always binary.LittleEndian.
func NewReader(rd io.Reader, order binary.ByteOrder) *Reader {
	return &Reader{ rd: rd, order: order }
}

// readRecord reads one full record and returns its payload. The leading
// and trailing length markers must match exactly.
func (r *Reader) readRecord() ([]byte, error) {
	var head uint32
	err := binary.Read(r.rd, r.order, &head)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, Errorf("the stream ended where record %d should " +
			"begin: the file is truncated or a record is missing", r.n)
	} else if err != nil {
		return nil, Errorf("could not read the length marker of record " +
			"%d: %s", r.n, err.Error())
	}

	payload := make([]byte, head)
	_, err = io.ReadFull(r.rd, payload)
	if err != nil {
		return nil, Errorf("record %d declares a %d-byte payload, but " +
			"the stream ended before it was complete", r.n, head)
	}

	var tail uint32
	err = binary.Read(r.rd, r.order, &tail)
	if err != nil {
		return nil, Errorf("the stream ended before the trailing length " +
			"marker of record %d", r.n)
	}
	if head != tail {
		return nil, Errorf("the leading and trailing length markers of " +
			"record %d don't match: %d at the start, %d at the end. The " +
			"file was not written with the sequential unformatted " +
			"convention, or it is corrupted.", r.n, head, tail)
	}

	r.n++
	return payload, nil
}

// ReadInts reads one record and decodes it as 4-byte integers.
func (r *Reader) ReadInts() ([]int32, error) {
	payload, err := r.readRecord()
	if err != nil { return nil, err }
	if len(payload) % 4 != 0 {
		return nil, Errorf("record %d has a %d-byte payload, which " +
			"cannot be a sequence of 4-byte integers", r.n - 1, len(payload))
	}

	out := make([]int32, len(payload) / 4)
	for i := range out {
		out[i] = int32(r.order.Uint32(payload[4*i:]))
	}
	return out, nil
}

// ReadInt64s reads one record and decodes it as 8-byte integers. The data
// section of a trajectory file declares its buffer sizes with 8-byte
// integers, unlike the 4-byte counts used in the catalog sections.
func (r *Reader) ReadInt64s() ([]int64, error) {
	payload, err := r.readRecord()
	if err != nil { return nil, err }
	if len(payload) % 8 != 0 {
		return nil, Errorf("record %d has a %d-byte payload, which " +
			"cannot be a sequence of 8-byte integers", r.n - 1, len(payload))
	}

	out := make([]int64, len(payload) / 8)
	for i := range out {
		out[i] = int64(r.order.Uint64(payload[8*i:]))
	}
	return out, nil
}

// ReadFixedText reads one record holding a space-padded text field of
// exactly width bytes and returns it with the padding trimmed.
func (r *Reader) ReadFixedText(width int) (string, error) {
	payload, err := r.readRecord()
	if err != nil { return "", err }
	if len(payload) != width {
		return "", Errorf("record %d should be a %d-byte text field, " +
			"but its payload has %d bytes", r.n - 1, width, len(payload))
	}
	return strings.TrimRight(string(payload), " "), nil
}

// ReadFloats reads one record and decodes it as 8-byte IEEE-754 floats.
func (r *Reader) ReadFloats() ([]float64, error) {
	payload, err := r.readRecord()
	if err != nil { return nil, err }
	if len(payload) % 8 != 0 {
		return nil, Errorf("record %d has a %d-byte payload, which " +
			"cannot be a sequence of 8-byte floats", r.n - 1, len(payload))
	}

	out := make([]float64, len(payload) / 8)
	for i := range out {
		out[i] = math.Float64frombits(r.order.Uint64(payload[8*i:]))
	}
	return out, nil
}
