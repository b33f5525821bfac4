package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/apetros/goramses/lib/eq"
)

var order = binary.LittleEndian

// rawRecord frames payload with explicit leading and trailing markers, so
// tests can build deliberately broken records.
func rawRecord(head uint32, payload []byte, tail uint32) []byte {
	buf := &bytes.Buffer{ }
	binary.Write(buf, order, head)
	buf.Write(payload)
	binary.Write(buf, order, tail)
	return buf.Bytes()
}

func TestRoundTripRecords(t *testing.T) {
	buf := &bytes.Buffer{ }
	w := NewWriter(buf, order)

	ints := []int32{ 3, -7, 1 << 20 }
	int64s := []int64{ 1 << 40, 0 }
	floats := []float64{ 0.0, -1.5, 3.25e100 }

	if err := w.WriteInts(ints); err != nil {
		t.Fatalf("WriteInts failed: %s", err.Error())
	}
	if err := w.WriteInt64s(int64s); err != nil {
		t.Fatalf("WriteInt64s failed: %s", err.Error())
	}
	if err := w.WriteFixedText("B1", 18); err != nil {
		t.Fatalf("WriteFixedText failed: %s", err.Error())
	}
	if err := w.WriteFloats(floats); err != nil {
		t.Fatalf("WriteFloats failed: %s", err.Error())
	}

	r := NewReader(buf, order)

	gotInts, err := r.ReadInts()
	if err != nil {
		t.Fatalf("ReadInts failed: %s", err.Error())
	}
	for i := range ints {
		if gotInts[i] != ints[i] {
			t.Errorf("ReadInts()[%d] = %d, not %d", i, gotInts[i], ints[i])
		}
	}

	gotInt64s, err := r.ReadInt64s()
	if err != nil {
		t.Fatalf("ReadInt64s failed: %s", err.Error())
	}
	for i := range int64s {
		if gotInt64s[i] != int64s[i] {
			t.Errorf("ReadInt64s()[%d] = %d, not %d",
				i, gotInt64s[i], int64s[i])
		}
	}

	gotText, err := r.ReadFixedText(18)
	if err != nil {
		t.Fatalf("ReadFixedText failed: %s", err.Error())
	}
	if gotText != "B1" {
		t.Errorf("ReadFixedText() = '%s', not 'B1'", gotText)
	}

	gotFloats, err := r.ReadFloats()
	if err != nil {
		t.Fatalf("ReadFloats failed: %s", err.Error())
	}
	if !eq.Float64s(gotFloats, floats) {
		t.Errorf("ReadFloats() = %v, not %v", gotFloats, floats)
	}
}

func TestWriteFixedTextTooLong(t *testing.T) {
	w := NewWriter(&bytes.Buffer{ }, order)
	if err := w.WriteFixedText("a name that is far too long", 10); err == nil {
		t.Errorf("Expected writing a 27-byte name to a 10-byte field " +
			"to fail, but it succeeded.")
	}
}

func TestBrokenFraming(t *testing.T) {
	tests := []struct{
		name string
		raw []byte
	} {
		{ "empty stream", []byte{} },
		{ "marker only", []byte{ 8, 0, 0, 0 } },
		{ "truncated payload", rawRecord(8, []byte{ 1, 2, 3 }, 8)[:7] },
		{ "missing tail", rawRecord(4, []byte{ 1, 2, 3, 4 }, 4)[:8] },
		{ "mismatched markers", rawRecord(4, []byte{ 1, 2, 3, 4 }, 5) },
	}

	for _, test := range tests {
		r := NewReader(bytes.NewReader(test.raw), order)
		_, err := r.ReadInts()
		if err == nil {
			t.Errorf("Expected reading a stream with %s to fail, but it " +
				"succeeded.", test.name)
			continue
		}
		var formatErr *FormatError
		if !errors.As(err, &formatErr) {
			t.Errorf("Expected a *FormatError for %s, got %T.",
				test.name, err)
		}
	}
}

func TestWrongPayloadWidth(t *testing.T) {
	// A 6-byte payload is internally consistent but can't be decoded as
	// any of the element types.
	raw := rawRecord(6, []byte{ 1, 2, 3, 4, 5, 6 }, 6)

	if _, err := NewReader(bytes.NewReader(raw), order).ReadInts();
		err == nil {
		t.Errorf("Expected ReadInts of a 6-byte record to fail.")
	}
	if _, err := NewReader(bytes.NewReader(raw), order).ReadInt64s();
		err == nil {
		t.Errorf("Expected ReadInt64s of a 6-byte record to fail.")
	}
	if _, err := NewReader(bytes.NewReader(raw), order).ReadFloats();
		err == nil {
		t.Errorf("Expected ReadFloats of a 6-byte record to fail.")
	}
	if _, err := NewReader(bytes.NewReader(raw), order).ReadFixedText(18);
		err == nil {
		t.Errorf("Expected an 18-byte text read of a 6-byte record to fail.")
	}
}

func TestSequentialConsumption(t *testing.T) {
	// Each read consumes exactly one record: three records written,
	// three reads, then EOF as a FormatError.
	buf := &bytes.Buffer{ }
	w := NewWriter(buf, order)
	w.WriteInts([]int32{ 1 })
	w.WriteInts([]int32{ 2 })
	w.WriteInts([]int32{ 3 })

	r := NewReader(buf, order)
	for i := int32(1); i <= 3; i++ {
		rec, err := r.ReadInts()
		if err != nil {
			t.Fatalf("Read %d failed: %s", i, err.Error())
		}
		if len(rec) != 1 || rec[0] != i {
			t.Errorf("Read %d returned %v.", i, rec)
		}
	}
	if _, err := r.ReadInts(); err == nil {
		t.Errorf("Expected a read past the last record to fail.")
	}
}
