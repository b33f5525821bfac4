package extract

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/apetros/goramses/lib/record"
)

// ShapeError reports a results buffer whose length is inconsistent with
// the column count derived from the catalog. It means the catalog and the
// data section disagree about how many observables were recorded, so
// neither can be trusted.
type ShapeError struct {
	msg string
}

func (e *ShapeError) Error() string { return e.msg }

// loadResults reads the data section of a trajectory file and reshapes it
// into a row-major (timesteps x cols) matrix, where cols = 1 + the total
// observable count and column 0 is simulation time.
//
// The data section is a loop of (count, count float64 values) record pairs
// terminated by a count of zero. The counts are 8-byte integers. The whole
// buffer is held in memory: the matrix has to be column-sliced randomly
// afterwards, so there is nothing to gain from streaming it.
func loadResults(r *record.Reader, cols int) (*mat.Dense, error) {
	var buf []float64
	for {
		rec, err := r.ReadInt64s()
		if err != nil { return nil, err }
		if len(rec) == 0 {
			return nil, record.Errorf("a data-section count record is empty")
		}

		n := rec[0]
		if n == 0 { break }
		if n < 0 {
			return nil, record.Errorf("a data-section record declares %d " +
				"values; the file is corrupted", n)
		}

		vals, err := r.ReadFloats()
		if err != nil { return nil, err }
		if int64(len(vals)) != n {
			return nil, record.Errorf("a data-section record declares %d " +
				"values but actually holds %d", n, len(vals))
		}

		buf = append(buf, vals...)
	}

	if len(buf) == 0 {
		return nil, &ShapeError{ "the data section holds no values at " +
			"all: the simulation wrote its catalog but not a single " +
			"timestep" }
	}
	if len(buf) % cols != 0 {
		return nil, &ShapeError{ fmt.Sprintf("the data section holds %d " +
			"values, but the catalog implies %d columns per timestep. " +
			"%d is not a multiple of %d, so the catalog and the data " +
			"section disagree about which observables were recorded.",
			len(buf), cols, len(buf), cols) }
	}

	return mat.NewDense(len(buf) / cols, cols, buf), nil
}
