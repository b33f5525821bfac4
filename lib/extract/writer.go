package extract

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/DataDog/zstd"

	"github.com/apetros/goramses/lib/record"
)

// TrajectoryWriter assembles a trajectory file with the exact section
// order and record framing the simulator uses. It exists so that tests,
// demos, and the gen subcommand can produce files without a simulator run.
//
// Fill in the Catalog, append one row per timestep, then call Encode or
// WriteFile. Rows must be appended in time order; every row carries the
// simulation time followed by one value per observable, in catalog/offset
// order.
type TrajectoryWriter struct {
	Catalog Catalog

	// BatchRows is the number of rows packed into each data record.
	// Zero means 64. The reader accepts any batching, so this only
	// matters when exercising specific record layouts.
	BatchRows int

	rows []float64
	nRows int
}

// AppendRow adds one timestep. values must hold exactly one value per
// observable declared in the catalog, excluding time.
func (w *TrajectoryWriter) AppendRow(t float64, values []float64) error {
	total := w.Catalog.TotalObservables()
	if len(values) != total {
		return fmt.Errorf("the catalog declares %d observables, but the " +
			"row appended at t=%g holds %d values", total, t, len(values))
	}
	w.rows = append(w.rows, t)
	w.rows = append(w.rows, values...)
	w.nRows++
	return nil
}

// Encode writes the catalog sections, the data records, and the
// terminating zero-count record.
func (w *TrajectoryWriter) Encode(wr io.Writer, order binary.ByteOrder) error {
	r := record.NewWriter(wr, order)
	c := &w.Catalog

	if err := writeNameSection(r, c.Buses, busNameWidth); err != nil {
		return err
	}
	if err := writeNameSection(r, c.Shunts, nameWidth); err != nil {
		return err
	}
	if err := writeNameSection(r, c.Loads, nameWidth); err != nil {
		return err
	}
	if err := writeNameSection(r, c.Branches, nameWidth); err != nil {
		return err
	}

	if err := r.WriteInts([]int32{ int32(len(c.Syncs)) }); err != nil {
		return err
	}
	for i := range c.Syncs {
		if err := r.WriteFixedText(c.Syncs[i].Name, nameWidth); err != nil {
			return err
		}
		if err := writeNameSection(r, c.Syncs[i].Exc, obsNameWidth); err != nil {
			return err
		}
		if err := writeNameSection(r, c.Syncs[i].Tor, obsNameWidth); err != nil {
			return err
		}
	}

	if err := writeDynSection(r, c.Injectors); err != nil { return err }
	if err := writeDynSection(r, c.Twoports); err != nil { return err }
	if err := writeDynSection(r, c.Controllers); err != nil { return err }

	return w.writeData(r)
}

func (w *TrajectoryWriter) writeData(r *record.Writer) error {
	rowLen := 1 + w.Catalog.TotalObservables()
	batch := w.BatchRows
	if batch <= 0 { batch = 64 }

	for start := 0; start < w.nRows; start += batch {
		end := start + batch
		if end > w.nRows { end = w.nRows }
		vals := w.rows[start*rowLen : end*rowLen]

		if err := r.WriteInt64s([]int64{ int64(len(vals)) }); err != nil {
			return err
		}
		if err := r.WriteFloats(vals); err != nil { return err }
	}

	return r.WriteInt64s([]int64{ 0 })
}

func writeNameSection(r *record.Writer, names []string, width int) error {
	if err := r.WriteInts([]int32{ int32(len(names)) }); err != nil {
		return err
	}
	for _, name := range names {
		if err := r.WriteFixedText(name, width); err != nil { return err }
	}
	return nil
}

func writeDynSection(r *record.Writer, entries []DynEntry) error {
	if err := r.WriteInts([]int32{ int32(len(entries)) }); err != nil {
		return err
	}
	for i := range entries {
		if err := r.WriteFixedText(entries[i].Name, nameWidth); err != nil {
			return err
		}
		if err := writeNameSection(r, entries[i].Obs, obsNameWidth); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the trajectory to fileName in little-endian order,
// compressing with zstd if compress is set.
func (w *TrajectoryWriter) WriteFile(fileName string, compress bool) error {
	f, err := os.Create(fileName)
	if err != nil { return err }

	if compress {
		zw := zstd.NewWriter(f)
		if err := w.Encode(zw, binary.LittleEndian); err != nil {
			zw.Close()
			f.Close()
			return err
		}
		// The zstd writer buffers; Close flushes the final frame.
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if err := w.Encode(f, binary.LittleEndian); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
