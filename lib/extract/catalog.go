package extract

import (
	"github.com/apetros/goramses/lib/record"
)

// Name and observable fields have fixed widths that depend on the table
// they belong to. Bus names are the one odd width in the format.
const (
	busNameWidth = 18
	nameWidth = 20
	obsNameWidth = 10
)

// Per-instance column widths of the fixed-schema component kinds, and the
// fixed block of every synchronous machine. These are properties of the
// file format, not of any particular model.
const (
	busWidth = 2
	shuntWidth = 1
	loadWidth = 2
	branchWidth = 6
	syncFixedWidth = 13
)

// SyncEntry is one synchronous machine in the catalog. Exc and Tor hold the
// observable names of the exciter and of the governor/torque control,
// respectively. Both lists are defined by the model attached to the machine
// and can have any length, including zero.
type SyncEntry struct {
	Name string
	Exc, Tor []string
}

// DynEntry is one injector, twoport, or controller in the catalog. Obs
// holds its model-defined observable names, in file order.
type DynEntry struct {
	Name string
	Obs []string
}

// Catalog is the decoded component header of a trajectory file: the name
// lists of every component kind, in file order, plus the per-instance
// observable name lists of the dynamically modelled kinds. The order of
// each list is the simulator's internal numbering and determines where each
// instance's columns live in the results matrix.
//
// Names are not guaranteed to be unique within a kind. The file format
// doesn't forbid duplicates, and the accessors resolve a name to its first
// occurrence, so later duplicates are unreachable by name.
type Catalog struct {
	Buses, Shunts, Loads, Branches []string
	Syncs []SyncEntry
	Injectors, Twoports, Controllers []DynEntry
}

// TotalObservables returns the number of observable columns the results
// matrix must have. The results matrix has exactly one more column than
// this, the time column.
func (c *Catalog) TotalObservables() int {
	total := busWidth*len(c.Buses) + shuntWidth*len(c.Shunts) +
		loadWidth*len(c.Loads) + branchWidth*len(c.Branches) +
		syncFixedWidth*len(c.Syncs)
	for i := range c.Syncs {
		total += len(c.Syncs[i].Exc) + len(c.Syncs[i].Tor)
	}
	for i := range c.Injectors { total += len(c.Injectors[i].Obs) }
	for i := range c.Twoports { total += len(c.Twoports[i].Obs) }
	for i := range c.Controllers { total += len(c.Controllers[i].Obs) }
	return total
}

// SyncNames returns the machine names of c.Syncs, in file order.
func (c *Catalog) SyncNames() []string {
	names := make([]string, len(c.Syncs))
	for i := range c.Syncs { names[i] = c.Syncs[i].Name }
	return names
}

// DynNames returns the instance names of a dynamic-kind entry list, in
// file order.
func DynNames(entries []DynEntry) []string {
	names := make([]string, len(entries))
	for i := range entries { names[i] = entries[i].Name }
	return names
}

// readCount reads a one-element integer record and checks that it can be a
// table length.
func readCount(r *record.Reader, table string) (int, error) {
	rec, err := r.ReadInts()
	if err != nil { return 0, err }
	if len(rec) == 0 {
		return 0, record.Errorf("the %s count record is empty", table)
	}
	if rec[0] < 0 {
		return 0, record.Errorf("the %s section declares %d entries. A " +
			"negative count means the file was not written by the " +
			"simulator or is corrupted.", table, rec[0])
	}
	return int(rec[0]), nil
}

// readNames reads n fixed-width text records.
func readNames(r *record.Reader, n, width int) ([]string, error) {
	names := make([]string, n)
	for i := 0; i < n; i++ {
		name, err := r.ReadFixedText(width)
		if err != nil { return nil, err }
		names[i] = name
	}
	return names, nil
}

// readObsList reads an observable count followed by that many observable
// names, the shape shared by the exciter, governor, injector, twoport, and
// controller tables.
func readObsList(r *record.Reader, table string) ([]string, error) {
	n, err := readCount(r, table)
	if err != nil { return nil, err }
	return readNames(r, n, obsNameWidth)
}

// parseCatalog reads the eight catalog sections in the fixed order the
// simulator writes them: buses, shunts, loads, branches, synchronous
// machines, injectors, twoports, controllers. Any read failure aborts the
// parse; no partial catalog is ever returned.
func parseCatalog(r *record.Reader) (*Catalog, error) {
	c := &Catalog{ }
	var n int
	var err error

	if n, err = readCount(r, "bus"); err != nil { return nil, err }
	if c.Buses, err = readNames(r, n, busNameWidth); err != nil {
		return nil, err
	}

	if n, err = readCount(r, "shunt"); err != nil { return nil, err }
	if c.Shunts, err = readNames(r, n, nameWidth); err != nil {
		return nil, err
	}

	if n, err = readCount(r, "load"); err != nil { return nil, err }
	if c.Loads, err = readNames(r, n, nameWidth); err != nil {
		return nil, err
	}

	if n, err = readCount(r, "branch"); err != nil { return nil, err }
	if c.Branches, err = readNames(r, n, nameWidth); err != nil {
		return nil, err
	}

	if n, err = readCount(r, "synchronous machine"); err != nil {
		return nil, err
	}
	c.Syncs = make([]SyncEntry, n)
	for i := range c.Syncs {
		entry := &c.Syncs[i]
		if entry.Name, err = r.ReadFixedText(nameWidth); err != nil {
			return nil, err
		}
		if entry.Exc, err = readObsList(r, "exciter observable"); err != nil {
			return nil, err
		}
		if entry.Tor, err = readObsList(r, "governor observable"); err != nil {
			return nil, err
		}
	}

	if c.Injectors, err = parseDynSection(r, "injector"); err != nil {
		return nil, err
	}
	if c.Twoports, err = parseDynSection(r, "twoport"); err != nil {
		return nil, err
	}
	if c.Controllers, err = parseDynSection(r, "controller"); err != nil {
		return nil, err
	}

	return c, nil
}

// parseDynSection reads one injector/twoport/controller section: a count,
// then per instance a name and its observable list.
func parseDynSection(r *record.Reader, table string) ([]DynEntry, error) {
	n, err := readCount(r, table)
	if err != nil { return nil, err }

	entries := make([]DynEntry, n)
	for i := range entries {
		entry := &entries[i]
		if entry.Name, err = r.ReadFixedText(nameWidth); err != nil {
			return nil, err
		}
		if entry.Obs, err = readObsList(r, table + " observable"); err != nil {
			return nil, err
		}
	}
	return entries, nil
}
