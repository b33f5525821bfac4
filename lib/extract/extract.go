/*package extract decodes RAMSES binary trajectory files and gives named
access to the simulated time series. A trajectory file starts with a
catalog of every component the simulator recorded, followed by a flat
buffer of float64 values, one row per timestep. Decoding is all-or-nothing:
either the whole file parses and an immutable Extractor is returned, or an
error is returned and nothing is exposed.

After a successful decode the Extractor is read-only and safe for
concurrent use. Looking up a name that isn't in the catalog is not an
error: the accessor logs a warning and returns an empty result, so batch
queries over many names survive a typo in one of them.
*/
package extract

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/mat"

	"github.com/apetros/goramses/lib/record"
)

// zstdMagic is the first four bytes of every zstd frame. Trajectory files
// compress very well, so compressed files are decoded transparently.
var zstdMagic = []byte{ 0x28, 0xb5, 0x2f, 0xfd }

// TimeSeries is one recorded observable: the simulation time vector, the
// value vector of equal length, and a human-readable label of the form
// "<component>: <observable>". Both vectors are copies owned by the
// caller; mutating them doesn't affect the Extractor.
type TimeSeries struct {
	Time, Value []float64
	Label string
}

// Extractor holds a fully decoded trajectory: the catalog, the column
// index derived from it, and the results matrix. It is immutable after
// Decode returns it.
type Extractor struct {
	catalog *Catalog
	index *offsetIndex
	results *mat.Dense
	logger log.Logger
}

// Option configures a Decode call.
type Option func(*decodeConfig)

type decodeConfig struct {
	order binary.ByteOrder
	logger log.Logger
}

// WithLogger sets the logger used to report recoverable conditions, such
// as lookups of names that aren't in the catalog. The default logs logfmt
// lines to stderr.
func WithLogger(logger log.Logger) Option {
	return func(cfg *decodeConfig) { cfg.logger = logger }
}

// WithByteOrder sets the byte order of the file. The default is
// little-endian, the native order of every machine the simulator
// realistically runs on.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(cfg *decodeConfig) { cfg.order = order }
}

// Decode reads the trajectory file at fileName and returns an Extractor
// over it. Files compressed with zstd are detected by their magic number
// and decompressed on the fly.
//
// Failure modes: a missing or unreadable file returns the wrapped system
// error; a framing or catalog inconsistency returns a *record.FormatError;
// a data section inconsistent with the catalog returns a *ShapeError. In
// every failure case no partial result is exposed.
func Decode(fileName string, opts ...Option) (*Extractor, error) {
	cfg := &decodeConfig{
		order: binary.LittleEndian,
		logger: log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)),
	}
	for _, opt := range opts { opt(cfg) }

	f, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("the trajectory file %s does not exist " +
			"or cannot be accessed: %w", fileName, err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1 << 16)
	var rd io.Reader = br
	if head, err := br.Peek(4); err == nil && bytes.Equal(head, zstdMagic) {
		zr := zstd.NewReader(br)
		defer zr.Close()
		rd = zr
	}

	return decodeStream(rd, cfg)
}

func decodeStream(rd io.Reader, cfg *decodeConfig) (*Extractor, error) {
	r := record.NewReader(rd, cfg.order)

	catalog, err := parseCatalog(r)
	if err != nil { return nil, err }

	results, err := loadResults(r, 1 + catalog.TotalObservables())
	if err != nil { return nil, err }

	return &Extractor{
		catalog: catalog,
		index: newOffsetIndex(catalog),
		results: results,
		logger: cfg.logger,
	}, nil
}

// Catalog returns the decoded component catalog. Callers must treat it as
// read-only.
func (e *Extractor) Catalog() *Catalog { return e.catalog }

// Timesteps returns the number of rows in the results matrix.
func (e *Extractor) Timesteps() int {
	rows, _ := e.results.Dims()
	return rows
}

// Time returns a copy of the simulation time column.
func (e *Extractor) Time() []float64 {
	return mat.Col(nil, 0, e.results)
}

// series extracts the matrix column of observable offset obsCol. Offsets
// count only observable columns; the matrix column is one further right
// because column 0 is time.
func (e *Extractor) series(obsCol int, label string) TimeSeries {
	return TimeSeries{
		Time: e.Time(),
		Value: mat.Col(nil, obsCol + 1, e.results),
		Label: label,
	}
}

// obsField is one fixed-schema observable: its short name and the
// description used in series labels.
type obsField struct {
	name, desc string
}

// The fixed observable schemas. Every instance of these kinds records
// exactly these columns, in this order.
var (
	busFields = []obsField{
		{ "mag", "Voltage magnitude (pu)" },
		{ "pha", "Voltage phase angle (deg)" },
	}
	shuntFields = []obsField{
		{ "Q", "Reactive power produced (Mvar)" },
	}
	loadFields = []obsField{
		{ "P", "Active power consumed (MW)" },
		{ "Q", "Reactive power consumed (Mvar)" },
	}
	branchFields = []obsField{
		{ "PF", "P (MW) entering at FROM end" },
		{ "QF", "Q (Mvar) entering at FROM end" },
		{ "PT", "P (MW) entering at TO end" },
		{ "QT", "Q (Mvar) entering at TO end" },
		{ "RM", "magnitude of transformer ratio" },
		{ "RA", "phase angle of transformer ratio (deg)" },
	}
	syncFields = []obsField{
		{ "P", "active power produced (MW)" },
		{ "Q", "reactive power produced (Mvar)" },
		{ "A", "rotor angle wrt COI (deg)" },
		{ "S", "rotor speed (pu)" },
		{ "FW", "flux in field winding (pu mach. base)" },
		{ "DD", "flux in d1 damper (pu mach. base)" },
		{ "QD", "flux in q1 damper (pu mach. base)" },
		{ "QW", "flux in q2 winding (pu mach. base)" },
		{ "FC", "field current (pu)" },
		{ "FV", "field voltage (pu)" },
		{ "T", "mechanical torque (pu)" },
		{ "ET", "electromagnetic torque (pu mach. base)" },
		{ "SC", "speed of COI reference (pu)" },
	}
)

// kindDesc describes how to resolve one component kind: where its name
// list lives, where an instance's columns start, and either a fixed field
// schema or a supplier of per-instance observable names. One table entry
// per kind drives every accessor.
type kindDesc struct {
	label string
	names func(c *Catalog) []string
	start func(ix *offsetIndex, i int) int
	fields []obsField
	obs func(c *Catalog, i int) []string
}

var kinds = map[string]kindDesc{
	"bus": {
		label: "bus",
		names: func(c *Catalog) []string { return c.Buses },
		start: (*offsetIndex).bus,
		fields: busFields,
	},
	"shunt": {
		label: "shunt",
		names: func(c *Catalog) []string { return c.Shunts },
		start: (*offsetIndex).shunt,
		fields: shuntFields,
	},
	"load": {
		label: "load",
		names: func(c *Catalog) []string { return c.Loads },
		start: (*offsetIndex).load,
		fields: loadFields,
	},
	"branch": {
		label: "branch",
		names: func(c *Catalog) []string { return c.Branches },
		start: (*offsetIndex).branch,
		fields: branchFields,
	},
	"sync": {
		label: "sync machine",
		names: (*Catalog).SyncNames,
		start: (*offsetIndex).sync,
		fields: syncFields,
	},
	"exc": {
		label: "sync machine",
		names: (*Catalog).SyncNames,
		start: (*offsetIndex).exc,
		obs: func(c *Catalog, i int) []string { return c.Syncs[i].Exc },
	},
	"tor": {
		label: "sync machine",
		names: (*Catalog).SyncNames,
		start: (*offsetIndex).tor,
		obs: func(c *Catalog, i int) []string { return c.Syncs[i].Tor },
	},
	"inj": {
		label: "injector",
		names: func(c *Catalog) []string { return DynNames(c.Injectors) },
		start: (*offsetIndex).inj,
		obs: func(c *Catalog, i int) []string { return c.Injectors[i].Obs },
	},
	"twop": {
		label: "twoport",
		names: func(c *Catalog) []string { return DynNames(c.Twoports) },
		start: (*offsetIndex).twop,
		obs: func(c *Catalog, i int) []string { return c.Twoports[i].Obs },
	},
	"dctl": {
		label: "DCTL",
		names: func(c *Catalog) []string { return DynNames(c.Controllers) },
		start: (*offsetIndex).dctl,
		obs: func(c *Catalog, i int) []string { return c.Controllers[i].Obs },
	},
}

// Kinds returns the kind keys accepted by Series and Observables.
func Kinds() []string {
	return []string{
		"bus", "shunt", "load", "branch", "sync",
		"exc", "tor", "inj", "twop", "dctl",
	}
}

// firstIndex returns the position of the first occurrence of name.
func firstIndex(names []string, name string) (int, bool) {
	for i := range names {
		if names[i] == name { return i, true }
	}
	return 0, false
}

// resolve maps (kind, name) to the instance's zero-based catalog position,
// logging a warning on a miss.
func (e *Extractor) resolve(kind, name string) (kindDesc, int, bool) {
	d, ok := kinds[kind]
	if !ok {
		level.Warn(e.logger).Log("msg", "unknown component kind",
			"kind", kind)
		return kindDesc{ }, 0, false
	}

	i, ok := firstIndex(d.names(e.catalog), name)
	if !ok {
		level.Warn(e.logger).Log("msg", d.label + " not found",
			"name", name)
		return kindDesc{ }, 0, false
	}
	return d, i, true
}

// Series returns the single observable obs of the named component of the
// given kind. kind is one of Kinds(). For the fixed-schema kinds obs is
// one of the schema's short names (e.g. "mag" for buses); for the dynamic
// kinds it is one of the instance's model-defined observable names. The
// second return value is false if the kind, the name, or the observable
// isn't in the catalog; the miss is logged and the Extractor stays usable.
func (e *Extractor) Series(kind, name, obs string) (TimeSeries, bool) {
	d, i, ok := e.resolve(kind, name)
	if !ok { return TimeSeries{ }, false }
	start := d.start(e.index, i)

	if d.fields != nil {
		for j := range d.fields {
			if d.fields[j].name == obs {
				label := name + ": " + d.fields[j].desc
				return e.series(start + j, label), true
			}
		}
	} else {
		obsNames := d.obs(e.catalog, i)
		if j, ok := firstIndex(obsNames, obs); ok {
			return e.series(start + j, name + ": " + obs), true
		}
	}

	level.Warn(e.logger).Log("msg", "observable not recorded",
		"kind", kind, "name", name, "obs", obs)
	return TimeSeries{ }, false
}

// Observables returns every recorded observable of the named component as
// a map from observable name to its series. It returns nil if the kind or
// the name isn't in the catalog.
func (e *Extractor) Observables(kind, name string) map[string]TimeSeries {
	d, i, ok := e.resolve(kind, name)
	if !ok { return nil }
	start := d.start(e.index, i)

	var obsNames []string
	if d.fields != nil {
		obsNames = make([]string, len(d.fields))
		for j := range d.fields { obsNames[j] = d.fields[j].name }
	} else {
		obsNames = d.obs(e.catalog, i)
	}

	m := make(map[string]TimeSeries, len(obsNames))
	for j, obsName := range obsNames {
		label := name + ": " + obsName
		if d.fields != nil {
			label = name + ": " + d.fields[j].desc
		}
		m[obsName] = e.series(start + j, label)
	}
	return m
}

// fixedSeries returns all fields of a fixed-schema instance, in schema
// order, or nil on a miss.
func (e *Extractor) fixedSeries(kind, name string) []TimeSeries {
	d, i, ok := e.resolve(kind, name)
	if !ok { return nil }
	start := d.start(e.index, i)

	out := make([]TimeSeries, len(d.fields))
	for j := range d.fields {
		out[j] = e.series(start + j, name + ": " + d.fields[j].desc)
	}
	return out
}

// fieldDict builds the observable-name -> description map of a fixed
// schema.
func fieldDict(fields []obsField) map[string]string {
	m := make(map[string]string, len(fields))
	for i := range fields { m[fields[i].name] = fields[i].desc }
	return m
}

// BusSeries holds the two recorded observables of one bus.
type BusSeries struct {
	Mag, Pha TimeSeries
}

// ObsDict returns the observable names and descriptions of the bus schema.
func (*BusSeries) ObsDict() map[string]string { return fieldDict(busFields) }

// GetBus returns the recorded series of the named bus, or nil if the name
// isn't in the catalog.
func (e *Extractor) GetBus(name string) *BusSeries {
	s := e.fixedSeries("bus", name)
	if s == nil { return nil }
	return &BusSeries{ Mag: s[0], Pha: s[1] }
}

// ShuntSeries holds the recorded observable of one shunt.
type ShuntSeries struct {
	Q TimeSeries
}

// ObsDict returns the observable names and descriptions of the shunt
// schema.
func (*ShuntSeries) ObsDict() map[string]string {
	return fieldDict(shuntFields)
}

// GetShunt returns the recorded series of the named shunt, or nil if the
// name isn't in the catalog.
func (e *Extractor) GetShunt(name string) *ShuntSeries {
	s := e.fixedSeries("shunt", name)
	if s == nil { return nil }
	return &ShuntSeries{ Q: s[0] }
}

// LoadSeries holds the two recorded observables of one load.
type LoadSeries struct {
	P, Q TimeSeries
}

// ObsDict returns the observable names and descriptions of the load
// schema.
func (*LoadSeries) ObsDict() map[string]string { return fieldDict(loadFields) }

// GetLoad returns the recorded series of the named load, or nil if the
// name isn't in the catalog.
func (e *Extractor) GetLoad(name string) *LoadSeries {
	s := e.fixedSeries("load", name)
	if s == nil { return nil }
	return &LoadSeries{ P: s[0], Q: s[1] }
}

// BranchSeries holds the six recorded observables of one branch.
type BranchSeries struct {
	PF, QF, PT, QT, RM, RA TimeSeries
}

// ObsDict returns the observable names and descriptions of the branch
// schema.
func (*BranchSeries) ObsDict() map[string]string {
	return fieldDict(branchFields)
}

// GetBranch returns the recorded series of the named branch, or nil if
// the name isn't in the catalog.
func (e *Extractor) GetBranch(name string) *BranchSeries {
	s := e.fixedSeries("branch", name)
	if s == nil { return nil }
	return &BranchSeries{
		PF: s[0], QF: s[1], PT: s[2], QT: s[3], RM: s[4], RA: s[5],
	}
}

// SyncSeries holds the thirteen fixed observables every synchronous
// machine records. The exciter and governor observables of the same
// machine are model-defined and come from GetExc and GetTor instead.
type SyncSeries struct {
	P, Q, A, S, FW, DD, QD, QW, FC, FV, T, ET, SC TimeSeries
}

// ObsDict returns the observable names and descriptions of the fixed
// synchronous machine schema.
func (*SyncSeries) ObsDict() map[string]string { return fieldDict(syncFields) }

// GetSync returns the fixed recorded series of the named synchronous
// machine, or nil if the name isn't in the catalog.
func (e *Extractor) GetSync(name string) *SyncSeries {
	s := e.fixedSeries("sync", name)
	if s == nil { return nil }
	return &SyncSeries{
		P: s[0], Q: s[1], A: s[2], S: s[3], FW: s[4], DD: s[5], QD: s[6],
		QW: s[7], FC: s[8], FV: s[9], T: s[10], ET: s[11], SC: s[12],
	}
}

// GetExc returns the exciter observables of the named synchronous machine,
// keyed by observable name, or nil if the machine isn't in the catalog.
func (e *Extractor) GetExc(name string) map[string]TimeSeries {
	return e.Observables("exc", name)
}

// GetTor returns the governor/torque observables of the named synchronous
// machine, keyed by observable name, or nil if the machine isn't in the
// catalog.
func (e *Extractor) GetTor(name string) map[string]TimeSeries {
	return e.Observables("tor", name)
}

// GetInj returns the observables of the named injector, keyed by
// observable name, or nil if the injector isn't in the catalog.
func (e *Extractor) GetInj(name string) map[string]TimeSeries {
	return e.Observables("inj", name)
}

// GetTwop returns the observables of the named twoport, keyed by
// observable name, or nil if the twoport isn't in the catalog.
func (e *Extractor) GetTwop(name string) map[string]TimeSeries {
	return e.Observables("twop", name)
}

// GetDctl returns the observables of the named discrete controller, keyed
// by observable name, or nil if the controller isn't in the catalog.
func (e *Extractor) GetDctl(name string) map[string]TimeSeries {
	return e.Observables("dctl", name)
}

// String summarizes the decode for log lines and the CLI.
func (e *Extractor) String() string {
	c := e.catalog
	rows, cols := e.results.Dims()
	parts := []string{
		fmt.Sprintf("%d buses", len(c.Buses)),
		fmt.Sprintf("%d shunts", len(c.Shunts)),
		fmt.Sprintf("%d loads", len(c.Loads)),
		fmt.Sprintf("%d branches", len(c.Branches)),
		fmt.Sprintf("%d sync machines", len(c.Syncs)),
		fmt.Sprintf("%d injectors", len(c.Injectors)),
		fmt.Sprintf("%d twoports", len(c.Twoports)),
		fmt.Sprintf("%d DCTLs", len(c.Controllers)),
	}
	return fmt.Sprintf("trajectory with %s over %d timesteps (%d columns)",
		strings.Join(parts, ", "), rows, cols)
}
