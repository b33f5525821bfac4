package extract

// offsetIndex resolves every component instance to the half-open range
// [start, start+count) of observable columns it owns inside the results
// matrix. Offsets are zero-based and count only observable columns; the
// matrix column of observable offset k is k+1, because column 0 is time.
//
// The fixed-schema kinds are arithmetic progressions over the instance
// index. The synchronous machine block and the three dynamic blocks after
// it have variable per-instance widths, so each carries a zero-based
// prefix-sum table over its nested observable counts, and each block's
// base chains after the full width of every block before it.
type offsetIndex struct {
	busBase, shuntBase, loadBase, branchBase int
	syncBase, injBase, twopBase, dctlBase int
	excPrefix, torPrefix []int
	injPrefix, twopPrefix, dctlPrefix []int
}

// prefixSum returns the zero-based cumulative sums of counts: a slice of
// length len(counts)+1 with p[0] = 0 and p[i] = counts[0] + ... +
// counts[i-1]. The nested count of instance i is p[i+1] - p[i] and the
// total is p[len(counts)].
func prefixSum(counts []int) []int {
	p := make([]int, len(counts) + 1)
	for i := range counts {
		p[i+1] = p[i] + counts[i]
	}
	return p
}

func newOffsetIndex(c *Catalog) *offsetIndex {
	ix := &offsetIndex{ }

	ix.busBase = 0
	ix.shuntBase = ix.busBase + busWidth*len(c.Buses)
	ix.loadBase = ix.shuntBase + shuntWidth*len(c.Shunts)
	ix.branchBase = ix.loadBase + loadWidth*len(c.Loads)
	ix.syncBase = ix.branchBase + branchWidth*len(c.Branches)

	excCounts := make([]int, len(c.Syncs))
	torCounts := make([]int, len(c.Syncs))
	for i := range c.Syncs {
		excCounts[i] = len(c.Syncs[i].Exc)
		torCounts[i] = len(c.Syncs[i].Tor)
	}
	ix.excPrefix = prefixSum(excCounts)
	ix.torPrefix = prefixSum(torCounts)

	nSync := len(c.Syncs)
	ix.injBase = ix.syncBase + syncFixedWidth*nSync +
		ix.excPrefix[nSync] + ix.torPrefix[nSync]

	ix.injPrefix = prefixSum(dynCounts(c.Injectors))
	ix.twopBase = ix.injBase + ix.injPrefix[len(c.Injectors)]
	ix.twopPrefix = prefixSum(dynCounts(c.Twoports))
	ix.dctlBase = ix.twopBase + ix.twopPrefix[len(c.Twoports)]
	ix.dctlPrefix = prefixSum(dynCounts(c.Controllers))

	return ix
}

func dynCounts(entries []DynEntry) []int {
	counts := make([]int, len(entries))
	for i := range entries { counts[i] = len(entries[i].Obs) }
	return counts
}

// bus, shunt, load, and branch return the first observable column of
// instance i of their kind. i is the zero-based position in the catalog.
func (ix *offsetIndex) bus(i int) int { return ix.busBase + busWidth*i }
func (ix *offsetIndex) shunt(i int) int { return ix.shuntBase + shuntWidth*i }
func (ix *offsetIndex) load(i int) int { return ix.loadBase + loadWidth*i }
func (ix *offsetIndex) branch(i int) int {
	return ix.branchBase + branchWidth*i
}

// sync returns the first column of machine i's 13 fixed observables. The
// machine's exciter observables start immediately after the fixed block
// and its governor observables immediately after the exciter block.
func (ix *offsetIndex) sync(i int) int {
	return ix.syncBase + syncFixedWidth*i + ix.excPrefix[i] + ix.torPrefix[i]
}

func (ix *offsetIndex) exc(i int) int {
	return ix.sync(i) + syncFixedWidth
}

func (ix *offsetIndex) tor(i int) int {
	return ix.exc(i) + (ix.excPrefix[i+1] - ix.excPrefix[i])
}

func (ix *offsetIndex) inj(i int) int { return ix.injBase + ix.injPrefix[i] }
func (ix *offsetIndex) twop(i int) int {
	return ix.twopBase + ix.twopPrefix[i]
}
func (ix *offsetIndex) dctl(i int) int {
	return ix.dctlBase + ix.dctlPrefix[i]
}
