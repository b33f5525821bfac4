package extract

import (
	"testing"

	"github.com/apetros/goramses/lib/eq"
)

func TestPrefixSum(t *testing.T) {
	tests := []struct{
		counts, want []int
	} {
		{ []int{}, []int{ 0 } },
		{ []int{ 0 }, []int{ 0, 0 } },
		{ []int{ 3 }, []int{ 0, 3 } },
		{ []int{ 2, 0, 5 }, []int{ 0, 2, 2, 7 } },
	}

	for i := range tests {
		got := prefixSum(tests[i].counts)
		if !eq.Ints(got, tests[i].want) {
			t.Errorf("%d) prefixSum(%v) = %v, not %v",
				i, tests[i].counts, got, tests[i].want)
		}
	}
}

func TestOffsetIndexFixedKinds(t *testing.T) {
	c := &Catalog{
		Buses: []string{ "B1", "B2" },
		Shunts: []string{ "SH1" },
		Loads: []string{ "L1", "L2" },
		Branches: []string{ "BR1" },
	}
	ix := newOffsetIndex(c)

	tests := []struct{
		name string
		got, want int
	} {
		{ "bus(0)", ix.bus(0), 0 },
		{ "bus(1)", ix.bus(1), 2 },
		{ "shunt(0)", ix.shunt(0), 4 },
		{ "load(0)", ix.load(0), 5 },
		{ "load(1)", ix.load(1), 7 },
		{ "branch(0)", ix.branch(0), 9 },
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%s = %d, not %d", test.name, test.got, test.want)
		}
	}

	if total := c.TotalObservables(); total != 15 {
		t.Errorf("TotalObservables() = %d, not 15", total)
	}
}

func TestOffsetIndexDynamicChain(t *testing.T) {
	// No fixed-schema components, so the sync block starts at offset 0
	// and every later base is a pure function of the nested counts.
	c := &Catalog{
		Syncs: []SyncEntry{
			{ Name: "g1", Exc: []string{ "vf", "vref" }, Tor: nil },
			{ Name: "g2", Exc: []string{ "if" },
				Tor: []string{ "Tm", "zg", "p0" } },
		},
		Injectors: []DynEntry{
			{ Name: "pv1", Obs: []string{ "P" } },
			{ Name: "pv2", Obs: []string{ "P", "Q" } },
		},
		Twoports: []DynEntry{
			{ Name: "hvdc1", Obs: []string{ "P1", "P2" } },
		},
		Controllers: []DynEntry{
			{ Name: "agc", Obs: []string{ "g1set" } },
		},
	}
	ix := newOffsetIndex(c)

	tests := []struct{
		name string
		got, want int
	} {
		{ "sync(0)", ix.sync(0), 0 },
		{ "exc(0)", ix.exc(0), 13 },
		// g1 has no governor observables: its tor block is empty and
		// starts right after the exciter block.
		{ "tor(0)", ix.tor(0), 15 },
		{ "sync(1)", ix.sync(1), 15 },
		{ "exc(1)", ix.exc(1), 28 },
		{ "tor(1)", ix.tor(1), 29 },
		{ "inj(0)", ix.inj(0), 32 },
		{ "inj(1)", ix.inj(1), 33 },
		{ "twop(0)", ix.twop(0), 35 },
		{ "dctl(0)", ix.dctl(0), 37 },
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%s = %d, not %d", test.name, test.got, test.want)
		}
	}

	if total := c.TotalObservables(); total != 38 {
		t.Errorf("TotalObservables() = %d, not 38", total)
	}
}
