package book

import "wxarb/pkg/types"

// Bundle is the set of four books sharing an expiry, indexed by station
// ordinal: slots 0..2 are the underlying station futures, slot 3 is the
// Index future. Only complete bundles (every slot filled) are eligible for
// arbitrage.
type Bundle [types.NumStations]*Book

// Complete reports whether every station slot is filled.
func (b Bundle) Complete() bool {
	for _, bk := range b {
		if bk == nil {
			return false
		}
	}
	return true
}

// Underlyings returns the three underlying station books, in ordinal order.
func (b Bundle) Underlyings() [3]*Book {
	return [3]*Book{b[types.SydAirport], b[types.SydOlympicPark], b[types.CanberraAirport]}
}

// Index returns the Index book.
func (b Bundle) Index() *Book { return b[types.Index] }
