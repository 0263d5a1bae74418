package book

import (
	"sort"

	"wxarb/pkg/types"
)

// ladder is a price-indexed ladder for one side of a book. Prices are kept
// in a sorted slice so both directions of iteration (ascending for asks,
// descending for bids) are cheap; the map gives O(1) volume lookup and
// add/remove.
type ladder struct {
	volumes map[types.Price]types.Volume
	prices  []types.Price // always sorted ascending
}

func newLadder() ladder {
	return ladder{volumes: make(map[types.Price]types.Volume)}
}

// add increases the level at price by vol, creating the level if absent.
func (l *ladder) add(price types.Price, vol types.Volume) {
	if vol == 0 {
		return
	}
	cur, exists := l.volumes[price]
	if !exists {
		l.insertPrice(price)
	}
	l.volumes[price] = cur.Add(vol)
}

// remove decreases the level at price by vol, erasing the key if it hits
// zero. Returns an invariant error if the level doesn't exist or would go
// negative.
func (l *ladder) remove(price types.Price, vol types.Volume) error {
	cur, exists := l.volumes[price]
	if !exists {
		return errLevelNotFound(price)
	}
	remaining, err := cur.Sub(vol)
	if err != nil {
		return errLevelUnderflow(price, cur, vol)
	}
	if remaining == 0 {
		delete(l.volumes, price)
		l.removePrice(price)
		return nil
	}
	l.volumes[price] = remaining
	return nil
}

// set overwrites the level at price to vol (used when a trade leaves a
// known, exact remaining volume rather than a delta).
func (l *ladder) set(price types.Price, vol types.Volume) {
	if vol == 0 {
		if _, exists := l.volumes[price]; exists {
			delete(l.volumes, price)
			l.removePrice(price)
		}
		return
	}
	if _, exists := l.volumes[price]; !exists {
		l.insertPrice(price)
	}
	l.volumes[price] = vol
}

func (l *ladder) volumeAt(price types.Price) (types.Volume, bool) {
	v, ok := l.volumes[price]
	return v, ok
}

func (l *ladder) insertPrice(price types.Price) {
	i := sort.Search(len(l.prices), func(i int) bool { return l.prices[i] >= price })
	l.prices = append(l.prices, 0)
	copy(l.prices[i+1:], l.prices[i:])
	l.prices[i] = price
}

func (l *ladder) removePrice(price types.Price) {
	i := sort.Search(len(l.prices), func(i int) bool { return l.prices[i] >= price })
	if i < len(l.prices) && l.prices[i] == price {
		l.prices = append(l.prices[:i], l.prices[i+1:]...)
	}
}

// ascending returns every level in increasing price order (best ask first).
func (l *ladder) ascending() []types.PriceLevel {
	out := make([]types.PriceLevel, len(l.prices))
	for i, p := range l.prices {
		out[i] = types.PriceLevel{Price: p, Volume: l.volumes[p]}
	}
	return out
}

// descending returns every level in decreasing price order (best bid first).
func (l *ladder) descending() []types.PriceLevel {
	out := make([]types.PriceLevel, len(l.prices))
	n := len(l.prices)
	for i, p := range l.prices {
		out[n-1-i] = types.PriceLevel{Price: p, Volume: l.volumes[p]}
	}
	return out
}

// bestAscending and bestDescending return the first level in that
// direction (lowest or highest price), or the zero PriceLevel and false if
// the ladder is empty.
func (l *ladder) bestAscending() (types.PriceLevel, bool) {
	if len(l.prices) == 0 {
		return types.PriceLevel{}, false
	}
	p := l.prices[0]
	return types.PriceLevel{Price: p, Volume: l.volumes[p]}, true
}

func (l *ladder) bestDescending() (types.PriceLevel, bool) {
	if len(l.prices) == 0 {
		return types.PriceLevel{}, false
	}
	p := l.prices[len(l.prices)-1]
	return types.PriceLevel{Price: p, Volume: l.volumes[p]}, true
}
