// Package arbitrage implements the index-arbitrage search: given a complete
// bundle of four books sharing an expiry, it walks both ladders of the
// three underlyings against the Index book and produces a volume-matched
// basket of four IOC orders, or nothing.
package arbitrage

import (
	"wxarb/pkg/types"

	"wxarb/internal/book"
	"wxarb/internal/feed"
)

// Find runs the buy-underlying strategy first; if it produces a basket, it
// is returned. Otherwise the sell-underlying strategy is tried. An empty
// result from both means no arbitrage exists right now.
func Find(bundle book.Bundle, epsilon types.Price) []feed.AddMessage {
	if basket := buyUnderlying(bundle, epsilon); len(basket) > 0 {
		return basket
	}
	return sellUnderlying(bundle, epsilon)
}

// buyUnderlying buys the three underlyings off their asks and sells the
// Index into its bids, profitable when the synthetic basket price sits
// strictly below the Index bid, net of epsilon.
func buyUnderlying(bundle book.Bundle, epsilon types.Price) []feed.AddMessage {
	underlyings := bundle.Underlyings()
	var underlyingLevels [3][]types.PriceLevel
	for i, b := range underlyings {
		underlyingLevels[i] = b.AsksAscending()
	}
	indexLevels := bundle.Index().BidsDescending()

	crosses := func(theo, index types.Price) bool {
		return theo.Add(epsilon) < index
	}

	uPrices, uVolume, iPrice, iVolume := cross(underlyingLevels, indexLevels, crosses)
	if iVolume == 0 {
		return nil
	}

	out := make([]feed.AddMessage, 0, types.NumStations)
	for i, b := range underlyings {
		out = append(out, feed.NewIOC(b.Product, types.Buy, uPrices[i], uVolume))
	}
	out = append(out, feed.NewIOC(bundle.Index().Product, types.Sell, iPrice, iVolume))
	return out
}

// sellUnderlying mirrors buyUnderlying with every side flipped: sell the
// underlyings into their bids, buy the Index off its asks.
func sellUnderlying(bundle book.Bundle, epsilon types.Price) []feed.AddMessage {
	underlyings := bundle.Underlyings()
	var underlyingLevels [3][]types.PriceLevel
	for i, b := range underlyings {
		underlyingLevels[i] = b.BidsDescending()
	}
	indexLevels := bundle.Index().AsksAscending()

	crosses := func(theo, index types.Price) bool {
		return theo > index.Add(epsilon)
	}

	uPrices, uVolume, iPrice, iVolume := cross(underlyingLevels, indexLevels, crosses)
	if iVolume == 0 {
		return nil
	}

	out := make([]feed.AddMessage, 0, types.NumStations)
	for i, b := range underlyings {
		out = append(out, feed.NewIOC(b.Product, types.Sell, uPrices[i], uVolume))
	}
	out = append(out, feed.NewIOC(bundle.Index().Product, types.Buy, iPrice, iVolume))
	return out
}

// cross walks three underlying ladders in lock-step against one index
// ladder, both already oriented (ascending or descending) by the caller,
// and accumulates a volume-matched cross wherever crosses(theo, index)
// holds. It returns the worst (last-consumed) price on each of the three
// underlying legs, the matched underlying volume, the worst index price,
// and the matched index volume. A zero index volume means no cross was
// found.
func cross(
	underlyingLevels [3][]types.PriceLevel,
	indexLevels []types.PriceLevel,
	crosses func(theo, index types.Price) bool,
) (underlyingPrice [3]types.Price, underlyingVolume types.Volume, indexPrice types.Price, indexVolume types.Volume) {
	var uIdx [3]int
	var uCur [3]types.PriceLevel
	for i := 0; i < 3; i++ {
		if len(underlyingLevels[i]) == 0 {
			return underlyingPrice, 0, 0, 0
		}
		uCur[i] = underlyingLevels[i][0]
	}

	var iIdx int
	var iCur types.PriceLevel
	haveICur := false

	var theo types.PriceLevel

	// cycleIndexVolume/cycleIndexPrice accumulate the index side of the
	// *current, not-yet-committed* theo cycle. They are only folded into
	// the returned totals once theo fully drains — a cycle abandoned
	// mid-way (index or underlying exhausted, or the edge stops crossing)
	// must not leave index_volume and underlying_volume out of step.
	var cycleIndexVolume types.Volume
	var cycleIndexPrice types.Price

outer:
	for {
		for i := 0; i < 3; i++ {
			for uCur[i].Volume == 0 {
				uIdx[i]++
				if uIdx[i] >= len(underlyingLevels[i]) {
					break outer
				}
				uCur[i] = underlyingLevels[i][uIdx[i]]
			}
		}
		uMin := uCur[0].Volume.Min(uCur[1].Volume).Min(uCur[2].Volume)

		for {
			if theo.Volume == 0 {
				theo = types.PriceLevel{
					Price:  uCur[0].Price.Add(uCur[1].Price).Add(uCur[2].Price),
					Volume: uMin,
				}
			}
			if !haveICur || iCur.Volume == 0 {
				if iIdx >= len(indexLevels) {
					break outer
				}
				iCur = indexLevels[iIdx]
				iIdx++
				haveICur = true
			}
			if !crosses(theo.Price, iCur.Price) {
				break outer
			}

			m := theo.Volume.Min(iCur.Volume)
			cycleIndexVolume = cycleIndexVolume.Add(m)
			cycleIndexPrice = iCur.Price
			theo.Volume, _ = theo.Volume.Sub(m)
			iCur.Volume, _ = iCur.Volume.Sub(m)

			if theo.Volume == 0 {
				underlyingVolume = underlyingVolume.Add(uMin)
				for i := 0; i < 3; i++ {
					underlyingPrice[i] = uCur[i].Price
					uCur[i].Volume, _ = uCur[i].Volume.Sub(uMin)
				}
				indexVolume = indexVolume.Add(cycleIndexVolume)
				indexPrice = cycleIndexPrice
				cycleIndexVolume = 0
				break
			}
		}
	}

	return underlyingPrice, underlyingVolume, indexPrice, indexVolume
}
