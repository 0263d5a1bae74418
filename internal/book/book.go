// Package book implements the per-product order book replica: two
// price-indexed ladders, the resting-order map, and the local
// position/exposure tally, together with the mutation operations driven by
// Added, Deleted, and Trade feed messages.
package book

import (
	"wxarb/pkg/types"

	"wxarb/internal/feed"
)

// Phase distinguishes recovery replay from live feed application. Recovery
// trade messages describe historical prints whose ladder effect is already
// implicit in the Added/Deleted messages that follow them in the snapshot;
// applying them to the ladder a second time would double-count. Position is
// reconstructed from trades in both phases.
type Phase int

const (
	Recovery Phase = iota
	Feed
)

// Order is a resting order as tracked by the replica. Volume shrinks on
// partial fills and the order is dropped from the map entirely when it is
// deleted or fully filled.
type Order struct {
	Owner  string
	Side   types.Side
	Price  types.Price
	Volume types.Volume
}

// Position holds the local user's net traded quantity and per-side resting
// exposure for one book.
type Position struct {
	BidExposure types.Volume
	AskExposure types.Volume
	Position    int64
}

func (p *Position) exposure(side types.Side) types.Volume {
	if side == types.Buy {
		return p.BidExposure
	}
	return p.AskExposure
}

func (p *Position) addExposure(side types.Side, vol types.Volume) {
	if side == types.Buy {
		p.BidExposure = p.BidExposure.Add(vol)
	} else {
		p.AskExposure = p.AskExposure.Add(vol)
	}
}

func (p *Position) subExposure(side types.Side, vol types.Volume) error {
	if side == types.Buy {
		v, err := p.BidExposure.Sub(vol)
		if err != nil {
			return err
		}
		p.BidExposure = v
		return nil
	}
	v, err := p.AskExposure.Sub(vol)
	if err != nil {
		return err
	}
	p.AskExposure = v
	return nil
}

// BBO is the best-bid/best-offer snapshot. A nil field means that side of
// the book is empty.
type BBO struct {
	Bid *types.PriceLevel
	Ask *types.PriceLevel
}

// Book is the per-product replica: two ladders, the order map, the local
// position, and the static descriptors needed to place it in a bundle.
type Book struct {
	Product  string
	Station  types.Station
	Expiry   string
	HaltTime string

	bids ladder
	asks ladder

	Orders   map[types.OrderID]Order
	Position Position
}

// New creates an empty book for the given product descriptors, as triggered
// by a FutureMsg.
func New(product string, station types.Station, expiry, haltTime string) *Book {
	return &Book{
		Product:  product,
		Station:  station,
		Expiry:   expiry,
		HaltTime: haltTime,
		bids:     newLadder(),
		asks:     newLadder(),
		Orders:   make(map[types.OrderID]Order),
	}
}

func (b *Book) ladderFor(side types.Side) *ladder {
	if side == types.Buy {
		return &b.bids
	}
	return &b.asks
}

// AddOrder inserts a newly resting order. The ID must not already be
// tracked — a duplicate ID indicates a divergent replica.
func (b *Book) AddOrder(m feed.AddedMsg, selfUsername string) error {
	if _, exists := b.Orders[m.ID]; exists {
		return errOrderAlreadyExists(m.ID)
	}
	b.Orders[m.ID] = Order{Owner: m.Owner, Side: m.Side, Price: m.Price, Volume: m.Resting}
	b.ladderFor(m.Side).add(m.Price, m.Resting)
	if m.Owner == selfUsername {
		b.Position.addExposure(m.Side, m.Resting)
	}
	return nil
}

// RemoveOrder deletes a resting order, decrementing its level and, if owned
// by self, its side's exposure.
func (b *Book) RemoveOrder(m feed.DeletedMsg, selfUsername string) error {
	return b.removeOrderByID(m.ID, selfUsername)
}

func (b *Book) removeOrderByID(id types.OrderID, selfUsername string) error {
	ord, ok := b.Orders[id]
	if !ok {
		return errUnknownOrder(id)
	}
	if err := b.ladderFor(ord.Side).remove(ord.Price, ord.Volume); err != nil {
		return err
	}
	if ord.Owner == selfUsername {
		if err := b.Position.subExposure(ord.Side, ord.Volume); err != nil {
			return err
		}
	}
	delete(b.Orders, id)
	return nil
}

// aggressorSide resolves which side initiated the trade. BrokerTrade has no
// well-defined aggressor and must never reach this function.
func aggressorSide(tt types.TradeType) (types.Side, error) {
	switch tt {
	case types.BuyAggressor:
		return types.Buy, nil
	case types.SellAggressor:
		return types.Sell, nil
	default:
		return "", errBadAggressor(tt)
	}
}

// ApplyTrade updates position for every trade, then — outside recovery and
// for on-book prints only — reconciles the passive order and its ladder
// level against the reported remainder.
func (b *Book) ApplyTrade(m feed.TradeMsg, selfUsername string, phase Phase) error {
	if m.Buyer == selfUsername {
		b.Position.Position += int64(m.Volume)
	}
	if m.Seller == selfUsername {
		b.Position.Position -= int64(m.Volume)
	}

	if phase == Recovery {
		return nil
	}
	if m.TradeType == types.BrokerTrade {
		return nil
	}

	aggressor, err := aggressorSide(m.TradeType)
	if err != nil {
		return err
	}
	passiveSide := aggressor.Opposite()

	passive, ok := b.Orders[m.PassiveOrder]
	if !ok {
		return errUnknownOrder(m.PassiveOrder)
	}
	computedRemainder, err := passive.Volume.Sub(m.Volume)
	if err != nil {
		return errRemainderMismatch(m.PassiveOrder, 0, m.PassiveOrderRemaining)
	}
	if computedRemainder != m.PassiveOrderRemaining {
		return errRemainderMismatch(m.PassiveOrder, computedRemainder, m.PassiveOrderRemaining)
	}
	if passive.Price != m.Price {
		return errPriceMismatch(m.PassiveOrder, passive.Price, m.Price)
	}

	if m.PassiveOrderRemaining == 0 {
		return b.removeOrderByID(m.PassiveOrder, selfUsername)
	}

	passive.Volume = m.PassiveOrderRemaining
	b.Orders[m.PassiveOrder] = passive
	b.ladderFor(passiveSide).set(m.Price, m.PassiveOrderRemaining)
	if passive.Owner == selfUsername {
		if err := b.Position.subExposure(passiveSide, m.Volume); err != nil {
			return err
		}
	}
	return nil
}

// BBO returns the current best bid and best ask.
func (b *Book) BBO() BBO {
	var out BBO
	if lvl, ok := b.bids.bestDescending(); ok {
		l := lvl
		out.Bid = &l
	}
	if lvl, ok := b.asks.bestAscending(); ok {
		l := lvl
		out.Ask = &l
	}
	return out
}

// AsksAscending returns every ask level from best to worst. The slice is a
// fresh copy; mutating it does not affect the book.
func (b *Book) AsksAscending() []types.PriceLevel { return b.asks.ascending() }

// BidsDescending returns every bid level from best to worst. The slice is a
// fresh copy; mutating it does not affect the book.
func (b *Book) BidsDescending() []types.PriceLevel { return b.bids.descending() }
