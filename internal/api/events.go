package api

import (
	"time"

	"wxarb/pkg/types"
)

// DashboardEvent is the wrapper for all events sent to the dashboard.
type DashboardEvent struct {
	Type      string      `json:"type"` // "snapshot", "basket", "book_update"
	Timestamp time.Time   `json:"timestamp"`
	Product   string      `json:"product,omitempty"` // empty for global events
	Data      interface{} `json:"data"`
}

// BasketLeg is one order within a fired arbitrage basket.
type BasketLeg struct {
	Product string       `json:"product"`
	Side    types.Side   `json:"side"`
	Price   types.Price  `json:"price"`
	Volume  types.Volume `json:"volume"`
}

// BasketEvent represents an arbitrage basket fired for execution.
type BasketEvent struct {
	Legs []BasketLeg `json:"legs"`
}

// BookUpdateEvent represents a change to a single book's top of ladder.
type BookUpdateEvent struct {
	Product    string `json:"product"`
	BestBid    string `json:"best_bid,omitempty"`
	BestBidVol uint32 `json:"best_bid_volume,omitempty"`
	BestAsk    string `json:"best_ask,omitempty"`
	BestAskVol uint32 `json:"best_ask_volume,omitempty"`
	UpdateTime time.Time `json:"update_time"`
}

// NewBasketEvent builds a BasketEvent from the arbitrage engine's output.
func NewBasketEvent(product []string, side []types.Side, price []types.Price, volume []types.Volume) BasketEvent {
	legs := make([]BasketLeg, len(product))
	for i := range product {
		legs[i] = BasketLeg{Product: product[i], Side: side[i], Price: price[i], Volume: volume[i]}
	}
	return BasketEvent{Legs: legs}
}
