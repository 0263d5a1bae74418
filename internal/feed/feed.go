// Package feed defines the wire message model for the information endpoint:
// a tagged union of seven message kinds, each carrying a monotonic sequence
// number, plus the peek-the-tag-then-decode dispatcher that turns a raw JSON
// frame into a typed Message.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"wxarb/pkg/types"
)

// Message is implemented by every decoded feed frame. Kind returns the wire
// tag verbatim (useful for logging); Seq returns the frame's sequence number,
// which the replay engine uses to enforce contiguity.
type Message interface {
	Kind() string
	Seq() uint32
}

// envelope is used only to peek at the tag and sequence before deciding
// which concrete type to fully unmarshal into.
type envelope struct {
	Type     string `json:"type"`
	Sequence uint32 `json:"sequence"`
}

// Decode inspects the "type" field of a raw JSON frame and unmarshals it
// into the matching concrete Message. An unrecognized tag or malformed JSON
// is a decode error, which is fatal to the replay engine per the error
// handling design.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed frame: %v", types.ErrDecode, err)
	}

	var msg Message
	switch env.Type {
	case "FUTURE":
		var m FutureMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: FUTURE: %v", types.ErrDecode, err)
		}
		msg = m
	case "ADDED":
		var m AddedMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: ADDED: %v", types.ErrDecode, err)
		}
		msg = m
	case "DELETED":
		var m DeletedMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: DELETED: %v", types.ErrDecode, err)
		}
		msg = m
	case "TRADE":
		var m TradeMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: TRADE: %v", types.ErrDecode, err)
		}
		msg = m
	case "SETTLEMENT":
		var m SettlementMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: SETTLEMENT: %v", types.ErrDecode, err)
		}
		msg = m
	case "INDEX":
		var m IndexMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: INDEX: %v", types.ErrDecode, err)
		}
		msg = m
	case "TRADING_HALT":
		var m TradingHaltMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: TRADING_HALT: %v", types.ErrDecode, err)
		}
		msg = m
	default:
		return nil, fmt.Errorf("%w: unknown message tag %q", types.ErrDecode, env.Type)
	}
	return msg, nil
}

// FutureMsg creates a book. expiry and haltTime are carried separately on
// the wire but must agree (see replay engine).
type FutureMsg struct {
	Sequence               uint32  `json:"sequence"`
	Product                string  `json:"product"`
	StationID              int     `json:"stationId"`
	StationName            string  `json:"stationName"`
	Expiry                 string  `json:"expiry"`
	HaltTime               string  `json:"haltTime"`
	Unit                   string  `json:"unit"`
	Strike                 decimal.Decimal `json:"strike"`
	AggressiveFee          decimal.Decimal `json:"aggressiveFee"`
	PassiveFee             decimal.Decimal `json:"passiveFee"`
	AnnouncementFee        decimal.Decimal `json:"announcementFee"`
	IncentiveRebatePerUnit decimal.Decimal `json:"incentiveRebatePerUnit"`
	MaxIncentiveRebate     decimal.Decimal `json:"maxIncentiveRebate"`
	BrokerFee              decimal.Decimal `json:"brokerFee"`
}

func (m FutureMsg) Kind() string  { return "FUTURE" }
func (m FutureMsg) Seq() uint32   { return m.Sequence }
func (m FutureMsg) Station() (types.Station, error) {
	return types.ParseStationID(m.StationID)
}

// AddedMsg inserts a resting order into the book named by Product.
type AddedMsg struct {
	Sequence uint32        `json:"sequence"`
	Product  string        `json:"product"`
	ID       types.OrderID `json:"id"`
	Side     types.Side    `json:"side"`
	Price    types.Price   `json:"price"`
	Filled   types.Volume  `json:"filled"`
	Resting  types.Volume  `json:"resting"`
	Owner    string        `json:"owner"`
}

func (m AddedMsg) Kind() string { return "ADDED" }
func (m AddedMsg) Seq() uint32  { return m.Sequence }

// DeletedMsg removes a resting order from the book named by Product.
type DeletedMsg struct {
	Sequence uint32        `json:"sequence"`
	Product  string        `json:"product"`
	ID       types.OrderID `json:"id"`
	Side     types.Side    `json:"side"`
}

func (m DeletedMsg) Kind() string { return "DELETED" }
func (m DeletedMsg) Seq() uint32  { return m.Sequence }

// TradeMsg reports a print against the book named by Product.
type TradeMsg struct {
	Sequence              uint32          `json:"sequence"`
	Product               string          `json:"product"`
	Price                 types.Price     `json:"price"`
	Volume                types.Volume    `json:"volume"`
	Buyer                 string          `json:"buyer"`
	Seller                string          `json:"seller"`
	TradeType             types.TradeType `json:"tradeType"`
	PassiveOrder          types.OrderID   `json:"passiveOrder"`
	PassiveOrderRemaining types.Volume    `json:"passiveOrderRemaining"`
	AggressorOrder        types.OrderID   `json:"aggressorOrder"`
}

func (m TradeMsg) Kind() string { return "TRADE" }
func (m TradeMsg) Seq() uint32  { return m.Sequence }

// SettlementMsg logs a settlement price. It does not, by itself, remove the
// book — only a paired TradingHaltMsg does.
type SettlementMsg struct {
	Sequence    uint32      `json:"sequence"`
	Product     string      `json:"product"`
	StationName string      `json:"stationName"`
	Expiry      string      `json:"expiry"`
	Price       types.Price `json:"price"`
}

func (m SettlementMsg) Kind() string { return "SETTLEMENT" }
func (m SettlementMsg) Seq() uint32  { return m.Sequence }

// IndexMsg logs a bundle definition. It causes no state change: bundling is
// inferred purely from expiry and station ordinal.
type IndexMsg struct {
	Sequence   uint32 `json:"sequence"`
	IndexID    int    `json:"indexId"`
	IndexName  string `json:"indexName"`
	StationIDs []int  `json:"stationIds"`
}

func (m IndexMsg) Kind() string { return "INDEX" }
func (m IndexMsg) Seq() uint32  { return m.Sequence }

// TradingHaltMsg removes the book named by Product.
type TradingHaltMsg struct {
	Sequence uint32 `json:"sequence"`
	Product  string `json:"product"`
}

func (m TradingHaltMsg) Kind() string { return "TRADING_HALT" }
func (m TradingHaltMsg) Seq() uint32  { return m.Sequence }

// AddMessage is the order submission payload sent to the execution endpoint.
// The arbitrage engine only ever produces IOC instances of this type.
type AddMessage struct {
	Type      string          `json:"type"`
	Product   string          `json:"product"`
	Price     types.Price     `json:"price"`
	Side      types.Side      `json:"side"`
	Volume    types.Volume    `json:"volume"`
	OrderType types.OrderType `json:"orderType"`
}

// NewIOC builds an IOC AddMessage, the only order type the arbitrage engine
// emits.
func NewIOC(product string, side types.Side, price types.Price, volume types.Volume) AddMessage {
	return AddMessage{
		Type:      "ADD",
		Product:   product,
		Price:     price,
		Side:      side,
		Volume:    volume,
		OrderType: types.IOC,
	}
}
