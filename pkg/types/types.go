// Package types defines the numeric and enum vocabulary shared by every
// layer of the replica: fixed-point prices, volumes, sides, and the fixed
// station enum. It has no dependencies on internal packages, so it can be
// imported by the wire codec, the book, the arbitrage engine, and the
// dispatcher alike.
package types

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Error kind sentinels. These are wrapped (via fmt.Errorf with %w) by every
// error raised in the replica so callers — ultimately the top-level engine
// loop — can tell fatal conditions from recoverable ones with errors.Is,
// without the book/replay/dispatcher packages importing each other's error
// types.
var (
	// ErrDecode marks malformed wire data: unknown tags, unknown station
	// IDs, sub-hundredth prices, or out-of-range values. Fatal.
	ErrDecode = errors.New("decode")

	// ErrSequenceGap marks a live message whose sequence skips ahead of the
	// last applied sequence. Fatal.
	ErrSequenceGap = errors.New("sequence gap")

	// ErrInvariant marks a divergent replica: an unknown order ID, a price
	// mismatch on a trade, or a passive-remainder mismatch. Fatal.
	ErrInvariant = errors.New("invariant violation")

	// ErrSubmission marks a recoverable failure of the order submission
	// endpoint (network error, non-2xx, timeout). The book is re-enabled.
	ErrSubmission = errors.New("submission failed")

	// ErrSubmissionDecode marks a recoverable failure decoding a submission
	// response. Treated as an unfilled order.
	ErrSubmissionDecode = errors.New("submission response decode failed")
)

// Price is a non-negative amount in hundredths of a unit, backed by an
// unsigned 16-bit integer. It is totally ordered via plain integer
// comparison, which is why the ladder and the arbitrage engine never
// compare floats.
type Price uint16

// hundred is the fixed-point scale: one unit = 100 hundredths.
const hundred = 100

// NewPriceFromHundredths builds a Price directly from an integer count of
// hundredths, skipping decimal parsing.
func NewPriceFromHundredths(h uint16) Price { return Price(h) }

// Add is total: the sum of any two representable prices never needs to
// reject a result, since the index theoretical price (sum of three
// underlyings) stays well inside uint16 range for this exchange's contracts.
func (p Price) Add(o Price) Price { return p + o }

// Sub requires a non-negative result; subtracting a larger price from a
// smaller one is a caller bug, not a recoverable state.
func (p Price) Sub(o Price) (Price, error) {
	if o > p {
		return 0, fmt.Errorf("price subtraction underflow: %d - %d", p, o)
	}
	return p - o, nil
}

// Less reports whether p sorts before o (ascending price order).
func (p Price) Less(o Price) bool { return p < o }

// Float64 returns the price as a float for display/dashboard purposes only;
// it is never used in a comparison or invariant check.
func (p Price) Float64() float64 { return float64(p) / hundred }

// String renders the price as a two-decimal string, e.g. "34.50".
func (p Price) String() string {
	return decimal.New(int64(p), -2).StringFixed(2)
}

// MarshalJSON encodes the price as a quoted two-decimal string.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string ("34.50") or a bare
// JSON number (34.50) — feeds vary on which they emit, and both decode to
// the same hundredths amount since the underlying bytes are the same
// decimal text either way.
func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: price %q: %v", ErrDecode, s, err)
	}
	if d.IsNegative() {
		return fmt.Errorf("%w: price %q is negative", ErrDecode, s)
	}
	hundredths := d.Shift(2)
	if !hundredths.IsInteger() {
		return fmt.Errorf("%w: price %q has sub-hundredth precision", ErrDecode, s)
	}
	iv := hundredths.IntPart()
	if iv > math.MaxUint16 {
		return fmt.Errorf("%w: price %q exceeds representable range", ErrDecode, s)
	}
	*p = Price(uint16(iv))
	return nil
}

// Volume is a non-negative traded or resting quantity, with saturating/checked
// arithmetic.
type Volume uint32

// MaxVolume is the largest representable Volume, the value Add saturates
// at. The arbitrage engine takes its per-level minimum directly from the
// three underlying levels and does not start from this value.
const MaxVolume Volume = math.MaxUint32

// Add saturates at MaxVolume instead of wrapping.
func (v Volume) Add(o Volume) Volume {
	sum := uint64(v) + uint64(o)
	if sum > uint64(MaxVolume) {
		return MaxVolume
	}
	return Volume(sum)
}

// Sub returns an error instead of wrapping when the subtrahend exceeds v.
func (v Volume) Sub(o Volume) (Volume, error) {
	if o > v {
		return 0, fmt.Errorf("volume subtraction underflow: %d - %d", v, o)
	}
	return v - o, nil
}

// Min returns the smaller of v and o.
func (v Volume) Min(o Volume) Volume {
	if o < v {
		return o
	}
	return v
}

// Side is the direction of an order: BUY or SELL.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the other side, used to find the passive side of a trade
// (the opposite of the aggressor).
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType enumerates the lifecycles the submission endpoint accepts.
// Arbitrage baskets always submit IOC; DAY exists only because the wire
// format names it as a possibility for other order flow.
type OrderType string

const (
	Day OrderType = "DAY"
	IOC OrderType = "IOC"
)

// TradeType distinguishes which side of a print was the aggressor, or marks
// it as an off-book broker print.
type TradeType string

const (
	SellAggressor TradeType = "SELL_AGGRESSOR"
	BuyAggressor  TradeType = "BUY_AGGRESSOR"
	BrokerTrade   TradeType = "BROKER_TRADE"
)

// Station identifies which of the three underlying weather stations — or
// the Index itself — a product belongs to. The ordinal is fixed and is used
// directly as an array index when building a bundle, replacing a runtime
// map lookup in the hot path.
type Station int

const (
	SydAirport Station = iota
	SydOlympicPark
	CanberraAirport
	Index
)

// NumStations is the width of a station-indexed array.
const NumStations = 4

func (s Station) String() string {
	switch s {
	case SydAirport:
		return "SydAirport"
	case SydOlympicPark:
		return "SydOlympicPark"
	case CanberraAirport:
		return "CanberraAirport"
	case Index:
		return "Index"
	default:
		return fmt.Sprintf("Station(%d)", int(s))
	}
}

// ParseStationID decodes the exchange's external station ID into the fixed
// enum. Unknown IDs are a decode error.
func ParseStationID(id int) (Station, error) {
	switch id {
	case 66037:
		return SydAirport, nil
	case 66212:
		return SydOlympicPark, nil
	case 70351:
		return CanberraAirport, nil
	case 1:
		return Index, nil
	default:
		return 0, fmt.Errorf("%w: unknown station id %d", ErrDecode, id)
	}
}

// OrderID is the exchange-assigned identifier for a resting order. It is
// unique within the lifetime of the replica's order map. Assumed numeric on
// the wire, matching every sample frame observed; a non-numeric ID would
// fail Decode rather than silently truncate.
type OrderID uint64

// PriceLevel is a (price, volume) pair, the unit the ladder and the
// arbitrage engine's cursor walk both operate on. The zero value (0, 0) is the
// "no level" cursor state used between levels during a ladder walk.
type PriceLevel struct {
	Price  Price
	Volume Volume
}

// Empty reports whether this level has no remaining volume.
func (l PriceLevel) Empty() bool { return l.Volume == 0 }
