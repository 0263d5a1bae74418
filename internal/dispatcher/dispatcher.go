// Package dispatcher groups books into expiry bundles, gates them by
// position limits and outstanding fills, invokes the arbitrage engine after
// every applied feed message, and fires the resulting IOC baskets
// concurrently. The gate state (enabled/pending_fills) is the only
// structure this package shares with submission goroutines; the book
// dictionary itself stays exclusive to the replay engine.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"wxarb/pkg/types"

	"wxarb/internal/arbitrage"
	"wxarb/internal/book"
	"wxarb/internal/feed"
	"wxarb/internal/metrics"
	"wxarb/internal/replay"
)

// PositionLimit is the symmetric per-book exposure bound applied to every
// leg of a candidate basket before it is allowed to fire.
const PositionLimit int64 = 1000

// Credentials are immutable, per-submission copies of the execution
// endpoint's username/password. Submission tasks never touch any shared
// mutable state besides the gate maps.
type Credentials struct {
	Username string
	Password string
}

// Ack is the outcome of a single order submission.
type Ack struct {
	OrderID      types.OrderID
	FilledVolume types.Volume
}

// Submitter sends one IOC order to the execution endpoint and reports its
// ack. Implementations must be safe to call concurrently.
type Submitter interface {
	Submit(ctx context.Context, msg feed.AddMessage, creds Credentials) (Ack, error)
}

// Dispatcher owns the enabled/pending_fills gate maps and the expiry bundle
// index. It is driven synchronously by replay.Engine's OnApplied hook, on
// the same goroutine as message ingestion; submission itself runs as
// fire-and-forget goroutines guarded only by gateMu.
type Dispatcher struct {
	replay    *replay.Engine
	submitter Submitter
	creds     Credentials
	epsilon   types.Price
	logger    *slog.Logger

	gateMu       sync.Mutex
	enabled      map[string]bool
	pendingFills map[string]types.OrderID

	bundles map[string]book.Bundle // keyed by expiry

	onBasketFired func(basket []feed.AddMessage)
}

// New creates a dispatcher wired to a replay engine and a submission
// backend. Call Attach to register it as the replay engine's OnApplied
// callback.
func New(r *replay.Engine, submitter Submitter, creds Credentials, epsilon types.Price, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		replay:       r,
		submitter:    submitter,
		creds:        creds,
		epsilon:      epsilon,
		logger:       logger.With("component", "dispatcher"),
		enabled:      make(map[string]bool),
		pendingFills: make(map[string]types.OrderID),
		bundles:      make(map[string]book.Bundle),
	}
}

// Attach enables every book already present from the recovery snapshot,
// then registers the dispatcher as the replay engine's message-applied
// hook. Recovery never calls onApplied (see replay.IngestRecovery), and the
// live feed only carries Added/Deleted/Trade for products that already
// exist — never a fresh FutureMsg for them — so a recovered book must start
// enabled rather than wait for an enabling event that will never arrive.
func (d *Dispatcher) Attach() {
	d.enableExisting()
	d.replay.OnApplied(d.onApplied)
}

func (d *Dispatcher) enableExisting() {
	d.gateMu.Lock()
	defer d.gateMu.Unlock()
	for product := range d.replay.Books() {
		d.enabled[product] = true
	}
}

// OnBasketFired registers a callback invoked synchronously whenever a
// basket passes its position-limit check and is about to be submitted.
// Used by the dashboard to track cumulative basket activity; optional.
func (d *Dispatcher) OnBasketFired(fn func(basket []feed.AddMessage)) {
	d.onBasketFired = fn
}

func (d *Dispatcher) onApplied(msg feed.Message, product string) {
	switch v := msg.(type) {
	case feed.FutureMsg:
		d.setEnabled(product, true)
	case feed.TradingHaltMsg:
		d.forget(product)
	case feed.TradeMsg:
		d.clearPendingFillIfMatched(v)
	}

	d.rebuildBundles()
	d.evaluateBundles()
}

func (d *Dispatcher) setEnabled(product string, enabled bool) {
	d.gateMu.Lock()
	d.enabled[product] = enabled
	d.gateMu.Unlock()
}

func (d *Dispatcher) forget(product string) {
	d.gateMu.Lock()
	delete(d.enabled, product)
	delete(d.pendingFills, product)
	d.gateMu.Unlock()
}

func (d *Dispatcher) clearPendingFillIfMatched(trade feed.TradeMsg) {
	d.gateMu.Lock()
	defer d.gateMu.Unlock()
	pending, ok := d.pendingFills[trade.Product]
	if ok && pending == trade.AggressorOrder {
		delete(d.pendingFills, trade.Product)
	}
}

// rebuildBundles regroups every currently-open book by expiry. It runs on
// the same goroutine as message ingestion, so it sees a consistent
// dictionary snapshot between messages.
func (d *Dispatcher) rebuildBundles() {
	bundles := make(map[string]book.Bundle)
	for _, b := range d.replay.Books() {
		bundle := bundles[b.Expiry]
		bundle[b.Station] = b
		bundles[b.Expiry] = bundle
	}
	d.bundles = bundles
	metrics.BooksActive.Set(float64(len(d.replay.Books())))
	metrics.SequencePosition.Set(float64(d.replay.Sequence()))
}

func (d *Dispatcher) evaluateBundles() {
	for _, bundle := range d.bundles {
		if !bundle.Complete() {
			continue
		}
		if !d.allGated(bundle) {
			continue
		}
		basket := arbitrage.Find(bundle, d.epsilon)
		if len(basket) == 0 {
			continue
		}
		d.fire(bundle, basket)
	}
}

// GateStatus reports a single book's current gate state, for dashboard
// consumption. It takes the same lock as the hot path, so callers should
// poll rather than hold a reference across time.
func (d *Dispatcher) GateStatus(product string) (enabled, pendingFill bool) {
	d.gateMu.Lock()
	defer d.gateMu.Unlock()
	enabled = d.enabled[product]
	_, pendingFill = d.pendingFills[product]
	return enabled, pendingFill
}

// allGated reports whether every book in the bundle is enabled and has no
// outstanding pending fill.
func (d *Dispatcher) allGated(bundle book.Bundle) bool {
	d.gateMu.Lock()
	defer d.gateMu.Unlock()
	for _, b := range bundle {
		if !d.enabled[b.Product] {
			return false
		}
		if _, pending := d.pendingFills[b.Product]; pending {
			return false
		}
	}
	return true
}

// fire pre-checks position limits for every leg, and only if the entire
// basket passes does it disable the involved books and submit all four
// orders concurrently. A basket is never submitted partially.
func (d *Dispatcher) fire(bundle book.Bundle, basket []feed.AddMessage) {
	booksByProduct := make(map[string]*book.Book, len(bundle))
	for _, b := range bundle {
		booksByProduct[b.Product] = b
	}

	for _, order := range basket {
		b, ok := booksByProduct[order.Product]
		if !ok {
			continue
		}
		if breachesLimit(b.Position.Position, order.Side, order.Volume) {
			d.setEnabled(order.Product, false)
			metrics.PositionLimitRejectionsTotal.WithLabelValues(b.Station.String()).Inc()
			d.logger.Warn("position limit breach, abandoning basket",
				"product", order.Product, "position", b.Position.Position, "order_volume", order.Volume)
			return
		}
	}

	d.gateMu.Lock()
	for _, order := range basket {
		d.enabled[order.Product] = false
	}
	d.gateMu.Unlock()

	metrics.BasketsFiredTotal.Inc()
	if d.onBasketFired != nil {
		d.onBasketFired(basket)
	}
	for _, order := range basket {
		metrics.BasketLegsTotal.WithLabelValues(string(order.Side)).Inc()
		go d.submit(order)
	}
}

// breachesLimit projects the book's position after the order fills and
// checks it against the limit on the side the book already holds: a long
// book breaches only above +PositionLimit, a short book only below
// -PositionLimit, and a flat book never breaches.
func breachesLimit(position int64, side types.Side, volume types.Volume) bool {
	delta := int64(volume)
	if side == types.Sell {
		delta = -delta
	}
	projected := position + delta
	switch {
	case position > 0:
		return projected > PositionLimit
	case position < 0:
		return projected < -PositionLimit
	default:
		return false
	}
}

func (d *Dispatcher) submit(order feed.AddMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	ack, err := d.submitter.Submit(ctx, order, d.creds)
	metrics.SubmissionLatencySeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		d.logger.Error("order submission failed", "product", order.Product, "error", err)
		d.setEnabled(order.Product, true)
		return
	}

	if ack.FilledVolume > 0 {
		d.gateMu.Lock()
		d.pendingFills[order.Product] = ack.OrderID
		d.gateMu.Unlock()
	}
	d.setEnabled(order.Product, true)
}
