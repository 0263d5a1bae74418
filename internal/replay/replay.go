// Package replay owns the dictionary of books keyed by product and the
// live sequence counter, and is the single writer of both. It consumes a
// recovery snapshot once at startup, then live feed messages one at a
// time, enforcing strict sequence contiguity and routing each message to
// the book it targets.
package replay

import (
	"log/slog"
	"sync"

	"wxarb/pkg/types"

	"wxarb/internal/book"
	"wxarb/internal/feed"
)

// OnApplied is invoked once per successfully applied live message, after
// the book dictionary reflects it. The dispatcher uses this hook to rebuild
// its bundle index and run the arbitrage engine; replay itself never calls
// into the dispatcher directly, keeping the book dictionary single-writer
// and the dispatcher's gate state out of this package entirely.
type OnApplied func(msg feed.Message, product string)

// Engine is the replay state machine: the book dictionary and the last
// applied sequence number.
type Engine struct {
	// mu guards books and sequence against the dashboard/settlement-check
	// goroutines, which read across tasks via Snapshot/Sequence. The ingest
	// task (IngestRecovery/IngestLive) is the sole writer and holds mu only
	// for the duration of apply(); Books() itself stays unsynchronized for
	// same-goroutine callers like the dispatcher's hot path.
	mu           sync.RWMutex
	books        map[string]*book.Book
	sequence     uint32
	haveSequence bool
	selfUsername string
	logger       *slog.Logger
	onApplied    OnApplied
}

// BookView is an immutable, value-only description of one book's state,
// safe to read from any goroutine — unlike the live *book.Book pointers
// Books() hands out for the ingest task's own use.
type BookView struct {
	Product  string
	Station  types.Station
	Expiry   string
	Position book.Position
	BBO      book.BBO
}

// New creates an empty replay engine. selfUsername identifies which side of
// a trade or which owner of a resting order is "ours", for exposure and
// position bookkeeping.
func New(selfUsername string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		books:        make(map[string]*book.Book),
		selfUsername: selfUsername,
		logger:       logger.With("component", "replay"),
	}
}

// OnApplied registers the callback invoked after each live message is
// applied. Intended to be set once, before IngestLive is ever called.
func (e *Engine) OnApplied(fn OnApplied) { e.onApplied = fn }

// Books returns the live book dictionary. The caller must only read it and
// only from the same goroutine that calls IngestLive/IngestRecovery — use
// Snapshot instead from any other goroutine (dashboard handlers, the
// settlement observation check).
func (e *Engine) Books() map[string]*book.Book { return e.books }

// Snapshot returns a value-only view of every open book, safe to call from
// any goroutine. It blocks only as long as the ingest task takes to apply
// one message.
func (e *Engine) Snapshot() []BookView {
	e.mu.RLock()
	defer e.mu.RUnlock()

	views := make([]BookView, 0, len(e.books))
	for _, b := range e.books {
		views = append(views, BookView{
			Product:  b.Product,
			Station:  b.Station,
			Expiry:   b.Expiry,
			Position: b.Position,
			BBO:      b.BBO(),
		})
	}
	return views
}

// Sequence returns the last applied sequence number. Safe to call from any
// goroutine.
func (e *Engine) Sequence() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sequence
}

// IngestRecovery applies every message in a recovery snapshot, in order,
// under Phase Recovery. Recovery sequences are monotonic but need not be
// contiguous; the last one becomes the live baseline.
func (e *Engine) IngestRecovery(messages []feed.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, m := range messages {
		if err := e.apply(m, book.Recovery); err != nil {
			return err
		}
		e.sequence = m.Seq()
		e.haveSequence = true
	}
	return nil
}

// IngestLive applies a single live message under Phase Feed, enforcing
// strict sequence contiguity. It returns applied=false without error when
// the message is a duplicate (sequence at or below the last applied one),
// per the discard-idempotently rule.
func (e *Engine) IngestLive(m feed.Message) (applied bool, err error) {
	e.mu.Lock()
	next := e.sequence + 1
	if !e.haveSequence {
		next = m.Seq()
	}
	switch {
	case m.Seq() == next:
		// proceed
	case m.Seq() > next:
		e.mu.Unlock()
		return false, errSequenceGap(m.Seq(), next)
	default:
		e.logger.Debug("discarding duplicate message", "sequence", m.Seq(), "last_applied", e.sequence)
		e.mu.Unlock()
		return false, nil
	}

	if err := e.apply(m, book.Feed); err != nil {
		e.mu.Unlock()
		return false, err
	}
	e.sequence = m.Seq()
	e.haveSequence = true
	e.mu.Unlock()

	if e.onApplied != nil {
		e.onApplied(m, productOf(m))
	}
	return true, nil
}

func productOf(m feed.Message) string {
	switch v := m.(type) {
	case feed.FutureMsg:
		return v.Product
	case feed.AddedMsg:
		return v.Product
	case feed.DeletedMsg:
		return v.Product
	case feed.TradeMsg:
		return v.Product
	case feed.SettlementMsg:
		return v.Product
	case feed.TradingHaltMsg:
		return v.Product
	default:
		return ""
	}
}

func (e *Engine) apply(m feed.Message, phase book.Phase) error {
	switch v := m.(type) {
	case feed.FutureMsg:
		return e.applyFuture(v)
	case feed.AddedMsg:
		b, ok := e.books[v.Product]
		if !ok {
			return errUnknownProduct(v.Product)
		}
		return b.AddOrder(v, e.selfUsername)
	case feed.DeletedMsg:
		b, ok := e.books[v.Product]
		if !ok {
			return errUnknownProduct(v.Product)
		}
		return b.RemoveOrder(v, e.selfUsername)
	case feed.TradeMsg:
		b, ok := e.books[v.Product]
		if !ok {
			return errUnknownProduct(v.Product)
		}
		return b.ApplyTrade(v, e.selfUsername, phase)
	case feed.SettlementMsg:
		e.logger.Info("settlement", "product", v.Product, "price", v.Price.String())
		return nil
	case feed.IndexMsg:
		e.logger.Debug("index definition", "index_id", v.IndexID, "station_ids", v.StationIDs)
		return nil
	case feed.TradingHaltMsg:
		delete(e.books, v.Product)
		return nil
	default:
		return nil
	}
}

func (e *Engine) applyFuture(v feed.FutureMsg) error {
	if v.Expiry != v.HaltTime {
		return errFutureExpiryMismatch(v.Product, v.Expiry, v.HaltTime)
	}
	station, err := types.ParseStationID(v.StationID)
	if err != nil {
		return err
	}
	e.books[v.Product] = book.New(v.Product, station, v.Expiry, v.HaltTime)
	return nil
}
