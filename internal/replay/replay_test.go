package replay

import (
	"errors"
	"testing"

	"wxarb/pkg/types"

	"wxarb/internal/feed"
)

func newEngine() *Engine { return New("self", nil) }

func futureMsg(seq uint32, product string, stationID int) feed.FutureMsg {
	return feed.FutureMsg{
		Sequence:    seq,
		Product:     product,
		StationID:   stationID,
		StationName: "x",
		Expiry:      "2024-12-01",
		HaltTime:    "2024-12-01",
	}
}

func TestIngestRecoverySetsBaselineSequence(t *testing.T) {
	t.Parallel()
	e := newEngine()
	msgs := []feed.Message{
		futureMsg(10, "P", 66037),
		feed.AddedMsg{Sequence: 11, Product: "P", ID: 1, Side: types.Buy, Price: 100, Resting: 5, Owner: "self"},
	}
	if err := e.IngestRecovery(msgs); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if e.Sequence() != 11 {
		t.Errorf("sequence = %d, want 11", e.Sequence())
	}
	if _, ok := e.Books()["P"]; !ok {
		t.Fatal("expected book P to exist after recovery")
	}
}

// S6 — sequence gap fatal.
func TestIngestLiveSequenceGapIsFatal(t *testing.T) {
	t.Parallel()
	e := newEngine()
	if err := e.IngestRecovery([]feed.Message{futureMsg(1, "P", 66037)}); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if _, err := e.IngestLive(feed.AddedMsg{Sequence: 2, Product: "P", ID: 1, Side: types.Buy, Price: 100, Resting: 1, Owner: "x"}); err != nil {
		t.Fatalf("seq 2: %v", err)
	}
	_, err := e.IngestLive(feed.TradingHaltMsg{Sequence: 4, Product: "P"})
	if !errors.Is(err, types.ErrSequenceGap) {
		t.Fatalf("expected sequence gap error, got %v", err)
	}
}

func TestIngestLiveDuplicateDiscarded(t *testing.T) {
	t.Parallel()
	e := newEngine()
	if err := e.IngestRecovery([]feed.Message{futureMsg(1, "P", 66037)}); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	applied, err := e.IngestLive(feed.AddedMsg{Sequence: 2, Product: "P", ID: 1, Side: types.Buy, Price: 100, Resting: 1, Owner: "x"})
	if err != nil || !applied {
		t.Fatalf("applied=%v err=%v", applied, err)
	}
	applied, err = e.IngestLive(feed.AddedMsg{Sequence: 2, Product: "P", ID: 1, Side: types.Buy, Price: 100, Resting: 1, Owner: "x"})
	if err != nil {
		t.Fatalf("duplicate should not error: %v", err)
	}
	if applied {
		t.Error("duplicate message should not be applied")
	}
}

func TestTradingHaltRemovesBook(t *testing.T) {
	t.Parallel()
	e := newEngine()
	if err := e.IngestRecovery([]feed.Message{futureMsg(1, "P", 66037)}); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if _, err := e.IngestLive(feed.TradingHaltMsg{Sequence: 2, Product: "P"}); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if _, ok := e.Books()["P"]; ok {
		t.Error("book should have been removed by trading halt")
	}
}

func TestSettlementDoesNotRemoveBook(t *testing.T) {
	t.Parallel()
	e := newEngine()
	if err := e.IngestRecovery([]feed.Message{futureMsg(1, "P", 66037)}); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if _, err := e.IngestLive(feed.SettlementMsg{Sequence: 2, Product: "P", Price: 100}); err != nil {
		t.Fatalf("settlement: %v", err)
	}
	if _, ok := e.Books()["P"]; !ok {
		t.Error("settlement alone must not remove the book")
	}
}

// TestSnapshotMatchesLiveBooks checks that Snapshot's value copies agree
// with the live book dictionary Books() exposes, and that mutating a book
// after taking a snapshot doesn't retroactively change the already-taken
// view — the whole point of handing background goroutines copies instead
// of the live *book.Book pointers.
func TestSnapshotMatchesLiveBooks(t *testing.T) {
	t.Parallel()
	e := newEngine()
	if err := e.IngestRecovery([]feed.Message{futureMsg(1, "P", 66037)}); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if _, err := e.IngestLive(feed.AddedMsg{Sequence: 2, Product: "P", ID: 1, Side: types.Sell, Price: 150, Resting: 5, Owner: "other"}); err != nil {
		t.Fatalf("added: %v", err)
	}

	views := e.Snapshot()
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	view := views[0]
	live := e.Books()["P"]
	if view.Product != live.Product || view.Station != live.Station || view.Expiry != live.Expiry {
		t.Fatalf("snapshot %+v does not match live book %+v", view, live)
	}
	if view.BBO.Ask == nil || view.BBO.Ask.Price != 150 {
		t.Errorf("snapshot ask = %+v, want price 150", view.BBO.Ask)
	}

	if _, err := e.IngestLive(feed.TradingHaltMsg{Sequence: 3, Product: "P"}); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if len(views) != 1 || views[0].Product != "P" {
		t.Error("a previously taken snapshot must not change after the live book is removed")
	}
	if len(e.Snapshot()) != 0 {
		t.Error("a fresh snapshot after the halt should see zero books")
	}
}

func TestAddedRoutesToUnknownProductFails(t *testing.T) {
	t.Parallel()
	e := newEngine()
	_, err := e.IngestLive(feed.AddedMsg{Sequence: 1, Product: "NOPE", ID: 1, Side: types.Buy, Price: 1, Resting: 1, Owner: "x"})
	if !errors.Is(err, types.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestOnAppliedCallbackFiresWithProduct(t *testing.T) {
	t.Parallel()
	e := newEngine()
	var gotProduct string
	var gotKind string
	e.OnApplied(func(m feed.Message, product string) {
		gotProduct = product
		gotKind = m.Kind()
	})
	if err := e.IngestRecovery([]feed.Message{futureMsg(1, "P", 66037)}); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if _, err := e.IngestLive(feed.TradingHaltMsg{Sequence: 2, Product: "P"}); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if gotProduct != "P" || gotKind != "TRADING_HALT" {
		t.Errorf("callback got product=%q kind=%q", gotProduct, gotKind)
	}
}

func TestFutureExpiryHaltTimeMismatchFails(t *testing.T) {
	t.Parallel()
	e := newEngine()
	bad := futureMsg(1, "P", 66037)
	bad.HaltTime = "2099-01-01"
	_, err := e.IngestLive(bad)
	if !errors.Is(err, types.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

// Idempotence: replaying an identical recovery snapshot yields identical
// book state.
func TestRecoveryIdempotent(t *testing.T) {
	t.Parallel()
	msgs := []feed.Message{
		futureMsg(1, "P", 66037),
		feed.AddedMsg{Sequence: 2, Product: "P", ID: 1, Side: types.Buy, Price: 100, Resting: 5, Owner: "self"},
	}
	e1 := newEngine()
	if err := e1.IngestRecovery(msgs); err != nil {
		t.Fatalf("e1 recovery: %v", err)
	}
	e2 := newEngine()
	if err := e2.IngestRecovery(msgs); err != nil {
		t.Fatalf("e2 recovery: %v", err)
	}
	b1 := e1.Books()["P"]
	b2 := e2.Books()["P"]
	if b1.Position.BidExposure != b2.Position.BidExposure {
		t.Errorf("exposure mismatch: %d vs %d", b1.Position.BidExposure, b2.Position.BidExposure)
	}
	if len(b1.Orders) != len(b2.Orders) {
		t.Errorf("order count mismatch: %d vs %d", len(b1.Orders), len(b2.Orders))
	}
}
