// Package engine is the central orchestrator of the weather-arbitrage
// trader.
//
// It wires together all subsystems:
//
//  1. RecoveryClient fetches the startup snapshot; the replay engine applies
//     it under Recovery phase to rebuild every open book.
//  2. FeedReader streams live feed frames; the replay engine applies them
//     under Feed phase with strict sequence contiguity.
//  3. Dispatcher, attached to the replay engine's OnApplied hook, groups
//     books into expiry bundles and invokes the arbitrage search after every
//     applied message, firing IOC baskets through SubmissionClient.
//  4. Store periodically snapshots sequence/position state for diagnostics.
//  5. The optional dashboard API server exposes book/basket status over
//     HTTP and WebSocket.
//
// Lifecycle: New() → Start() → [runs until SIGINT] → Stop()
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"wxarb/pkg/types"

	"wxarb/internal/api"
	"wxarb/internal/config"
	"wxarb/internal/dispatcher"
	"wxarb/internal/exchange"
	"wxarb/internal/feed"
	"wxarb/internal/metrics"
	"wxarb/internal/replay"
	"wxarb/internal/store"
)

// selfUsername identifies the trader's own orders in the book's exposure
// accounting; it must match the owner field the execution endpoint stamps
// onto our own Added messages.
const selfUsername = "self"

const snapshotInterval = 30 * time.Second

// Engine orchestrates all components of the arbitrage trader. It owns the
// lifecycle of all goroutines and exposes the book/basket state consumed by
// the dashboard.
type Engine struct {
	cfg config.Config

	replay     *replay.Engine
	dispatcher *dispatcher.Dispatcher

	recovery    *exchange.RecoveryClient
	feedReader  *exchange.FeedReader
	submission  *exchange.SubmissionClient
	observation *exchange.ObservationClient

	store *store.Store

	apiServer *api.Server

	basketsFired  atomic.Uint64
	legsSubmitted atomic.Uint64

	dashboardEvents chan api.DashboardEvent

	fatal    chan error
	fatalSet atomic.Bool

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires all engine components.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	var dashEvents chan api.DashboardEvent
	if cfg.Dashboard.Enabled {
		dashEvents = make(chan api.DashboardEvent, 100)
	}

	e := &Engine{
		cfg:             cfg,
		recovery:        exchange.NewRecoveryClient(cfg.Feed.RecoveryURL),
		submission:      exchange.NewSubmissionClient(cfg.Submission.URL, cfg.DryRun, logger),
		observation:     exchange.NewObservationClient(cfg.Feed.ObservationURL),
		store:           st,
		dashboardEvents: dashEvents,
		fatal:           make(chan error, 1),
		logger:          logger.With("component", "engine"),
		ctx:             ctx,
		cancel:          cancel,
	}

	e.replay = replay.New(selfUsername, logger)
	e.feedReader = exchange.NewFeedReader(cfg.Feed.LiveURL, e.onLiveFrame, e.onFatalFeedError, logger)

	epsilon := types.Price(cfg.Dispatcher.EpsilonCents)
	creds := dispatcher.Credentials{Username: cfg.Submission.Username, Password: cfg.Submission.Password}
	e.dispatcher = dispatcher.New(e.replay, e.submission, creds, epsilon, logger)
	e.dispatcher.OnBasketFired(e.recordBasketFired)

	if cfg.Dashboard.Enabled {
		e.apiServer = api.NewServer(cfg.Dashboard, e, cfg, logger)
	}

	return e, nil
}

// Start fetches the recovery snapshot, attaches the dispatcher, then
// launches the live feed reader, the periodic snapshot writer, and (if
// enabled) the dashboard server. It blocks only long enough to complete
// recovery; everything else runs in background goroutines.
func (e *Engine) Start() error {
	snapshot, err := e.recovery.Fetch(e.ctx)
	if err != nil {
		return fmt.Errorf("fetch recovery snapshot: %w", err)
	}
	if err := e.replay.IngestRecovery(snapshot); err != nil {
		return fmt.Errorf("ingest recovery snapshot: %w", err)
	}
	e.logger.Info("recovery complete", "messages", len(snapshot), "sequence", e.replay.Sequence())

	e.dispatcher.Attach()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.feedReader.Run(e.ctx); err != nil && e.ctx.Err() == nil {
			e.logger.Error("feed reader stopped", "error", err)
		}
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.periodicSnapshot()
	}()

	if e.apiServer != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.apiServer.Start(); err != nil {
				e.logger.Error("dashboard server error", "error", err)
			}
		}()
	}

	return nil
}

// onLiveFrame feeds one decoded live frame to the replay engine. A sequence
// gap is fatal to the whole process, not just the connection — it means the
// replica has diverged and can only be corrected by a full restart and a
// fresh recovery fetch, so it is reported through onFatalFeedError rather
// than triggering a reconnect.
func (e *Engine) onLiveFrame(msg feed.Message) {
	if msg.Kind() == "SETTLEMENT" {
		e.observeSettlement(msg)
	}

	applied, err := e.replay.IngestLive(msg)
	if err != nil {
		if errors.Is(err, types.ErrSequenceGap) {
			metrics.FeedGapsTotal.Inc()
		}
		e.onFatalFeedError(err)
		return
	}
	if !applied {
		e.logger.Debug("duplicate sequence discarded", "kind", msg.Kind(), "seq", msg.Seq())
	}
}

// onFatalFeedError logs a fatal feed condition (sequence gap or malformed
// frame), surfaces it once on the Fatal channel for main to observe, and
// cancels the engine's context so every background goroutine — including
// the feed reader's reconnect loop — winds down instead of continuing on
// divergent state.
func (e *Engine) onFatalFeedError(err error) {
	e.logger.Error("fatal feed error, sequence gap or decode failure", "error", err)
	if e.fatalSet.CompareAndSwap(false, true) {
		e.fatal <- err
	}
	e.cancel()
}

// Fatal reports a channel that receives a single error if the feed hits a
// fatal condition (sequence gap or malformed frame) requiring a full
// process restart. main selects on this alongside the OS signal channel.
func (e *Engine) Fatal() <-chan error {
	return e.fatal
}

// observeSettlement fetches the current weather reading for the settling
// station and logs it next to the settlement price, purely as a diagnostic
// cross-check; it never feeds back into book or position state.
func (e *Engine) observeSettlement(msg feed.Message) {
	settlement, ok := msg.(feed.SettlementMsg)
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, view := range e.replay.Snapshot() {
			if view.Product != settlement.Product {
				continue
			}
			stationID, err := stationWireID(view.Station)
			if err != nil {
				return
			}
			obs, err := e.observation.Fetch(ctx, stationID)
			if err != nil {
				e.logger.Warn("observation fetch failed at settlement", "product", settlement.Product, "error", err)
				return
			}
			e.logger.Info("settlement observation check",
				"product", settlement.Product, "settlement_price", settlement.Price,
				"observed_value", obs.Value, "observed_unit", obs.Unit)
			return
		}
	}()
}

func stationWireID(s types.Station) (int, error) {
	switch s {
	case types.SydAirport:
		return 66037, nil
	case types.SydOlympicPark:
		return 66212, nil
	case types.CanberraAirport:
		return 70351, nil
	case types.Index:
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown station %v", s)
	}
}

func (e *Engine) recordBasketFired(basket []feed.AddMessage) {
	e.basketsFired.Add(1)
	e.legsSubmitted.Add(uint64(len(basket)))

	if e.dashboardEvents == nil {
		return
	}
	product := make([]string, len(basket))
	side := make([]types.Side, len(basket))
	price := make([]types.Price, len(basket))
	volume := make([]types.Volume, len(basket))
	for i, leg := range basket {
		product[i], side[i], price[i], volume[i] = leg.Product, leg.Side, leg.Price, leg.Volume
	}
	e.emitDashboardEvent(api.DashboardEvent{
		Type:      "basket",
		Timestamp: time.Now(),
		Data:      api.NewBasketEvent(product, side, price, volume),
	})
}

func (e *Engine) emitDashboardEvent(evt api.DashboardEvent) {
	if e.dashboardEvents == nil {
		return
	}
	select {
	case e.dashboardEvents <- evt:
	default:
		e.logger.Warn("dashboard event channel full, dropping event")
	}
}

// periodicSnapshot writes a diagnostic snapshot of sequence/position state
// at a fixed interval, purely for operator visibility on a crash — never
// read back into replay state.
func (e *Engine) periodicSnapshot() {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.writeSnapshot()
		}
	}
}

func (e *Engine) writeSnapshot() {
	views := e.replay.Snapshot()
	positions := make(map[string]store.PositionRecord, len(views))
	for _, view := range views {
		positions[view.Product] = store.PositionRecord{
			BidExposure: view.Position.BidExposure,
			AskExposure: view.Position.AskExposure,
			Position:    view.Position.Position,
		}
	}
	snap := store.Snapshot{Sequence: e.replay.Sequence(), Positions: positions}
	if err := e.store.SaveSnapshot(snap); err != nil {
		e.logger.Error("failed to save diagnostic snapshot", "error", err)
	}
}

// Stop gracefully shuts down: cancels all contexts, persists a final
// snapshot, waits for goroutines, and closes resources.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")

	e.cancel()

	if e.apiServer != nil {
		if err := e.apiServer.Stop(); err != nil {
			e.logger.Error("failed to stop dashboard server", "error", err)
		}
	}

	e.writeSnapshot()

	e.wg.Wait()

	e.store.Close()
	if e.dashboardEvents != nil {
		close(e.dashboardEvents)
	}

	e.logger.Info("shutdown complete")
}

// DashboardEvents returns the dashboard event channel (nil if disabled),
// satisfying api.EventSource.
func (e *Engine) DashboardEvents() <-chan api.DashboardEvent {
	return e.dashboardEvents
}

// GetBooksSnapshot returns the current state of every open book, satisfying
// api.BookSnapshotProvider.
func (e *Engine) GetBooksSnapshot() []api.BookStatus {
	views := e.replay.Snapshot()
	result := make([]api.BookStatus, 0, len(views))
	for _, view := range views {
		result = append(result, e.bookStatus(view))
	}
	return result
}

func (e *Engine) bookStatus(view replay.BookView) api.BookStatus {
	status := api.BookStatus{
		Product: view.Product,
		Station: view.Station.String(),
		Expiry:  view.Expiry,
		Position: api.PositionSnapshot{
			BidExposure: uint32(view.Position.BidExposure),
			AskExposure: uint32(view.Position.AskExposure),
			Position:    view.Position.Position,
		},
	}
	if view.BBO.Bid != nil {
		status.BestBid = view.BBO.Bid.Price.String()
		status.BestBidVol = uint32(view.BBO.Bid.Volume)
	}
	if view.BBO.Ask != nil {
		status.BestAsk = view.BBO.Ask.Price.String()
		status.BestAskVol = uint32(view.BBO.Ask.Volume)
	}
	status.Enabled, status.PendingFill = e.dispatcher.GateStatus(view.Product)
	return status
}

// GetBasketStats returns cumulative basket activity, satisfying
// api.BookSnapshotProvider.
func (e *Engine) GetBasketStats() api.BasketStats {
	return api.BasketStats{
		Fired:              e.basketsFired.Load(),
		LegsSubmitted:      e.legsSubmitted.Load(),
		PositionRejections: counterVecTotal(metrics.PositionLimitRejectionsTotal),
	}
}

// counterVecTotal sums a CounterVec's current value across every label
// combination seen so far, for exposing a single aggregate figure to the
// dashboard without threading a second counter through the dispatcher.
func counterVecTotal(vec prometheus.Collector) uint64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		vec.Collect(ch)
		close(ch)
	}()
	var total float64
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			continue
		}
		total += pb.GetCounter().GetValue()
	}
	return uint64(total)
}
