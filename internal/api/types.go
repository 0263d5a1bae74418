package api

import (
	"time"

	"wxarb/internal/config"
)

// DashboardSnapshot represents the complete dashboard state.
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Books []BookStatus `json:"books"`

	Baskets BasketStats `json:"baskets"`

	Config ConfigSummary `json:"config"`
}

// BookStatus represents per-book state: top of ladder, own exposure, and
// whether the dispatcher currently has the book gated for firing.
type BookStatus struct {
	Product string `json:"product"`
	Station string `json:"station"`
	Expiry  string `json:"expiry"`

	BestBid    string `json:"best_bid,omitempty"`
	BestBidVol uint32 `json:"best_bid_volume,omitempty"`
	BestAsk    string `json:"best_ask,omitempty"`
	BestAskVol uint32 `json:"best_ask_volume,omitempty"`

	Position PositionSnapshot `json:"position"`

	Enabled     bool `json:"enabled"`
	PendingFill bool `json:"pending_fill"`
}

// PositionSnapshot represents a book's exposure and net position.
type PositionSnapshot struct {
	BidExposure uint32 `json:"bid_exposure"`
	AskExposure uint32 `json:"ask_exposure"`
	Position    int64  `json:"position"`
}

// BasketStats summarizes arbitrage activity since startup.
type BasketStats struct {
	Fired              uint64 `json:"fired"`
	LegsSubmitted      uint64 `json:"legs_submitted"`
	PositionRejections uint64 `json:"position_rejections"`
}

// ConfigSummary represents the operationally relevant slice of
// configuration, safe to expose on the dashboard.
type ConfigSummary struct {
	DryRun            bool   `json:"dry_run"`
	EpsilonCents      int64  `json:"epsilon_cents"`
	PositionLimit     int64  `json:"position_limit"`
	SubmissionTimeout string `json:"submission_timeout"`
}

// NewConfigSummary creates a config summary from config.
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		DryRun:            cfg.DryRun,
		EpsilonCents:      cfg.Dispatcher.EpsilonCents,
		PositionLimit:     cfg.Dispatcher.PositionLimit,
		SubmissionTimeout: cfg.Dispatcher.SubmissionTimeout.String(),
	}
}
