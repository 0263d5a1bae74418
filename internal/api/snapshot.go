package api

import (
	"time"

	"wxarb/internal/config"
)

// BookSnapshotProvider supplies the dashboard with a point-in-time view of
// every open book and cumulative basket activity. The engine implements
// this by reading the replay engine's book dictionary and the dispatcher's
// counters.
type BookSnapshotProvider interface {
	GetBooksSnapshot() []BookStatus
	GetBasketStats() BasketStats
}

// BuildSnapshot aggregates state from the provider into a dashboard snapshot.
func BuildSnapshot(provider BookSnapshotProvider, cfg config.Config) DashboardSnapshot {
	return DashboardSnapshot{
		Timestamp: time.Now(),
		Books:     provider.GetBooksSnapshot(),
		Baskets:   provider.GetBasketStats(),
		Config:    NewConfigSummary(cfg),
	}
}
