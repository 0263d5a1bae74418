// Package metrics exposes the Prometheus collectors for the replica and the
// arbitrage dispatcher: feed health, book population, and basket outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// SequencePosition tracks the last applied live sequence number.
	SequencePosition = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wxarb_sequence_position",
		Help: "Last applied live feed sequence number.",
	})

	// BooksActive tracks how many products currently have a live book.
	BooksActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wxarb_books_active",
		Help: "Number of products with a currently open book.",
	})

	// FeedGapsTotal counts fatal sequence gaps observed on the live feed.
	FeedGapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wxarb_feed_gaps_total",
		Help: "Fatal sequence gaps observed on the live feed.",
	})

	// BasketsFiredTotal counts arbitrage baskets submitted.
	BasketsFiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wxarb_baskets_fired_total",
		Help: "Arbitrage baskets submitted for execution.",
	})

	// BasketLegsTotal counts individual order legs submitted, by side.
	BasketLegsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wxarb_basket_legs_total",
		Help: "Individual basket legs submitted, labeled by side.",
	}, []string{"side"})

	// PositionLimitRejectionsTotal counts baskets abandoned for breaching
	// the per-book position limit, labeled by the station that tripped it.
	PositionLimitRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wxarb_position_limit_rejections_total",
		Help: "Baskets abandoned because a leg would breach the position limit.",
	}, []string{"station"})

	// SubmissionLatencySeconds observes round-trip latency of order
	// submission.
	SubmissionLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wxarb_submission_latency_seconds",
		Help:    "Round-trip latency of order submission to the execution endpoint.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		SequencePosition,
		BooksActive,
		FeedGapsTotal,
		BasketsFiredTotal,
		BasketLegsTotal,
		PositionLimitRejectionsTotal,
		SubmissionLatencySeconds,
	)
}
