// feedreader.go implements the live feed WebSocket connection: one frame,
// one feed.Message, strictly sequenced. It auto-reconnects with exponential
// backoff (1s → 30s max) and a read deadline (90s) so a silent server
// failure is detected within ~2 missed pings, mirroring the teacher's market
// feed connection handling. On reconnect recovery is not re-fetched here —
// a gap across the reconnect surfaces as a fatal sequence gap to the caller,
// which is expected to restart the whole process and recover from scratch.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"wxarb/internal/feed"
)

const (
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	pingInterval     = 50 * time.Second
)

// FeedReader connects to the live feed WebSocket and hands every decoded
// frame to onMessage, in wire order, until ctx is cancelled.
//
// A malformed frame is fatal, not merely a reason to reconnect: it calls
// onFatal (if set) before returning, and the caller is expected to cancel
// the same ctx passed to Run from inside onFatal — the reconnect loop then
// observes ctx cancellation on its next iteration instead of redialing.
type FeedReader struct {
	url       string
	onMessage func(feed.Message)
	onFatal   func(error)
	logger    *slog.Logger
}

// NewFeedReader builds a reader against the live feed URL. onMessage is
// called synchronously for each decoded frame, on the reader's own
// goroutine — callers that need ingestion serialized with other state
// (the replay engine does) rely on that single-goroutine guarantee. onFatal
// may be nil; a nil onFatal just means a decode error triggers an ordinary
// reconnect instead of halting the reader.
func NewFeedReader(url string, onMessage func(feed.Message), onFatal func(error), logger *slog.Logger) *FeedReader {
	return &FeedReader{
		url:       url,
		onMessage: onMessage,
		onFatal:   onFatal,
		logger:    logger.With("component", "feed_reader"),
	}
}

// Run connects and maintains the WebSocket connection with auto-reconnect
// on ordinary transport failures. Blocks until ctx is cancelled.
func (r *FeedReader) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := r.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.logger.Warn("feed websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (r *FeedReader) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	r.logger.Info("feed websocket connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go r.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		msg, err := feed.Decode(data)
		if err != nil {
			r.logger.Error("malformed feed frame, fatal", "error", err)
			if r.onFatal != nil {
				r.onFatal(err)
			}
			return err
		}
		r.onMessage(msg)
	}
}

func (r *FeedReader) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				r.logger.Warn("feed ping failed", "error", err)
				return
			}
		}
	}
}
