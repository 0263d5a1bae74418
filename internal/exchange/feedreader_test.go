package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"wxarb/internal/feed"
)

var testUpgrader = websocket.Upgrader{}

func TestFeedReaderDecodesFramesInOrder(t *testing.T) {
	t.Parallel()
	frames := []string{
		`{"type":"FUTURE","sequence":1,"product":"SYD-2024-12","stationId":66037,"expiry":"2024-12-01","haltTime":"2024-12-01"}`,
		`{"type":"ADDED","sequence":2,"product":"SYD-2024-12","id":1,"side":"SELL","price":"1200.00","resting":25,"owner":"other"}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	var mu sync.Mutex
	var got []feed.Message
	reader := NewFeedReader(url, func(m feed.Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = reader.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Kind() != "FUTURE" || got[1].Kind() != "ADDED" {
		t.Errorf("unexpected kinds: %q, %q", got[0].Kind(), got[1].Kind())
	}
}

func TestFeedReaderMalformedFrameIsFatal(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"NOT_A_KIND","sequence":1}`))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fatalCh := make(chan error, 1)
	reader := NewFeedReader(url, func(feed.Message) {}, func(err error) {
		fatalCh <- err
		cancel()
	}, testLogger())

	done := make(chan error, 1)
	go func() { done <- reader.Run(ctx) }()

	select {
	case err := <-fatalCh:
		if err == nil {
			t.Fatal("expected a non-nil decode error")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for onFatal to fire on a malformed frame")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after onFatal cancelled the context")
	}
}
