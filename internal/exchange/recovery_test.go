package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecoveryClientFetchDecodesArray(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"type":"FUTURE","sequence":1,"product":"SYD-2024-12","stationId":66037,"expiry":"2024-12-01","haltTime":"2024-12-01"},
			{"type":"ADDED","sequence":2,"product":"SYD-2024-12","id":1,"side":"SELL","price":"1200.00","resting":25,"owner":"other"}
		]`))
	}))
	defer srv.Close()

	c := NewRecoveryClient(srv.URL)
	msgs, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Kind() != "FUTURE" || msgs[1].Kind() != "ADDED" {
		t.Errorf("unexpected kinds: %q, %q", msgs[0].Kind(), msgs[1].Kind())
	}
}

func TestRecoveryClientRejectsMalformedFrame(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"type":"NOT_A_KIND","sequence":1}]`))
	}))
	defer srv.Close()

	c := NewRecoveryClient(srv.URL)
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected a decode error for an unknown tag")
	}
}

func TestRecoveryClientPropagatesServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRecoveryClient(srv.URL)
	c.http.SetRetryCount(0)
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error on 503 response")
	}
}
