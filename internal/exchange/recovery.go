// recovery.go fetches the startup recovery snapshot: a single JSON array of
// tagged feed messages that the replay engine applies under Recovery phase
// before live traffic is trusted.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"wxarb/internal/feed"
)

// RecoveryClient fetches and decodes the recovery snapshot.
type RecoveryClient struct {
	http *resty.Client
}

// NewRecoveryClient builds a client against the recovery endpoint URL.
func NewRecoveryClient(url string) *RecoveryClient {
	return &RecoveryClient{
		http: resty.New().
			SetBaseURL(url).
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(500 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r.StatusCode() >= 500
			}),
	}
}

// Fetch retrieves the snapshot and decodes every element into a typed
// feed.Message via feed.Decode, preserving wire order.
func (c *RecoveryClient) Fetch(ctx context.Context) ([]feed.Message, error) {
	resp, err := c.http.R().SetContext(ctx).Get("")
	if err != nil {
		return nil, fmt.Errorf("fetch recovery snapshot: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch recovery snapshot: status %d: %s", resp.StatusCode(), resp.String())
	}

	var frames []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &frames); err != nil {
		return nil, fmt.Errorf("decode recovery snapshot: %w", err)
	}

	messages := make([]feed.Message, 0, len(frames))
	for i, frame := range frames {
		msg, err := feed.Decode(frame)
		if err != nil {
			return nil, fmt.Errorf("decode recovery frame %d: %w", i, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
