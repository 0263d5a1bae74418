// submission.go implements the execution endpoint client: form-encoded POST
// requests carrying one AddMessage each, rate-limited and retried on 5xx.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"wxarb/pkg/types"

	"wxarb/internal/dispatcher"
	"wxarb/internal/feed"
)

// submissionResponse is the execution endpoint's reply to a single order
// POST. The field names mirror the teacher's response-shape expectations:
// an order identifier and how much of the order actually filled.
type submissionResponse struct {
	OrderID      types.OrderID `json:"orderId"`
	FilledVolume types.Volume  `json:"filledVolume"`
}

// SubmissionClient posts AddMessages to the execution endpoint and adapts
// the reply into a dispatcher.Ack. It implements dispatcher.Submitter.
type SubmissionClient struct {
	http   *resty.Client
	rl     *RateLimiter
	dryRun bool
	logger *slog.Logger
}

// NewSubmissionClient builds a client against the execution endpoint URL.
func NewSubmissionClient(url string, dryRun bool, logger *slog.Logger) *SubmissionClient {
	httpClient := resty.New().
		SetBaseURL(url).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &SubmissionClient{
		http:   httpClient,
		rl:     NewRateLimiter(),
		dryRun: dryRun,
		logger: logger.With("component", "submission_client"),
	}
}

// Submit places one order. Per the failure surface design, any non-2xx or
// transport error is returned to the caller as a recoverable error — the
// dispatcher logs it and re-enables the book; it is never treated as fatal.
func (c *SubmissionClient) Submit(ctx context.Context, msg feed.AddMessage, creds dispatcher.Credentials) (dispatcher.Ack, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would submit order", "product", msg.Product, "side", msg.Side, "price", msg.Price, "volume", msg.Volume)
		return dispatcher.Ack{FilledVolume: msg.Volume}, nil
	}
	if err := c.rl.Submission.Wait(ctx); err != nil {
		return dispatcher.Ack{}, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return dispatcher.Ack{}, fmt.Errorf("marshal add message: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": creds.Username,
			"password": creds.Password,
			"message":  string(body),
		}).
		Post("")
	if err != nil {
		return dispatcher.Ack{}, fmt.Errorf("%w: %v", types.ErrSubmission, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return dispatcher.Ack{}, fmt.Errorf("%w: status %d: %s", types.ErrSubmission, resp.StatusCode(), resp.String())
	}

	var result submissionResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return dispatcher.Ack{}, fmt.Errorf("%w: %v", types.ErrSubmissionDecode, err)
	}
	return dispatcher.Ack{OrderID: result.OrderID, FilledVolume: result.FilledVolume}, nil
}
