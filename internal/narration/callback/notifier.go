// Package callback notifies callers over HTTP when their background work
// finishes.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/enhasa/enhasa/pkg/events"
	"github.com/enhasa/enhasa/pkg/urlvalidation"
)

// Request headers set on every delivery.
const (
	EventHeader    = "X-Enhasa-Event"
	DeliveryHeader = "X-Enhasa-Delivery"
)

// Defaults applied to zero Config fields.
const (
	DefaultMaxAttempts    = 5
	DefaultTimeout        = 10 * time.Second
	DefaultBackoffInitial = time.Second
	DefaultBackoffMax     = 5 * time.Minute
)

// Config controls delivery.
type Config struct {
	// Secret signs each body; an empty secret sends unsigned requests.
	Secret         string
	MaxAttempts    int
	Timeout        time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	AllowPrivate   bool
}

// Notifier posts event envelopes to caller supplied URLs.
type Notifier struct {
	cfg          Config
	httpClient   *http.Client
	validateOpts []urlvalidation.Option
}

// NewNotifier creates a notifier.
func NewNotifier(cfg Config, validateOpts ...urlvalidation.Option) *Notifier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = DefaultBackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}
	if cfg.AllowPrivate {
		validateOpts = append(validateOpts, urlvalidation.AllowPrivateIPs())
	}
	return &Notifier{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		validateOpts: validateOpts,
	}
}

// Notify delivers env to url, retrying server errors with exponential
// backoff. Client errors other than 408 and 429 are not retried.
func (n *Notifier) Notify(ctx context.Context, url string, env events.Envelope) error {
	if err := urlvalidation.ValidateOutboundURL(ctx, url, n.validateOpts...); err != nil {
		return fmt.Errorf("callback url: %w", err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	policy := &backoff.ExponentialBackOff{
		InitialInterval:     n.cfg.BackoffInitial,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          2,
		MaxInterval:         n.cfg.BackoffMax,
	}

	attempt := 0
	_, err = backoff.Retry(ctx, func() (int, error) {
		attempt++
		code, err := n.post(ctx, url, env, body)
		if err != nil {
			slog.WarnContext(ctx, "callback: delivery failed",
				slog.String("delivery_id", env.ID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
		return code, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(n.cfg.MaxAttempts)))
	if err != nil {
		return fmt.Errorf("deliver %s after %d attempts: %w", env.Type, attempt, err)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, url string, env events.Envelope, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, string(env.Type))
	req.Header.Set(DeliveryHeader, env.ID)
	if n.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.cfg.Secret, body))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	// Drain for connection reuse.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return code, nil
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return code, fmt.Errorf("HTTP %d", code)
	default:
		return code, backoff.Permanent(fmt.Errorf("HTTP %d", code))
	}
}
