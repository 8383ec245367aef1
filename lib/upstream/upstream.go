// Package upstream wraps resty with the fetch policy every scraper
// client in this repo shares: a single rate limiter across workers,
// bounded retries with exponential backoff for transient failures, and
// a transient/permanent classification on every failed fetch.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"steamharvest-backend/lib/restyutil"
	"steamharvest-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

type Kind int

const (
	// KindTransient covers timeouts, connection resets, 5xx and rate
	// limit signals. Exhausting retries on these still reports transient.
	KindTransient Kind = iota + 1
	// KindPermanent covers non-throttle 4xx and undecodable payloads.
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	}
	return "unknown"
}

// FetchError is the only error type returned by Client fetches.
type FetchError struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch failed (%s, status %d): %s", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s): %s", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var ferr *FetchError
	return errors.As(err, &ferr) && ferr.Kind == KindTransient
}

func IsPermanent(err error) bool {
	var ferr *FetchError
	return errors.As(err, &ferr) && ferr.Kind == KindPermanent
}

// Classify maps a failed fetch outcome to its retry class. A non-nil
// transport error (timeout, reset, DNS) is always transient.
func Classify(status int, err error) Kind {
	if err != nil {
		return KindTransient
	}
	switch {
	case status == http.StatusTooManyRequests:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// MinInterval is the minimum delay between requests, enforced per
	// attempt (retries re-take a slot). Ignored when Limiter is set.
	MinInterval time.Duration
	// Limiter, when non-nil, is shared with other clients so the
	// combined request rate stays below the upstream's threshold.
	Limiter *Limiter

	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	TracerName string

	// DebugDumpDir, when set, captures every HTTP exchange to disk.
	DebugDumpDir string
}

type Client struct {
	Http    *resty.Client
	Limiter *Limiter
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = time.Second * 2
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = time.Second * 30
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "steamharvest/1.0"
	}
	if opts.TracerName == "" {
		opts.TracerName = "upstream/http"
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewLimiter(opts.MinInterval)
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", opts.UserAgent)

	client.SetRetryCount(opts.MaxRetries)
	client.SetRetryWaitTime(opts.RetryWaitMin)
	client.SetRetryMaxWaitTime(opts.RetryWaitMax)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		if res.IsSuccess() {
			return false
		}
		return Classify(res.StatusCode(), nil) == KindTransient
	})
	client.AddRetryHook(func(res *resty.Response, err error) {
		attrs := []any{"url", res.Request.URL}
		if err != nil {
			attrs = append(attrs, "err", err)
		} else {
			attrs = append(attrs, "status", res.StatusCode())
		}
		slog.WarnContext(res.Request.Context(), "retrying upstream request", attrs...)
	})

	// OnBeforeRequest middlewares run once per attempt, so the limiter
	// also spaces out retries.
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, opts.TracerName)

	if opts.DebugDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(opts.DebugDumpDir)
		if err != nil {
			slog.Warn("exchange dumping disabled", "err", err)
		} else {
			restyutil.DumpExchanges(client, output)
		}
	}

	return &Client{
		Http:    client,
		Limiter: limiter,
	}
}

// GetJSON fetches `path` and decodes the response body into `out`.
// Any failure comes back as a *FetchError; the caller never sees a
// bare transport error.
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, out any) error {
	req := c.Http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	res, err := req.Get(path)
	if err != nil {
		kind := Classify(0, err)
		slog.ErrorContext(ctx, "fetch failed",
			"url", req.URL, "kind", kind.String(), "err", err)
		return &FetchError{Kind: kind, Err: err}
	}
	if !res.IsSuccess() {
		kind := Classify(res.StatusCode(), nil)
		slog.ErrorContext(ctx, "fetch failed",
			"url", req.URL, "kind", kind.String(), "status", res.StatusCode())
		return &FetchError{
			Kind:   kind,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("http status %d", res.StatusCode()),
		}
	}

	err = json.Unmarshal(res.Body(), out)
	if err != nil {
		slog.ErrorContext(ctx, "fetch payload undecodable",
			"url", req.URL, "err", err)
		return &FetchError{
			Kind:   KindPermanent,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("decode payload: %w", err),
		}
	}
	return nil
}
