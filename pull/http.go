package pull

import (
	"context"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/logger"
	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/time/rate"
)

// HTTPClient sends rate limited requests and retries throttling and server errors.
type HTTPClient struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	Log        logger.Logger
	MaxRetries int           // extra attempts after the first one
	Backoff    time.Duration // base delay, grows with the square of the attempt
	Timeout    time.Duration // per attempt
}

// NewHTTPClient allows one request per interval.
func NewHTTPClient(log logger.Logger, interval time.Duration) *HTTPClient {
	return &HTTPClient{
		Client:     &http.Client{},
		Limiter:    rate.NewLimiter(rate.Every(interval), 1),
		Log:        log,
		MaxRetries: 1,
		Backoff:    time.Second,
		Timeout:    30 * time.Second,
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	URL        string
}

// Retryable reports whether status is worth another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Do sends the request built by newRequest. It is called again for each retry so headers such as signatures are fresh.
// Only transport errors and context cancellation are returned as errors; HTTP failures are in the Response.
func (c *HTTPClient) Do(ctx context.Context, newRequest func() (*http.Request, error)) (Response, error) {
	var resp Response
	var err error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.Backoff * time.Duration(attempt*attempt)
			c.Log.Debug("retrying request in ", delay, " after ", errOrStatus(err, resp.StatusCode))
			select {
			case <-ctx.Done():
				return resp, ctx.Err()
			case <-time.After(delay):
			}
		}
		resp, err = c.once(ctx, newRequest)
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		if err == nil && !Retryable(resp.StatusCode) {
			return resp, nil
		}
	}
	return resp, err
}

func (c *HTTPClient) once(ctx context.Context, newRequest func() (*http.Request, error)) (Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return Response{}, errors.Wrap(err, "rate limiter")
		}
	}
	req, err := newRequest()
	if err != nil {
		return Response{}, errors.Wrap(err, "error building request")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	r, err := ctxhttp.Do(ctx, c.Client, req)
	if err != nil {
		return Response{}, errors.Wrapf(err, "error calling %v", req.URL.Redacted())
	}
	defer r.Body.Close()
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return Response{}, errors.Wrapf(err, "error reading response from %v", req.URL.Redacted())
	}
	return Response{StatusCode: r.StatusCode, Body: body, URL: req.URL.Redacted()}, nil
}

func errOrStatus(err error, status int) interface{} {
	if err != nil {
		return err
	}
	return status
}

// snippet returns the start of a response body for log messages.
func snippet(b []byte) string {
	if len(b) > 300 {
		return string(b[:300])
	}
	return string(b)
}
