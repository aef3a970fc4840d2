// Package httpx is the shared outbound HTTP client: pooled transport,
// request timeout, exponential-backoff retry on transient failure.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type ClientConfig struct {
	Timeout         time.Duration
	RetryMaxElapsed time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

type Client struct {
	http *http.Client
	conf ClientConfig
}

func NewClient(conf ClientConfig) *Client {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    conf.MaxIdleConns,
		IdleConnTimeout: conf.IdleConnTimeout,
	}
	return &Client{
		http: &http.Client{Transport: tr, Timeout: conf.Timeout},
		conf: conf,
	}
}

// DoWithRetry runs the request with exponential backoff. 5xx responses are
// retried; 4xx responses are returned to the caller as-is. ctx carries
// cancellation into both the request and the backoff loop.
func (c *Client) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		r, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			// drain and close so the connection can be reused
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return fmt.Errorf("upstream status %d", r.StatusCode)
		}
		resp = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.conf.RetryMaxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}
