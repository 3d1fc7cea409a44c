// Package transport implements the node-to-node wire protocol: a plain,
// newline-terminated, colon-delimited line sent over a short-lived TCP
// connection, one request/response pair per connection.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"chordring/internal/logger"
)

// ErrUnreachable is returned when a peer cannot be reached within the
// configured retry budget.
var ErrUnreachable = errors.New("transport: peer unreachable")

// Client sends request lines to peers and reads back one response line.
type Client struct {
	dialTimeout    time.Duration
	requestTimeout time.Duration
	maxElapsed     time.Duration
	lgr            logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for retry/failure diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.lgr = l }
}

// WithTimeouts overrides the dial and per-attempt request timeouts.
func WithTimeouts(dial, request time.Duration) Option {
	return func(c *Client) {
		c.dialTimeout = dial
		c.requestTimeout = request
	}
}

// WithMaxElapsed bounds the total time spent retrying a single request
// before giving up with ErrUnreachable.
func WithMaxElapsed(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

// NewClient builds a Client with sensible defaults: a one-second dial
// timeout, a two-second per-attempt request timeout, and a five-second
// retry budget.
func NewClient(opts ...Option) *Client {
	c := &Client{
		dialTimeout:    time.Second,
		requestTimeout: 2 * time.Second,
		maxElapsed:     5 * time.Second,
		lgr:            &logger.NopLogger{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SendRequest dials addr, writes line terminated by "\n", and returns the
// single response line (without its trailing newline). It retries with
// exponential backoff and jitter up to the client's max elapsed budget
// before giving up with ErrUnreachable, realizing spec.md §9's note that
// implementers may add bounded retries before declaring a peer unreachable.
func (c *Client) SendRequest(ctx context.Context, addr, line string) (string, error) {
	op := func() (string, error) {
		resp, err := c.attempt(ctx, addr, line)
		if err != nil {
			c.lgr.Debug("SendRequest: attempt failed", logger.F("addr", addr), logger.F("err", err.Error()))
			return "", err
		}
		return resp, nil
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.maxElapsed),
	)
	if err != nil {
		c.lgr.Warn("SendRequest: peer unreachable", logger.F("addr", addr), logger.F("line", line))
		return "", fmt.Errorf("%w: %s: %v", ErrUnreachable, addr, err)
	}
	return result, nil
}

func (c *Client) attempt(ctx context.Context, addr, line string) (string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.requestTimeout))

	if _, err := conn.Write([]byte(strings.TrimRight(line, "\n") + "\n")); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(resp, "\r\n"), nil
}
