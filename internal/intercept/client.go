package intercept

import (
	"context"
	"net"
	"time"

	gerrors "gobear/internal/errors"
	"gobear/internal/event"
	"gobear/internal/retry"
)

// Timeouts for a single report attempt.
const (
	DialTimeout  = 2 * time.Second
	WriteTimeout = 5 * time.Second
)

// Report sends ev to the collector at addr.  Dial failures are retried
// with backoff since a wrapper may start before the collector accepts.
func Report(ctx context.Context, addr string, ev event.Event) error {
	return ReportWith(ctx, retry.DefaultBackoff(), addr, ev)
}

// ReportWith is Report with a caller-supplied backoff policy.
func ReportWith(ctx context.Context, b *retry.Backoff, addr string, ev event.Event) error {
	if b.Retryable == nil {
		b.Retryable = gerrors.IsRetryable
	}
	return b.Do(ctx, func(_ int) error {
		d := net.Dialer{Timeout: DialTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return gerrors.Wrap("dial", addr, err)
		}
		defer conn.Close()

		conn.SetWriteDeadline(time.Now().Add(WriteTimeout)) //nolint:errcheck
		if err := event.NewWriter(conn).Write(ev); err != nil {
			return gerrors.Wrap("write", addr, err)
		}
		return nil
	})
}
