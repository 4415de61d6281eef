package intercept

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	gerrors "gobear/internal/errors"
	"gobear/internal/event"
	"gobear/internal/metrics"
	"gobear/util"
)

const (
	// DefaultDrainTimeout is how long Serve waits for open reporter
	// connections after the listener closes.
	DefaultDrainTimeout = 2 * time.Second

	// acceptGrace keeps accepting after Close so connections already
	// queued in the backlog are not dropped.
	acceptGrace = 100 * time.Millisecond
)

// Collector accepts reporter connections on a loopback address and
// forwards the decoded events to a Reporter.  Each connection carries
// one or more JSON-line events.
type Collector struct {
	Reporter     *Reporter
	Logger       *util.Logger
	Metrics      *metrics.Collector
	DrainTimeout time.Duration

	ln        net.Listener
	closeOnce sync.Once
	done      chan struct{}

	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// Listen binds a Collector to address (normally "127.0.0.1:0").
func Listen(address string, r *Reporter, logger *util.Logger, m *metrics.Collector) (*Collector, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, gerrors.Wrap("listen", address, err)
	}
	return &Collector{
		Reporter:     r,
		Logger:       logger,
		Metrics:      m,
		DrainTimeout: DefaultDrainTimeout,
		ln:           ln,
		done:         make(chan struct{}),
		conns:        make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the address reporters should dial.
func (c *Collector) Addr() string { return c.ln.Addr().String() }

// Close stops accepting connections once the backlog is empty.  Serve
// then drains the open ones and releases the listener.
func (c *Collector) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if dl, ok := c.ln.(interface{ SetDeadline(time.Time) error }); ok {
			err = dl.SetDeadline(time.Now().Add(acceptGrace))
			return
		}
		err = c.ln.Close()
	})
	return err
}

// Serve accepts connections until Close is called or ctx expires, then
// waits for in-flight connections to finish.
func (c *Collector) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close() //nolint:errcheck
		case <-c.done:
		}
	}()

	c.Logger.Debug("collector listening on %s", c.Addr())

	var serveErr error
	for {
		conn, err := c.ln.Accept()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.Metrics.RecordError(err.Error())
				serveErr = gerrors.Wrap("accept", c.Addr(), err)
				c.Close() //nolint:errcheck
			}
			break
		}

		c.track(conn, true)
		c.Metrics.ConnectionOpened()
		c.wg.Add(1)
		go c.handle(conn)
	}

	c.ln.Close() //nolint:errcheck
	c.drain()
	return serveErr
}

func (c *Collector) handle(conn net.Conn) {
	defer c.wg.Done()
	defer c.Metrics.ConnectionClosed()
	defer c.track(conn, false)
	defer conn.Close()

	rd := event.NewReader(conn)
	for {
		ev, err := rd.Next()
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			c.Metrics.RecordError(err.Error())
			c.Logger.Warn("collector: malformed event from %s: %v", conn.RemoteAddr(), err)
			return
		}
		if err := ev.Validate(); err != nil {
			c.Metrics.RecordError(err.Error())
			c.Logger.Verbose("collector: dropping %s: %v", ev.ID, err)
			continue
		}

		c.Metrics.EventReceived()
		c.Logger.Debug("event %s: %v", ev.ID, ev.Arguments)
		if err := c.Reporter.Report(ev); err != nil {
			c.Metrics.RecordError(err.Error())
			c.Logger.Error("collector: %v", err)
		}
	}
}

func (c *Collector) track(conn net.Conn, add bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if add {
		c.conns[conn] = struct{}{}
	} else {
		delete(c.conns, conn)
	}
}

// drain waits for handlers, force-closing stragglers after the timeout.
func (c *Collector) drain() {
	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()

	timeout := c.DrainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-finished:
		return
	case <-timer.C:
	}

	c.mu.Lock()
	c.Logger.Verbose("collector: closing %d idle reporter connection(s)", len(c.conns))
	for conn := range c.conns {
		conn.Close()
	}
	c.mu.Unlock()
	<-finished
}
