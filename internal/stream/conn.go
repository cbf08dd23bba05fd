package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	json "github.com/goccy/go-json"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/observability"
)

// ConnState tracks the transport lifecycle.
type ConnState int32

const (
	ConnStateNone ConnState = iota
	ConnStateConnecting
	ConnStateOpen
	ConnStateReconnecting
	ConnStateClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnStateNone:
		return "none"
	case ConnStateConnecting:
		return "connecting"
	case ConnStateOpen:
		return "open"
	case ConnStateReconnecting:
		return "reconnecting"
	case ConnStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	defaultReadLimit        = 10 << 20 // venue frames can reach megabytes on deep books
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	minReconnectCooldown    = time.Second
	defaultMaxCooldown      = 30 * time.Second
	startTimeout            = 15 * time.Second
)

// ConnConfig carries the transport settings for one venue connection.
type ConnConfig struct {
	Venue                string
	URL                  string
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
	ReconnectCooldown    time.Duration
	MaxReconnectCooldown time.Duration
	ReadLimit            int64
}

func (c *ConnConfig) normalize() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.ReconnectCooldown < minReconnectCooldown {
		c.ReconnectCooldown = minReconnectCooldown
	}
	if c.MaxReconnectCooldown < c.ReconnectCooldown {
		c.MaxReconnectCooldown = defaultMaxCooldown
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = defaultReadLimit
	}
}

// Conn owns the websocket lifecycle: dial, receive loop, reconnect with
// cooldown, and graceful teardown. Successive sockets carry increasing
// generation tokens so work started on a superseded socket is discarded.
type Conn struct {
	cfg      ConnConfig
	ctx      context.Context
	cancel   context.CancelFunc
	registry *Registry
	sink     Sink
	handler  func(ctx context.Context, frame []byte)

	mu sync.RWMutex
	ws *websocket.Conn

	generation atomic.Uint64
	state      atomic.Int32
	started    atomic.Bool
	stopped    atomic.Bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

// NewConn builds a connection manager bound to the registry and sink. The
// handler receives every complete text frame in arrival order.
func NewConn(ctx context.Context, cfg ConnConfig, registry *Registry, sink Sink, handler func(ctx context.Context, frame []byte)) *Conn {
	cfg.normalize()
	connCtx, cancel := context.WithCancel(ctx)
	return &Conn{
		cfg:      cfg,
		ctx:      connCtx,
		cancel:   cancel,
		registry: registry,
		sink:     sink,
		handler:  handler,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the connect/receive loop and waits for the first successful
// connection. Starting after Stop is an error.
func (c *Conn) Start() error {
	if c.stopped.Load() {
		return errs.New(c.cfg.Venue, errs.CodeInvalid, errs.WithMessage("connection already shut down"))
	}
	if c.started.Swap(true) {
		return errs.New(c.cfg.Venue, errs.CodeInvalid, errs.WithMessage("connection already started"))
	}
	go c.run()

	select {
	case <-c.ready:
		return nil
	case <-time.After(startTimeout):
		return errs.New(c.cfg.Venue, errs.CodeTransport, errs.WithMessage("timeout waiting for websocket connection"))
	case <-c.ctx.Done():
		return errs.New(c.cfg.Venue, errs.CodeTransport,
			errs.WithMessage("websocket context done"), errs.WithCause(c.ctx.Err()))
	}
}

// Stop cancels the receive loop, marks every subscription stopped, and
// disposes the socket. Idempotent.
func (c *Conn) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	c.cancel()
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "shutdown")
	}
	c.registry.MarkAllStopped()
	c.setState(ConnStateClosed)
	if c.started.Load() {
		<-c.done
	}
}

// Generation returns the token of the current socket.
func (c *Conn) Generation() uint64 { return c.generation.Load() }

// IsOpen reports whether the socket is connected.
func (c *Conn) IsOpen() bool { return c.State() == ConnStateOpen }

// State returns the current transport state.
func (c *Conn) State() ConnState { return ConnState(c.state.Load()) }

// Send JSON-encodes v and writes it as one text frame.
func (c *Conn) Send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.New(c.cfg.Venue, errs.CodeInvalid,
			errs.WithMessage("marshal outbound frame"), errs.WithCause(err))
	}
	c.mu.RLock()
	ws := c.ws
	c.mu.RUnlock()
	if ws == nil {
		return errs.New(c.cfg.Venue, errs.CodeTransport, errs.WithMessage("socket not open"))
	}
	writeCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		return errs.New(c.cfg.Venue, errs.CodeTransport,
			errs.WithMessage("write frame"), errs.WithCause(err))
	}
	return nil
}

// Bounce force-closes the current socket so the run loop reconnects. Used
// when the venue requests a restart or announces an incompatible version.
func (c *Conn) Bounce(reason string) {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()
	if ws != nil {
		observability.Log().Info("bouncing websocket", observability.F("reason", reason))
		_ = ws.Close(websocket.StatusNormalClosure, reason)
	}
}

func (c *Conn) run() {
	defer close(c.done)

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = c.cfg.ReconnectCooldown
	backoffCfg.MaxInterval = c.cfg.MaxReconnectCooldown

	for {
		select {
		case <-c.ctx.Done():
			c.setState(ConnStateClosed)
			return
		default:
		}

		c.setState(ConnStateConnecting)
		dialCtx, cancel := context.WithTimeout(c.ctx, c.cfg.HandshakeTimeout)
		ws, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
		cancel()
		if err != nil {
			if c.ctx.Err() != nil {
				c.setState(ConnStateClosed)
				return
			}
			c.sink.OnEngineError(errs.New(c.cfg.Venue, errs.CodeTransport,
				errs.WithMessage("dial "+c.cfg.URL), errs.WithCause(err)))
			if !c.sleep(backoffCfg) {
				return
			}
			continue
		}

		ws.SetReadLimit(c.cfg.ReadLimit)
		c.mu.Lock()
		c.ws = ws
		c.mu.Unlock()

		gen := c.generation.Add(1)
		backoffCfg.Reset()
		c.setState(ConnStateOpen)
		c.readyOnce.Do(func() { close(c.ready) })

		c.registry.StartAll(c.ctx)

		loopErr := c.readLoop(ws, gen)

		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.mu.Unlock()
		_ = ws.Close(websocket.StatusNormalClosure, "")

		c.registry.MarkAllStopped()

		if c.ctx.Err() != nil {
			c.setState(ConnStateClosed)
			return
		}
		if loopErr != nil {
			c.sink.OnEngineError(loopErr)
		}
		observability.Telemetry().IncCounter(observability.MetricReconnects, 1,
			map[string]string{"venue": c.cfg.Venue})
		c.setState(ConnStateReconnecting)
		if !c.sleep(backoffCfg) {
			return
		}
	}
}

// readLoop reads frames until the socket fails, the frame violates the
// protocol, or the socket is superseded. Dispatch is synchronous, so frames
// on one channel are processed strictly in arrival order.
func (c *Conn) readLoop(ws *websocket.Conn, gen uint64) error {
	for {
		typ, data, err := ws.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			if status := websocket.CloseStatus(err); status != -1 {
				var closeErr websocket.CloseError
				reason := ""
				if errors.As(err, &closeErr) {
					reason = closeErr.Reason
				}
				observability.Log().Warn("server closed websocket",
					observability.F("status", int(status)), observability.F("reason", reason))
			}
			return errs.New(c.cfg.Venue, errs.CodeTransport,
				errs.WithMessage("read frame"), errs.WithCause(err))
		}
		if typ != websocket.MessageText {
			return errs.New(c.cfg.Venue, errs.CodeProtocol, errs.WithMessage("binary frame received"))
		}
		if gen != c.generation.Load() {
			return nil // a newer socket took over
		}
		observability.Telemetry().IncCounter(observability.MetricFramesReceived, 1,
			map[string]string{"venue": c.cfg.Venue})
		c.handler(c.ctx, data)
	}
}

func (c *Conn) sleep(backoffCfg *backoff.ExponentialBackOff) bool {
	wait := backoffCfg.NextBackOff()
	if wait == backoff.Stop {
		wait = c.cfg.MaxReconnectCooldown
	}
	select {
	case <-c.ctx.Done():
		c.setState(ConnStateClosed)
		return false
	case <-time.After(wait):
		return true
	}
}

func (c *Conn) setState(state ConnState) {
	if ConnState(c.state.Swap(int32(state))) != state {
		c.sink.OnConnState(state)
	}
}
