package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/tickerwatch/internal/config"
	"github.com/phrazzld/tickerwatch/internal/events"
	"github.com/phrazzld/tickerwatch/internal/platform/logger"
	"github.com/phrazzld/tickerwatch/internal/redact"
)

// ErrStreamClosed is reported to the Observer when the server ends the
// subscription without a transport error.
var ErrStreamClosed = errors.New("stream closed by server")

// DefaultReconnectDelay is the fixed delay between a stream error and the
// next connection attempt.
const DefaultReconnectDelay = 3 * time.Second

// State is the client-local connectivity of a Connector.
type State int

// Connector states.
const (
	Disconnected State = iota
	Connecting
	Connected
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Options are captured when the Connector is built and never change.
type Options struct {
	// Enabled gates every connection attempt. A disabled Connector never
	// opens a subscription.
	Enabled bool
	// AutoReconnect schedules a new attempt after a stream error.
	AutoReconnect bool
	// ReconnectDelay is the fixed wait before that attempt.
	ReconnectDelay time.Duration
}

// DefaultOptions returns enabled, auto-reconnecting options with the
// default delay.
func DefaultOptions() Options {
	return Options{
		Enabled:        true,
		AutoReconnect:  true,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// OptionsFromConfig builds Options from the stream configuration.
func OptionsFromConfig(cfg config.StreamConfig) Options {
	return Options{
		Enabled:        cfg.Enabled,
		AutoReconnect:  cfg.AutoReconnect,
		ReconnectDelay: cfg.ReconnectDelay,
	}
}

// Observer is told about connectivity changes. It never sees lifecycle events.
type Observer interface {
	// OnConnected is called for every "connected" frame.
	OnConnected()
	// OnError is called once per failed subscription, after the reconnect
	// (if any) has been scheduled.
	OnError(err error)
}

// ObserverFuncs adapts optional functions to an Observer.
type ObserverFuncs struct {
	Connected func()
	Error     func(error)
}

// OnConnected implements Observer.
func (f ObserverFuncs) OnConnected() {
	if f.Connected != nil {
		f.Connected()
	}
}

// OnError implements Observer.
func (f ObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Option customizes a Connector.
type Option func(*Connector)

// WithOpener replaces the HTTP transport.
func WithOpener(o Opener) Option {
	return func(c *Connector) { c.opener = o }
}

// WithClock replaces the clock used to schedule reconnects.
func WithClock(clock Clock) Option {
	return func(c *Connector) { c.clock = clock }
}

// WithObserver registers the connectivity observer.
func WithObserver(o Observer) Option {
	return func(c *Connector) { c.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// Connector owns at most one live subscription to the task stream and
// recovers from transport failures with a single fixed-delay retry.
//
// All methods are safe for concurrent use, including from inside Observer
// and Handler callbacks. Callbacks run on the subscription goroutine without
// any Connector lock held.
type Connector struct {
	url        string
	opts       Options
	opener     Opener
	dispatcher *events.Dispatcher
	observer   Observer
	clock      Clock
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	stopped  bool
	gen      uint64 // identifies the current subscription
	cancel   context.CancelFunc
	timer    Timer  // the single pending reconnect slot
	timerSeq uint64 // invalidates callbacks of stopped timers
	attempts int
	unbind   func() bool
}

// New creates a Connector for the stream at url. Lifecycle events are
// routed through dispatcher. Nothing is opened until Connect or Start.
func New(url string, dispatcher *events.Dispatcher, opts Options, options ...Option) *Connector {
	c := &Connector{
		url:        url,
		opts:       opts,
		dispatcher: dispatcher,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.opts.ReconnectDelay <= 0 {
		c.opts.ReconnectDelay = DefaultReconnectDelay
	}
	if c.dispatcher == nil {
		c.dispatcher = events.NewDispatcher(nil, nil)
	}
	if c.opener == nil {
		c.opener = &HTTPOpener{}
	}
	if c.observer == nil {
		c.observer = ObserverFuncs{}
	}
	if c.clock == nil {
		c.clock = RealClock()
	}
	if c.logger == nil {
		c.logger = logger.Discard()
	}
	c.logger = c.logger.With("component", "stream_connector", "url", redact.String(url))

	return c
}

// Start connects (when enabled) and ties the Connector's lifetime to ctx:
// when ctx is done, Disconnect runs exactly once.
func (c *Connector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unbind != nil {
		c.unbind()
	}
	c.unbind = context.AfterFunc(ctx, c.Disconnect)
	c.connectLocked()
	c.mu.Unlock()
}

// Connect opens a new subscription, closing the current one first. It is a
// no-op when the Connector is disabled or has been stopped by Disconnect.
func (c *Connector) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked()
}

// Disconnect stops the Connector: the pending reconnect is cancelled, the
// live subscription is closed and Connect becomes a no-op until Reconnect.
// It is safe to call repeatedly and from within callbacks.
//
// Disconnect does not wait for a lifecycle event already being delivered on
// another goroutine, so such an event may still reach the handler once
// after Disconnect returns. Waiting would deadlock a Disconnect made from
// inside a handler. No later frame of the closed subscription is delivered.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	wasStopped := c.stopped
	c.stopped = true
	c.stopTimerLocked()
	c.closeLocked()
	c.state = Disconnected
	c.mu.Unlock()

	if !wasStopped {
		c.logger.Info("stream disconnected")
	}
}

// Reconnect clears the stopped flag and opens a new subscription. It is the
// explicit, user-triggered way out of Disconnect.
func (c *Connector) Reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = false
	c.connectLocked()
}

// State returns the current connectivity state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the last frame received on the live
// subscription was a connected or heartbeat signal.
func (c *Connector) Connected() bool {
	return c.State() == Connected
}

// ReconnectPending reports whether a reconnect timer is scheduled.
func (c *Connector) ReconnectPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Connector) connectLocked() {
	if !c.opts.Enabled || c.stopped {
		return
	}

	// an explicit connect supersedes a scheduled one
	c.stopTimerLocked()
	c.closeLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = Connecting
	c.attempts++
	gen := c.gen

	c.logger.Debug("opening stream", "attempt", c.attempts)
	go c.run(ctx, gen)
}

// closeLocked cancels the live subscription, if any, and retires its
// generation so late frames and errors from it are ignored.
func (c *Connector) closeLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Connector) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerSeq++
}

func (c *Connector) scheduleLocked() {
	c.stopTimerLocked()
	seq := c.timerSeq
	c.timer = c.clock.AfterFunc(c.opts.ReconnectDelay, func() {
		c.fireReconnect(seq)
	})
}

func (c *Connector) fireReconnect(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.timerSeq || c.timer == nil || c.stopped {
		return
	}
	c.timer = nil
	c.logger.Info("reconnecting stream")
	c.connectLocked()
}

// run owns one subscription from open to end. Anything it observes after
// its context is cancelled belongs to a closed subscription and is dropped.
func (c *Connector) run(ctx context.Context, gen uint64) {
	body, err := c.opener.Open(ctx, c.url)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.fail(gen, err)
		return
	}
	defer body.Close()

	// unblock the reader when the subscription is closed locally
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	err = readFrames(body,
		func(f Frame) { c.deliver(gen, f) },
		func(event string) {
			c.logger.Warn("dropping oversized stream event", "event", event, "limit_bytes", maxFrameLine)
		})
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = ErrStreamClosed
	}
	c.fail(gen, err)
}

// deliver routes one frame of subscription gen. The generation and stopped
// checks happen under mu, but Dispatch runs unlocked, so a concurrent
// Disconnect can land between the two.
func (c *Connector) deliver(gen uint64, f Frame) {
	eventType := events.Type(f.Event)

	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	switch eventType {
	case events.Connected, events.Heartbeat:
		c.state = Connected
		c.mu.Unlock()
		if eventType == events.Connected {
			c.logger.Info("stream connected")
			c.observer.OnConnected()
		}
		return
	}
	c.mu.Unlock()

	if err := c.dispatcher.Dispatch(eventType, []byte(f.Data)); err != nil {
		c.logger.Debug("dropping stream event",
			"event", f.Event,
			"event_id", f.ID,
			"error", err)
	}
}

func (c *Connector) fail(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	c.state = Disconnected
	c.closeLocked()
	scheduled := c.opts.AutoReconnect
	if scheduled {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	c.logger.Warn("stream error",
		"error", redact.Error(err),
		"reconnect_scheduled", scheduled,
		"reconnect_delay", c.opts.ReconnectDelay)
	c.observer.OnError(err)
}
