// Package pool implements the worker-per-connection dispatch pool: a
// bounded set of persistent, authenticated smtp.Client connections reused
// across messages up to a per-connection cap, with requeue-on-failure and
// a sliding-window rate limiter. The queue is in-process only; durable
// cross-process queueing is out of scope.
package pool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mailit-dev/gomail/smtp"
)

// Config bounds the pool's behaviour.
type Config struct {
	MaxConnections int           // default 5
	MaxMessages    int           // per-connection cap, default 100
	RateLimit      int           // messages per RateDelta, default 1000ms window
	RateDelta      time.Duration // default 1s
	MaxRequeues    int           // -1 = unbounded
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = 5
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = 100
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 1000
	}
	if c.RateDelta <= 0 {
		c.RateDelta = time.Second
	}
	if c.MaxRequeues == 0 {
		c.MaxRequeues = -1
	}
	return c
}

// Dialer opens and greets a fresh SMTP/LMTP connection for the pool to
// reuse. The pool calls it lazily, the first time a resource needs a
// connection.
type Dialer func(ctx context.Context) (*smtp.Client, error)

// Job is one message handed to the pool for delivery.
type Job struct {
	From      string
	To        []string
	MessageID string
	// Open returns a fresh reader over the message bytes; it is called
	// again on every requeue attempt since a stream is consumed once.
	Open func() (io.Reader, error)
	Send smtp.SendOptions
}

// Result is the outcome of one delivery attempt, handed to a Job's
// callback exactly once.
type Result struct {
	Envelope  smtp.Envelope
	MessageID string
	Responses []smtp.RecipientResponse
	Err       error
}

// Metrics receives pool instrumentation; nil is a valid no-op value.
type Metrics interface {
	SetLiveResources(n int)
	SetQueueDepth(n int)
	IncDispatched()
	IncRequeued()
	IncFailed()
}

type entry struct {
	job             Job
	requeueAttempts int
	callback        func(Result)
}

type resource struct {
	id           int
	client       *smtp.Client
	messagesSent int
	busy         bool
}

// Pool multiplexes Jobs across at most Config.MaxConnections persistent
// connections created by dial and (if creds is non-nil) authenticated
// once per connection.
type Pool struct {
	cfg    Config
	dial   Dialer
	creds  *smtp.Credentials
	logger *slog.Logger
	metric Metrics

	mu             sync.Mutex
	queue          []*entry
	resources      []*resource
	nextResourceID int
	closing        bool
	limiter        *rateLimiter

	// OnIdle, if set, is invoked (off the lock) whenever the queue drains
	// while the pool still has spare connection capacity. OnClear fires
	// when the queue is drained and no connections remain live.
	OnIdle  func()
	OnClear func()
}

// New constructs a Pool. creds may be nil for relays that require no
// authentication (e.g. an internal MTA relay).
func New(cfg Config, dial Dialer, creds *smtp.Credentials, logger *slog.Logger, metric Metrics) *Pool {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		cfg:     cfg,
		dial:    dial,
		creds:   creds,
		logger:  logger,
		metric:  metric,
		limiter: newRateLimiter(cfg.RateLimit, cfg.RateDelta),
	}
}

// Send enqueues job; callback fires exactly once with the final result,
// whether that is a successful delivery or a terminal failure.
func (p *Pool) Send(job Job, callback func(Result)) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		callback(Result{MessageID: job.MessageID, Err: errClosed})
		return
	}
	p.queue = append(p.queue, &entry{job: job, callback: callback})
	p.mu.Unlock()
	p.schedule()
}

var errClosed = errors.New("pool: closed")

// schedule is the dispatch loop: pick the first available
// resource, creating one if under MaxConnections, gated by the rate
// limiter; repeat until the queue is empty or no resource can be
// picked or created.
func (p *Pool) schedule() {
	p.mu.Lock()
	for !p.closing && len(p.queue) > 0 {
		res := p.pickAvailableLocked()
		if res == nil && len(p.resources) >= p.cfg.MaxConnections {
			break
		}
		if !p.limiter.Allow() {
			p.limiter.NotifyWhenAvailable(p.schedule)
			break
		}
		if res == nil {
			res = p.newResourceLocked()
		}
		e := p.queue[0]
		p.queue = p.queue[1:]
		res.busy = true
		p.mu.Unlock()
		go p.dispatch(res, e)
		p.mu.Lock()
	}
	depth := len(p.queue)
	live := len(p.resources)
	closing := p.closing
	p.mu.Unlock()

	if p.metric != nil {
		p.metric.SetQueueDepth(depth)
		p.metric.SetLiveResources(live)
	}
	if !closing && depth == 0 {
		if live < p.cfg.MaxConnections && p.OnIdle != nil {
			p.OnIdle()
		}
		if live == 0 && p.OnClear != nil {
			p.OnClear()
		}
	}
}

func (p *Pool) pickAvailableLocked() *resource {
	for _, r := range p.resources {
		if !r.busy {
			return r
		}
	}
	return nil
}

func (p *Pool) newResourceLocked() *resource {
	p.nextResourceID++
	r := &resource{id: p.nextResourceID}
	p.resources = append(p.resources, r)
	return r
}

func (p *Pool) removeResourceLocked(target *resource) {
	out := p.resources[:0]
	for _, r := range p.resources {
		if r != target {
			out = append(out, r)
		}
	}
	p.resources = out
}

// dispatch runs one Job on res, dialing and authenticating res.client
// lazily on first use, then requeues or finalises the Job depending on
// whether the failure (if any) was connection-level.
func (p *Pool) dispatch(res *resource, e *entry) {
	if res.client == nil {
		client, err := p.dial(context.Background())
		if err != nil {
			p.finishFailedDial(res, e, err)
			return
		}
		if p.creds != nil {
			if err := client.Authenticate(*p.creds); err != nil {
				client.Close()
				p.finishFailedDial(res, e, err)
				return
			}
		}
		res.client = client
	}

	result := sendOne(res.client, e.job)
	res.messagesSent++

	maxed := res.messagesSent >= p.cfg.MaxMessages
	connErr := isConnectionError(result.Err)

	p.mu.Lock()
	res.busy = false
	if maxed || connErr {
		p.removeResourceLocked(res)
	}
	p.mu.Unlock()
	if maxed || connErr {
		if res.client != nil {
			res.client.Close()
		}
	}

	if connErr && p.requeueAllowed(e) {
		e.requeueAttempts++
		p.mu.Lock()
		p.queue = append([]*entry{e}, p.queue...)
		p.mu.Unlock()
		if p.metric != nil {
			p.metric.IncRequeued()
		}
	} else {
		if result.Err != nil && p.metric != nil {
			p.metric.IncFailed()
		} else if p.metric != nil {
			p.metric.IncDispatched()
		}
		e.callback(result)
	}
	p.schedule()
}

// finishFailedDial treats a connect/auth failure exactly like a
// connection-level send failure: eligible for requeue, else terminal.
func (p *Pool) finishFailedDial(res *resource, e *entry, err error) {
	p.mu.Lock()
	p.removeResourceLocked(res)
	p.mu.Unlock()

	if p.requeueAllowed(e) {
		e.requeueAttempts++
		p.mu.Lock()
		p.queue = append([]*entry{e}, p.queue...)
		p.mu.Unlock()
		if p.metric != nil {
			p.metric.IncRequeued()
		}
	} else {
		if p.metric != nil {
			p.metric.IncFailed()
		}
		e.callback(Result{MessageID: e.job.MessageID, Err: err})
	}
	p.schedule()
}

func (p *Pool) requeueAllowed(e *entry) bool {
	return p.cfg.MaxRequeues < 0 || e.requeueAttempts < p.cfg.MaxRequeues
}

func sendOne(client *smtp.Client, job Job) Result {
	r, err := job.Open()
	if err != nil {
		return Result{MessageID: job.MessageID, Err: err}
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}

	if err := client.MailFrom(job.From, job.Send); err != nil {
		return Result{MessageID: job.MessageID, Err: err}
	}
	env, err := client.RcptTo(job.To, job.Send)
	if err != nil {
		if env == nil {
			env = &smtp.Envelope{}
		}
		return Result{Envelope: *env, MessageID: job.MessageID, Err: err}
	}
	responses, err := client.Data(r, env)
	return Result{Envelope: *env, MessageID: job.MessageID, Responses: responses, Err: err}
}

func isConnectionError(err error) bool {
	var smtpErr *smtp.Error
	if !errors.As(err, &smtpErr) {
		return false
	}
	switch smtpErr.ErrCode {
	case smtp.ECONNECTION, smtp.ESOCKET, smtp.ETIMEDOUT:
		return true
	default:
		return false
	}
}

// Verify dials one connection, authenticates (if configured), and issues
// QUIT, reporting whether the round trip succeeded.
func (p *Pool) Verify(ctx context.Context) error {
	client, err := p.dial(ctx)
	if err != nil {
		return err
	}
	if p.creds != nil {
		if err := client.Authenticate(*p.creds); err != nil {
			client.Close()
			return err
		}
	}
	return client.Quit()
}

// Close marks the pool closing, refusing further Send calls, and issues
// QUIT on every live connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closing = true
	resources := p.resources
	p.resources = nil
	p.mu.Unlock()

	var firstErr error
	for _, r := range resources {
		if r.client == nil {
			continue
		}
		if err := r.client.Quit(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats reports the pool's current queue depth and live connection count.
type Stats struct {
	QueueDepth     int
	LiveResources int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{QueueDepth: len(p.queue), LiveResources: len(p.resources)}
}
