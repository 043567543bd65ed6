// Package telegram posts operational notifications to an ops chat.
package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/logging"
)

const (
	eventBuffer   = 64
	dedupWindow   = 10 * time.Minute
	cleanupPeriod = time.Hour
)

// Notifier queues events and delivers them from a background goroutine.
type Notifier struct {
	sender  Sender
	chatID  int64
	enabled bool
	limiter *RateLimiter
	dedup   *DedupLimiter
	logger  *logging.Logger
	now     func() time.Time

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	start  sync.Once
}

// NewNotifier builds a notifier. A nil sender or disabled config yields a
// notifier that drops every event.
func NewNotifier(cfg config.TelegramConfig, sender Sender, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		sender:  sender,
		chatID:  cfg.ChatID,
		enabled: cfg.Enabled && sender != nil && cfg.ChatID != 0,
		limiter: NewRateLimiter(cfg.RateLimit.MessagesPerMinute),
		dedup:   NewDedupLimiter(dedupWindow),
		logger:  logger,
		now:     time.Now,
		events:  make(chan Event, eventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enabled reports whether events are delivered.
func (n *Notifier) Enabled() bool {
	return n != nil && n.enabled
}

// Start launches the delivery loop. Calling it more than once is a no-op.
func (n *Notifier) Start() {
	if !n.Enabled() {
		return
	}
	n.start.Do(func() {
		n.wg.Add(2)
		go n.deliver()
		go n.dedupCleanup()
	})
}

// Stop cancels delivery and waits for the loops to exit. Queued events are dropped.
func (n *Notifier) Stop() error {
	if n == nil {
		return nil
	}
	n.cancel()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timeout waiting for notifier to stop")
	}
}

// ConnectSucceeded reports a finished connect and the number of accounts saved.
func (n *Notifier) ConnectSucceeded(platform string, accounts int) {
	n.enqueue(Event{Kind: EventConnectSucceeded, Platform: platform, Accounts: accounts})
}

// ConnectFailed reports a failed connect. Repeats per platform are suppressed
// for ten minutes.
func (n *Notifier) ConnectFailed(platform string) {
	n.enqueue(Event{Kind: EventConnectFailed, Platform: platform})
}

// ServerStarted announces a (re)start with a short detail line.
func (n *Notifier) ServerStarted(detail string) {
	n.enqueue(Event{Kind: EventServerStarted, Detail: detail})
}

func (n *Notifier) enqueue(e Event) {
	if !n.Enabled() {
		return
	}
	if key := e.dedupKey(); key != "" && !n.dedup.CanSend(key) {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = n.now()
	}
	select {
	case n.events <- e:
	default:
		n.logger.Warn("telegram queue full, dropping event", "kind", string(e.Kind))
	}
}

func (n *Notifier) deliver() {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			return
		case e := <-n.events:
			n.send(e)
		}
	}
}

func (n *Notifier) send(e Event) {
	if !n.limiter.Allow() {
		n.logger.Warn("telegram rate limit exceeded, dropping event", "kind", string(e.Kind))
		return
	}
	if err := n.sender.SendMessage(n.chatID, formatEvent(e)); err != nil {
		n.logger.Error("telegram send failed", "kind", string(e.Kind), "error", err)
	}
}

func (n *Notifier) dedupCleanup() {
	defer n.wg.Done()

	ticker := time.NewTicker(cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.dedup.Cleanup()
		}
	}
}
