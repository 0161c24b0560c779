package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// ErrDeliveryFailed marks a message dropped after exhausting its retry
// budget. The message is not re-queued: it is not re-derivable from the
// fixture store, so the loss is accepted and logged.
var ErrDeliveryFailed = errors.New("message delivery failed")

// Sender delivers one message to one chat.
type Sender interface {
	Send(chatID int64, text string) error
}

// telegramSender sends through the Bot API with HTML rendering.
type telegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender creates a Sender backed by a Telegram bot token.
func NewTelegramSender(token string) (Sender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false
	return &telegramSender{bot: bot}, nil
}

func (s *telegramSender) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// windowGate is a fixed-window send budget: maxRate acquisitions per
// interval, then the caller suspends until the window has fully elapsed and
// the counter resets. Fixed-window deliberately allows a burst across the
// window boundary. All dispatch work in a batch shares one gate.
type windowGate struct {
	mu       sync.Mutex
	maxRate  int
	interval time.Duration
	clk      clock

	count       int
	windowStart time.Time
}

func newWindowGate(maxRate int, interval time.Duration, clk clock) *windowGate {
	return &windowGate{maxRate: maxRate, interval: interval, clk: clk}
}

// Acquire consumes one send from the window budget, blocking until the
// window elapses when the budget is spent. The lock is released while
// sleeping, so the budget is re-checked on waking: another acquirer may
// have started and partly spent the new window in the meantime.
func (g *windowGate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.count == 0 {
		g.windowStart = g.clk.Now()
	}

	for g.count >= g.maxRate {
		remaining := g.interval - g.clk.Now().Sub(g.windowStart)
		if remaining <= 0 {
			g.count = 0
			g.windowStart = g.clk.Now()
			break
		}
		slog.Info("Rate limit reached, waiting for window to elapse", "wait", remaining)
		g.mu.Unlock()
		err := g.clk.Sleep(ctx, remaining)
		g.mu.Lock()
		if err != nil {
			return err
		}
	}

	g.count++
	return nil
}

// Dispatcher delivers formatted messages to chat channels with a shared
// fixed-window budget, inter-message pacing and per-message backoff retry.
type Dispatcher struct {
	sender   Sender
	gate     *windowGate
	pacer    *rate.Limiter
	attempts int
	backoff  time.Duration
	clk      clock
}

// DispatcherOptions configures delivery behavior.
type DispatcherOptions struct {
	MaxRate      int           // sends allowed per rate interval
	RateInterval time.Duration // fixed window length
	Pacing       time.Duration // minimum spacing between consecutive sends
	Attempts     int           // delivery attempts per message
	Backoff      time.Duration // initial retry backoff, doubled per attempt
}

// NewDispatcher creates a dispatcher around a sender.
func NewDispatcher(sender Sender, opts DispatcherOptions) *Dispatcher {
	return newDispatcher(sender, opts, realClock{})
}

func newDispatcher(sender Sender, opts DispatcherOptions, clk clock) *Dispatcher {
	pacer := rate.NewLimiter(rate.Inf, 1)
	if opts.Pacing > 0 {
		pacer = rate.NewLimiter(rate.Every(opts.Pacing), 1)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}

	return &Dispatcher{
		sender:   sender,
		gate:     newWindowGate(opts.MaxRate, opts.RateInterval, clk),
		pacer:    pacer,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		clk:      clk,
	}
}

// SendBatch delivers the messages to the chat in order. A message that
// exhausts its retries is dropped and logged; the rest of the batch still
// goes out. Returns the number of messages delivered.
func (d *Dispatcher) SendBatch(ctx context.Context, chatID int64, messages []string) int {
	sent := 0
	for i, message := range messages {
		if err := d.gate.Acquire(ctx); err != nil {
			slog.Warn("Dispatch cancelled while waiting for rate window", "remaining", len(messages)-i)
			return sent
		}
		if err := d.pacer.Wait(ctx); err != nil {
			slog.Warn("Dispatch cancelled while pacing", "remaining", len(messages)-i)
			return sent
		}

		if err := d.sendWithRetry(ctx, chatID, message); err != nil {
			slog.Error("Dropping message after failed delivery", "chat_id", chatID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// sendWithRetry attempts one message with doubling backoff between
// attempts.
func (d *Dispatcher) sendWithRetry(ctx context.Context, chatID int64, message string) error {
	delay := d.backoff
	var lastErr error

	for attempt := 1; attempt <= d.attempts; attempt++ {
		err := d.sender.Send(chatID, message)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Warn("Failed to send message, retrying", "attempt", attempt, "backoff", delay, "error", err)

		if attempt < d.attempts {
			if sleepErr := d.clk.Sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, d.attempts, lastErr)
}
