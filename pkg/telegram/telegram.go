package telegram

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"

	"crypto-signals/config"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/utils"
)

type userLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Notifier delivers rendered messages to subscriber chats through a shared bot,
// honoring Telegram's global and per-chat send limits.
type Notifier struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
	userLimiters  map[int64]*userLimiterEntry
	mu            sync.Mutex
	wg            sync.WaitGroup
}

func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger, bot *telebot.Bot) *Notifier {
	return &Notifier{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxGlobalRequestPerSecond), cfg.MaxGlobalRequestPerSecond),
		userLimiters:  make(map[int64]*userLimiterEntry),
	}
}

// SendMessage delivers a message to a single chat. Returns an error when the
// rate limit wait is cancelled or the Telegram API rejects the send.
func (t *Notifier) SendMessage(ctx context.Context, chatID int64, message string, opts ...interface{}) error {
	if err := t.checkRateLimit(ctx, chatID); err != nil {
		return err
	}

	_, err := t.bot.Send(&telebot.User{ID: chatID}, message, opts...)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to send telegram message",
			logger.Int64Field("chat_id", chatID),
			logger.ErrorField(err),
		)
		return err
	}
	return nil
}

func (t *Notifier) getUserLimiter(chatID int64) *userLimiterEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, exists := t.userLimiters[chatID]; exists {
		entry.lastAccess = time.Now()
		return entry
	}

	entry := &userLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(t.cfg.MaxUserRequestPerSecond), t.cfg.MaxUserRequestPerSecond),
		lastAccess: time.Now(),
	}
	t.userLimiters[chatID] = entry
	return entry
}

func (t *Notifier) checkRateLimit(ctx context.Context, chatID int64) error {
	userLimiter := t.getUserLimiter(chatID)

	if err := t.globalLimiter.Wait(ctx); err != nil {
		t.log.ErrorContext(ctx, "Failed to wait for global rate limit", logger.ErrorField(err))
		return err
	}
	if err := userLimiter.limiter.Wait(ctx); err != nil {
		t.log.ErrorContext(ctx, "Failed to wait for user rate limit", logger.ErrorField(err))
		return err
	}
	return nil
}

// StartCleanupExpired evicts per-chat limiters that have been idle longer than
// the configured expiry. Runs until the context is done.
func (t *Notifier) StartCleanupExpired(ctx context.Context) {
	t.wg.Add(1)
	utils.GoSafe(func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.cfg.RateLimitCleanupDuration)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				t.log.Info("Received signal to stop telegram rate limiter cleanup")
				return
			case <-ticker.C:
				t.mu.Lock()
				now := time.Now()
				for chatID, entry := range t.userLimiters {
					if now.Sub(entry.lastAccess) > t.cfg.RatelimitExpireDuration {
						delete(t.userLimiters, chatID)
					}
				}
				t.mu.Unlock()
			}
		}
	})
}

// Wait blocks until background cleanup has drained.
func (t *Notifier) Wait() {
	t.wg.Wait()
}
