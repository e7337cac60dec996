// Package alerting delivers operator notifications over Telegram.
package alerting

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
)

// Min interval between any two Telegram messages to the same chat to avoid 429 Too Many Requests (~30/min limit).
const sendInterval = 2 * time.Second

// Notifier sends operator alerts to a Telegram chat. A nil Notifier is valid
// and drops every message, so callers never branch on configuration.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger

	mu       sync.Mutex
	lastSend time.Time
}

// New builds a Notifier from config. It returns nil when alerting is disabled
// or the bot cannot be reached; the failure is logged rather than returned
// because a broken alert channel must not stop the aggregator.
func New(cfg *config.TelegramConfig, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	if cfg == nil || cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("Failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		log.Error("Failed to verify telegram bot", "error", err)
		return nil
	}

	log.Info("Telegram alerting enabled", "chat_id", cfg.ChatID)
	return &Notifier{bot: bot, chatID: cfg.ChatID, log: log}
}

// SendError reports the start of a polling failure streak.
func (n *Notifier) SendError(err error) {
	if n == nil || err == nil {
		return
	}
	n.send(fmt.Sprintf("🚨 *Odds polling failed*\n\n%s\n\n_Time: %s_",
		escapeMarkdown(err.Error()), time.Now().UTC().Format("2006-01-02 15:04:05 UTC")))
}

// SendRecovery reports that polling succeeded again after a failure streak.
func (n *Notifier) SendRecovery() {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("✅ *Odds polling recovered*\n\n_Time: %s_",
		time.Now().UTC().Format("2006-01-02 15:04:05 UTC")))
}

func (n *Notifier) send(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if wait := sendInterval - time.Since(n.lastSend); wait > 0 {
		time.Sleep(wait)
	}
	n.lastSend = time.Now()

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error("Failed to send telegram alert", "error", err)
	}
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
