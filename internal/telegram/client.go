// Package telegram provides an optional Telegram front-end for the
// conversation engine. Each Telegram chat maps to one conversation session;
// quick replies become reply keyboards and recommendations are formatted as
// MarkdownV2 messages with map and listing links.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nightowl-app/nightowl/internal/chat"
	"github.com/nightowl-app/nightowl/internal/logger"
	"github.com/nightowl-app/nightowl/internal/models"
)

// Client bridges Telegram updates to the conversation engine.
type Client struct {
	bot    *tgbotapi.BotAPI
	engine *chat.Engine

	mu       sync.Mutex
	sessions map[int64]string // Telegram chat ID -> conversation session ID
}

// NewClient creates a Telegram client.
func NewClient(botToken string, engine *chat.Engine) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Client{
		bot:      bot,
		engine:   engine,
		sessions: make(map[int64]string),
	}, nil
}

// Listen long-polls for updates until the context is cancelled. Each message
// is handled in its own goroutine so one slow session never blocks others.
func (c *Client) Listen(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := c.bot.GetUpdatesChan(updateConfig)
	logger.Info("Telegram front-end listening as @%s", c.bot.Self.UserName)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message == nil || update.Message.Text == "" {
					continue
				}
				go c.handleMessage(ctx, update.Message)
			}
		}
	}()
}

func (c *Client) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := msg.Text
	if text == "/start" {
		c.resetSession(msg.Chat.ID)
		text = "start"
	}

	resp := c.engine.Handle(ctx, c.sessionFor(msg.Chat.ID), text)
	c.rememberSession(msg.Chat.ID, resp.SessionID)

	out := tgbotapi.NewMessage(msg.Chat.ID, c.formatResponse(resp))
	out.ParseMode = "MarkdownV2"
	out.DisableWebPagePreview = true
	if kb := quickReplyKeyboard(resp.QuickReplies); kb != nil {
		out.ReplyMarkup = kb
	}

	if _, err := c.bot.Send(out); err != nil {
		logger.Warn("Failed to send Telegram reply to chat %d: %v", msg.Chat.ID, err)
	}
}

func (c *Client) sessionFor(chatID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[chatID]
}

func (c *Client) rememberSession(chatID int64, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[chatID] = sessionID
}

func (c *Client) resetSession(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, chatID)
}

// formatResponse renders the engine reply plus any recommendations.
func (c *Client) formatResponse(resp chat.Response) string {
	var b strings.Builder
	b.WriteString(escapeMarkdownV2(resp.Reply))

	for i, rec := range resp.Recommendations {
		b.WriteString("\n\n")
		b.WriteString(formatRecommendation(i+1, rec))
	}
	return b.String()
}

func formatRecommendation(rank int, rec models.Recommendation) string {
	var b strings.Builder

	title := escapeMarkdownV2(rec.Event.Title)
	if rec.Event.SourceURL != "" {
		title = fmt.Sprintf("[%s](%s)", title, rec.Event.SourceURL)
	}
	fmt.Fprintf(&b, "%d\\. %s\n", rank, title)

	fmt.Fprintf(&b, "   📍 [%s](%s)\n", escapeMarkdownV2(rec.Event.Venue), rec.MapURL)
	fmt.Fprintf(&b, "   🗓 %s\n", escapeMarkdownV2(rec.DateLabel))
	fmt.Fprintf(&b, "   ⭐ *%d* — %s", rec.Score.Total, escapeMarkdownV2(rec.Score.Badge))

	if len(rec.Event.Tags) > 0 {
		fmt.Fprintf(&b, "\n   🏷 %s", escapeMarkdownV2(strings.Join(rec.Event.Tags, ", ")))
	}
	return b.String()
}

func quickReplyKeyboard(replies []string) interface{} {
	if len(replies) == 0 {
		return nil
	}
	buttons := make([]tgbotapi.KeyboardButton, 0, len(replies))
	for _, r := range replies {
		buttons = append(buttons, tgbotapi.NewKeyboardButton(r))
	}
	kb := tgbotapi.NewReplyKeyboard(buttons)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
