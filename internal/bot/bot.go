// Package bot implements the Telegram front-end: article commands and
// photo-to-article drafts.
package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/media"
	"github.com/GV888/easy-template-mcp/internal/metrics"
	"github.com/GV888/easy-template-mcp/pkg/vision"
)

// Callback data of the draft confirmation buttons.
const (
	callbackCreate = "create_article"
	callbackCancel = "cancel_article"
)

// Messenger is the part of *tgbotapi.BotAPI the bot uses.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// ProductExtractor turns a product photo into an article draft.
type ProductExtractor interface {
	ExtractProduct(ctx context.Context, imageURL string) (*vision.Product, error)
}

// Bot handles Telegram updates.
type Bot struct {
	tg        Messenger
	api       easytemplate.API
	uploader  media.Uploader
	extractor ProductExtractor
	allowed   map[int64]struct{}
	log       *slog.Logger

	mu      sync.Mutex
	pending map[int64]easytemplate.Article // drafts awaiting confirmation, by chat

	wg sync.WaitGroup
}

// Option configures a Bot.
type Option func(*Bot)

// WithUploader enables photo uploads.
func WithUploader(u media.Uploader) Option {
	return func(b *Bot) { b.uploader = u }
}

// WithExtractor enables product recognition on uploaded photos.
func WithExtractor(e ProductExtractor) Option {
	return func(b *Bot) { b.extractor = e }
}

// WithAllowedChats restricts the bot to the given chats. Empty allows all.
func WithAllowedChats(ids []int64) Option {
	return func(b *Bot) {
		for _, id := range ids {
			b.allowed[id] = struct{}{}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.log = l }
}

// New creates a Bot.
func New(tg Messenger, api easytemplate.API, opts ...Option) *Bot {
	b := &Bot{
		tg:      tg,
		api:     api,
		allowed: make(map[int64]struct{}),
		log:     slog.New(slog.DiscardHandler),
		pending: make(map[int64]easytemplate.Article),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run handles updates until ctx is done or the channel closes, then waits
// for in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, u)
			}()
		}
	}
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		if !b.permitted(u.CallbackQuery.Message.Chat.ID) {
			metrics.BotUpdatesTotal.WithLabelValues("rejected").Inc()
			return
		}
		metrics.BotUpdatesTotal.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, u.CallbackQuery)

	case u.Message != nil:
		msg := u.Message
		if !b.permitted(msg.Chat.ID) {
			metrics.BotUpdatesTotal.WithLabelValues("rejected").Inc()
			b.log.Warn("update from chat not allowed", "chat_id", msg.Chat.ID)
			b.reply(msg.Chat.ID, "This chat is not authorized to use this bot.")
			return
		}

		switch {
		case msg.IsCommand():
			metrics.BotUpdatesTotal.WithLabelValues("command").Inc()
			b.handleCommand(ctx, msg)
		case len(msg.Photo) > 0:
			metrics.BotUpdatesTotal.WithLabelValues("photo").Inc()
			// The last size is the largest.
			b.handleImage(ctx, msg.Chat.ID, msg.Photo[len(msg.Photo)-1].FileID)
		case msg.Document != nil:
			metrics.BotUpdatesTotal.WithLabelValues("document").Inc()
			b.handleDocument(ctx, msg)
		default:
			metrics.BotUpdatesTotal.WithLabelValues("other").Inc()
		}

	default:
		metrics.BotUpdatesTotal.WithLabelValues("other").Inc()
	}
}

func (b *Bot) permitted(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[chatID]
	return ok
}

func (b *Bot) setPending(chatID int64, a easytemplate.Article) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[chatID] = a
}

func (b *Bot) takePending(chatID int64) (easytemplate.Article, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.pending[chatID]
	delete(b.pending, chatID)
	return a, ok
}

// --- send helpers; failures are logged, there is no one to return them to ---

func (b *Bot) reply(chatID int64, text string) tgbotapi.Message {
	return b.replyHTML(chatID, text, "")
}

func (b *Bot) replyHTML(chatID int64, text, mode string) tgbotapi.Message {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = mode
	m.DisableWebPagePreview = true
	sent, err := b.tg.Send(m)
	if err != nil {
		b.log.Error("sending message failed", "chat_id", chatID, "error", err)
	}
	return sent
}

func (b *Bot) edit(chatID int64, msgID int, text, mode string) {
	e := tgbotapi.NewEditMessageText(chatID, msgID, text)
	e.ParseMode = mode
	e.DisableWebPagePreview = true
	if _, err := b.tg.Send(e); err != nil {
		b.log.Error("editing message failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) remove(chatID int64, msgID int) {
	if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		b.log.Warn("deleting message failed", "chat_id", chatID, "error", err)
	}
}

func errorText(err error) string {
	return "Error: " + err.Error()
}
