package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/metrics"
	"github.com/GV888/easy-template-mcp/pkg/vision"
)

const cloudinaryMissing = "Cloudinary is not configured.\n" +
	"Set CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET."

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	if !strings.HasPrefix(msg.Document.MimeType, "image/") {
		b.reply(msg.Chat.ID, "Only image files are supported.")
		return
	}
	b.handleImage(ctx, msg.Chat.ID, msg.Document.FileID)
}

// handleImage re-hosts a chat photo and, when product recognition is
// available, offers an article draft for confirmation.
func (b *Bot) handleImage(ctx context.Context, chatID int64, fileID string) {
	if b.uploader == nil {
		b.reply(chatID, cloudinaryMissing)
		return
	}

	status := b.reply(chatID, "Uploading and analyzing image...")

	publicURL, err := b.upload(ctx, fileID)
	if err != nil {
		b.edit(chatID, status.MessageID, errorText(err), "")
		return
	}

	if b.extractor == nil {
		b.edit(chatID, status.MessageID, fmt.Sprintf(
			"<b>Image uploaded.</b>\n\nURL:\n<code>%[1]s</code>\n\n"+
				"Attach it to an article:\n/addimage &lt;article-id&gt; %[1]s\n\n"+
				"Set OPENAI_API_KEY, GITHUB_TOKEN or ANTHROPIC_API_KEY to enable product recognition.",
			html.EscapeString(publicURL)), tgbotapi.ModeHTML)
		return
	}

	b.edit(chatID, status.MessageID, "Analyzing product image...", "")

	product, err := b.extract(ctx, publicURL)
	if err != nil {
		b.edit(chatID, status.MessageID, errorText(err), "")
		return
	}

	b.setPending(chatID, easytemplate.Article(product.Fields(publicURL)))
	b.remove(chatID, status.MessageID)

	m := tgbotapi.NewMessage(chatID, formatPreview(product, publicURL))
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Yes, create article", callbackCreate),
		tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackCancel),
	))
	if _, err := b.tg.Send(m); err != nil {
		b.log.Error("sending preview failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) upload(ctx context.Context, fileID string) (string, error) {
	fileURL, err := b.tg.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("fetching Telegram file: %w", err)
	}
	return b.uploader.Upload(ctx, fileURL)
}

func (b *Bot) extract(ctx context.Context, imageURL string) (*vision.Product, error) {
	start := time.Now()
	p, err := b.extractor.ExtractProduct(ctx, imageURL)
	metrics.VisionExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VisionExtractionFailuresTotal.Inc()
		return nil, err
	}
	return p, nil
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID

	if _, err := b.tg.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Warn("answering callback failed", "error", err)
	}

	switch q.Data {
	case callbackCancel:
		b.takePending(chatID)
		b.edit(chatID, msgID, "Cancelled. No article created.", "")

	case callbackCreate:
		article, ok := b.takePending(chatID)
		if !ok {
			b.edit(chatID, msgID, "No article draft found. Please send the photo again.", "")
			return
		}

		b.edit(chatID, msgID, "Creating article...", "")
		res, err := b.api.CreateItem(ctx, article)
		if err != nil {
			b.edit(chatID, msgID, errorText(err), "")
			return
		}

		id := "?"
		if res.ArticleID > 0 {
			id = strconv.FormatInt(res.ArticleID, 10)
		}
		b.edit(chatID, msgID, fmt.Sprintf(
			"<b>Article created.</b>\n\nArticle ID: <b>%[1]s</b>\nDetails: /item %[1]s", id), tgbotapi.ModeHTML)
	}
}

func formatPreview(p *vision.Product, imageURL string) string {
	var sb strings.Builder
	sb.WriteString("<b>Article preview</b>\n\n")
	fmt.Fprintf(&sb, "<b>Title:</b> %s\n", html.EscapeString(p.Title))
	fmt.Fprintf(&sb, "<b>Price:</b> %s", formatPrice(p.SalePrice))
	if p.OriginalPrice != nil {
		fmt.Fprintf(&sb, " <i>(RRP: %s)</i>", formatPrice(*p.OriginalPrice))
	}
	fmt.Fprintf(&sb, "\n<b>Quantity:</b> %d\n", p.Quantity)
	if p.ProductCode != "" {
		fmt.Fprintf(&sb, "<b>SKU:</b> %s\n", html.EscapeString(p.ProductCode))
	}
	fmt.Fprintf(&sb, "\n<b>Short description:</b>\n%s\n", html.EscapeString(p.ShortDescription))
	fmt.Fprintf(&sb, "\n<b>Long description:</b>\n%s\n", html.EscapeString(p.LongDescription))
	fmt.Fprintf(&sb, "\n<b>Image:</b> <a href=\"%s\">Cloudinary</a>\n\n", html.EscapeString(imageURL))
	sb.WriteString("Create this article?")
	return sb.String()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
