package bot

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

const (
	defaultItemsLimit = 10
	maxTitleRunes     = 50
	maxPreviewImages  = 3
)

const helpText = "Available commands:\n\n" +
	"Send a photo: the product is recognized and an article draft is offered for creation\n" +
	"/login <client-id> <client-secret> - log in to Easy-Template\n" +
	"/items [limit] - list articles (default 10)\n" +
	"/item <id> - article details\n" +
	"/addimage <id> <url> - add an image URL to an article\n" +
	"/help - this help"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.reply(chatID, "Easy-Template Bot\n\n"+helpText)
	case "help":
		b.reply(chatID, helpText)
	case "login":
		b.cmdLogin(ctx, msg, args)
	case "items":
		b.cmdItems(ctx, chatID, args)
	case "item":
		b.cmdItem(ctx, chatID, args)
	case "addimage":
		b.cmdAddImage(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Send /help for the list of commands.")
	}
}

func (b *Bot) cmdLogin(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatID := msg.Chat.ID
	// The message carries the secret; do not leave it in the chat.
	b.remove(chatID, msg.MessageID)

	if len(args) != 2 {
		b.reply(chatID, "Usage: /login <client-id> <client-secret>")
		return
	}
	if err := b.api.Login(ctx, args[0], args[1]); err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, "Logged in to Easy-Template.")
}

func (b *Bot) cmdItems(ctx context.Context, chatID int64, args []string) {
	limit := defaultItemsLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			b.reply(chatID, "Usage: /items [limit]")
			return
		}
		limit = n
	}

	b.reply(chatID, "Loading articles...")
	list, err := b.api.ListItems(ctx, easytemplate.ListItemsRequest{Limit: limit})
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%d article(s):</b>\n\n", len(list.Items))
	for _, item := range list.Items {
		fmt.Fprintf(&sb, "• <b>%d</b> - %s - %s\n",
			item.ID(),
			html.EscapeString(truncate(item.Title(), maxTitleRunes)),
			html.EscapeString(orDash(item.SalePrice())),
		)
	}
	b.replyHTML(chatID, strings.TrimRight(sb.String(), "\n"), tgbotapi.ModeHTML)
}

func (b *Bot) cmdItem(ctx context.Context, chatID int64, args []string) {
	id, ok := parseID(args)
	if !ok {
		b.reply(chatID, "Usage: /item <id>")
		return
	}

	item, err := b.api.GetItem(ctx, id)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}

	images := item.Images()
	var imgList strings.Builder
	if len(images) == 0 {
		imgList.WriteString("  <i>(no images)</i>")
	}
	for i, u := range images[:min(len(images), maxPreviewImages)] {
		if i > 0 {
			imgList.WriteByte('\n')
		}
		fmt.Fprintf(&imgList, "  %d. %s", i+1, html.EscapeString(u))
	}

	text := fmt.Sprintf("<b>Article %d</b>\n\nTitle: %s\nPrice: %s\nQuantity: %s\n\nImages:\n%s",
		id,
		html.EscapeString(orDash(item.Title())),
		html.EscapeString(orDash(item.SalePrice())),
		html.EscapeString(orDash(item.Text("Quantity"))),
		imgList.String(),
	)
	b.replyHTML(chatID, text, tgbotapi.ModeHTML)
}

func (b *Bot) cmdAddImage(ctx context.Context, chatID int64, args []string) {
	id, ok := parseID(args)
	if !ok || len(args) != 2 || !isHTTPURL(args[1]) {
		b.reply(chatID, "Usage: /addimage <id> <url>")
		return
	}
	imageURL := args[1]

	item, err := b.api.GetItem(ctx, id)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}

	images := append(slices.Clip(item.Images()), imageURL)
	if _, err := b.api.UpdateItem(ctx, id, easytemplate.Article{"images": images}); err != nil {
		b.reply(chatID, errorText(err))
		return
	}

	b.replyHTML(chatID, fmt.Sprintf("Image added to article <b>%d</b>.\n\nURL: %s\nTotal images: %d",
		id, html.EscapeString(imageURL), len(images)), tgbotapi.ModeHTML)
}

func parseID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDash(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
