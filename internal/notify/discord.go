package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GV888/easy-template-mcp/internal/metrics"
)

const (
	colorGreen  = 0x2ECC71 // sales and orders
	colorOrange = 0xE67E22 // ended or cancelled listings
	colorBlue   = 0x3498DB // everything else
	colorRed    = 0xE74C3C // session alerts
)

// Discord limits.
const (
	maxEmbeds           = 10
	maxDescriptionRunes = 1000
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// SendSellerEvents posts up to ten events as embeds, with a summary embed
// for the rest.
func (d *DiscordNotifier) SendSellerEvents(ctx context.Context, p *EventsPayload) error {
	if len(p.Events) == 0 {
		return nil
	}

	limit := min(len(p.Events), maxEmbeds)
	if len(p.Events) > maxEmbeds {
		limit = maxEmbeds - 1
	}

	embeds := make([]discordEmbed, 0, maxEmbeds)
	for i := range limit {
		embeds = append(embeds, buildEventEmbed(p.Events[i]))
	}
	if rest := len(p.Events) - limit; rest > 0 {
		embeds = append(embeds, discordEmbed{
			Title:       fmt.Sprintf("... and %d more seller events", rest),
			Color:       colorBlue,
			Description: "Use `etctl events` for the full list.",
		})
	}

	return d.post(ctx, discordWebhookPayload{
		Content: fmt.Sprintf(
			"%d seller event(s) between %s and %s",
			len(p.Events),
			p.Since.UTC().Format(time.RFC3339),
			p.Until.UTC().Format(time.RFC3339),
		),
		Embeds: embeds,
	})
}

// SendSessionAlert posts a single red embed.
func (d *DiscordNotifier) SendSessionAlert(ctx context.Context, message string) error {
	return d.post(ctx, discordWebhookPayload{
		Embeds: []discordEmbed{{
			Title:       "Easy-Template session",
			Color:       colorRed,
			Description: message,
		}},
	})
}

func buildEventEmbed(ev SellerEvent) discordEmbed {
	kind := ev.pick("type", "eventType", "EventType", "event")
	if kind == "" {
		kind = "event"
	}

	embed := discordEmbed{
		Title: "Seller event: " + kind,
		Color: eventColor(kind),
	}

	if id := ev.pick("itemId", "ItemID", "ebayItemId", "itemID"); id != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Item", Value: id, Inline: true})
	}
	if id := ev.pick("articleId", "ArticleID"); id != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Article", Value: id, Inline: true})
	}
	if ts := ev.pick("timestamp", "time", "date", "Timestamp"); ts != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Time", Value: ts, Inline: true})
	}

	if raw, err := json.Marshal(map[string]any(ev)); err == nil {
		embed.Description = "```json\n" + truncate(string(raw), maxDescriptionRunes) + "\n```"
	}
	return embed
}

// pick returns the first present key rendered as text.
func (ev SellerEvent) pick(keys ...string) string {
	for _, k := range keys {
		v, ok := ev[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return fmt.Sprintf("%.0f", t)
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

func eventColor(kind string) int {
	k := strings.ToLower(kind)
	switch {
	case strings.Contains(k, "sold"), strings.Contains(k, "order"), strings.Contains(k, "sale"):
		return colorGreen
	case strings.Contains(k, "end"), strings.Contains(k, "cancel"):
		return colorOrange
	default:
		return colorBlue
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		metrics.NotificationFailuresTotal.Inc()
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.NotificationFailuresTotal.Inc()
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.NotificationFailuresTotal.Inc()
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
