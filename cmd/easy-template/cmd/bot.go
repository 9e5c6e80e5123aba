package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/GV888/easy-template-mcp/internal/bot"
	"github.com/GV888/easy-template-mcp/internal/config"
	"github.com/GV888/easy-template-mcp/internal/media"
	"github.com/GV888/easy-template-mcp/pkg/vision"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(_ *cobra.Command, _ []string) error {
	if err := cfg.ValidateForBot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	a.autoLogin(ctx)

	if err := tgbotapi.SetLogger(slog.NewLogLogger(log.Handler(), slog.LevelWarn)); err != nil {
		return fmt.Errorf("setting Telegram logger: %w", err)
	}
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("connecting to Telegram: %w", err)
	}
	tg.Debug = cfg.Telegram.Debug
	log.Info("telegram bot authorized", "username", tg.Self.UserName)

	opts := []bot.Option{
		bot.WithLogger(log),
		bot.WithAllowedChats(cfg.Telegram.AllowedChatIDs),
	}

	if cfg.Cloudinary.Configured() {
		up, err := media.NewCloudinary(
			cfg.Cloudinary.CloudName,
			cfg.Cloudinary.APIKey,
			cfg.Cloudinary.APISecret,
			cfg.Cloudinary.Folder,
		)
		if err != nil {
			return err
		}
		opts = append(opts, bot.WithUploader(up))
	} else {
		log.Warn("cloudinary not configured, photo uploads disabled")
	}

	if ex := newExtractor(&cfg.Vision); ex != nil {
		log.Info("product recognition enabled", "backend", ex.Backend())
		opts = append(opts, bot.WithExtractor(ex))
	} else {
		log.Warn("no vision backend configured, photos are uploaded without recognition")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.PollTimeout
	updates := tg.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		tg.StopReceivingUpdates()
	}()

	bot.New(tg, a.client, opts...).Run(ctx, updates)
	log.Info("bot stopped")
	return nil
}

// newExtractor returns nil when no vision backend is configured.
func newExtractor(v *config.VisionConfig) *vision.Extractor {
	hc := &http.Client{Timeout: v.Timeout}

	var backend vision.Backend
	switch v.Backend {
	case config.VisionOpenAICompat:
		backend = vision.NewOpenAICompatBackend(v.OpenAICompat.Endpoint, v.OpenAICompat.Model,
			vision.WithOpenAICompatAPIKey(v.OpenAICompat.APIKey),
			vision.WithOpenAICompatHTTPClient(hc),
		)
	case config.VisionAnthropic:
		backend = vision.NewAnthropicBackend(v.Anthropic.Model,
			vision.WithAnthropicAPIKey(v.Anthropic.APIKey),
			vision.WithAnthropicHTTPClient(hc),
		)
	default:
		return nil
	}

	return vision.NewExtractor(backend,
		vision.WithLanguage(v.Language),
		vision.WithCurrency(v.Currency),
	)
}
