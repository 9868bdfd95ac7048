package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"allergen-scan/api/internal/bootstrap"
	"allergen-scan/api/internal/config"
	"allergen-scan/api/internal/httpserver"
	"allergen-scan/api/internal/logger"
	"allergen-scan/api/internal/telegram"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	if cfg.TelegramBotToken == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN not found in environment variables")
	}
	logger.SetLevel(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Startup failed")
	}
	defer app.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		app.Close()
		logger.WithError(err).Fatal("Telegram login failed")
	}
	bot.Debug = false
	logger.WithField("bot", bot.Self.UserName).Info("Telegram bot authorized")

	r := &telegram.Router{
		Bot:           bot,
		Scanner:       app.Scanner,
		BlurThreshold: cfg.BlurThreshold,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		if app.Scans != nil {
			pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := app.Scans.Ping(pingCtx); err != nil {
				c.String(http.StatusServiceUnavailable, "db: not ok")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})

	if webhookURL := strings.TrimSpace(cfg.TelegramWebhookURL); webhookURL != "" {
		err = startWebhookMode(ctx, cfg.Addr(), bot, r, engine, webhookURL)
	} else {
		err = startPollingMode(ctx, cfg.Addr(), bot, r, engine)
	}
	if err != nil {
		logger.WithError(err).Error("Bot stopped")
		app.Close()
		os.Exit(1)
	}
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, engine *gin.Engine, baseURL string) error {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	engine.POST(path, func(c *gin.Context) {
		upd, err := bot.HandleUpdate(c.Request)
		if err != nil {
			logger.WithError(err).Warn("Bad webhook update")
			c.Status(http.StatusBadRequest)
			return
		}
		// answer Telegram right away; scans take seconds
		go r.HandleUpdate(ctx, *upd)
		c.Status(http.StatusOK)
	})

	logger.WithField("path", path).Info("Webhook mode")
	return httpserver.Run(ctx, addr, engine)
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, engine *gin.Engine) error {
	// health endpoint only; polling does not need inbound HTTP
	go func() {
		if err := httpserver.Run(ctx, addr, engine); err != nil {
			logger.WithError(err).Error("Health server stopped")
		}
	}()

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.WithError(err).Warn("Could not delete webhook")
	}
	logger.Info("Polling mode")
	runPolling(ctx, bot, func(upd tgbotapi.Update) {
		go r.HandleUpdate(ctx, upd)
	})
	return nil
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func clampDelay(d, lo, hi time.Duration) time.Duration {
	return min(max(d, lo), hi)
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)

	for {
		if ctx.Err() != nil {
			logger.Info("Polling stopped")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err), baseDelay, maxDelay)
			logger.WithError(err).WithField("retry_in", d.String()).Warn("Polling error")
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

// shortHash is FNV-1a of the token, used as an unguessable webhook path.
func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
