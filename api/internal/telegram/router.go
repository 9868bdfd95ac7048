package telegram

import (
	"context"
	"sync"
	"time"

	"allergen-scan/api/internal/logger"
	"allergen-scan/api/internal/menu"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const maxMessageLen = 3900

// BotAPI is the part of *tgbotapi.BotAPI the router talks to.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot           BotAPI
	Scanner       *menu.Scanner
	BlurThreshold float64

	// Download fetches a Telegram file. Defaults to an HTTP GET.
	Download func(ctx context.Context, url string) ([]byte, error)
	// Debounce is how long to wait for more album pages.
	Debounce time.Duration

	batches sync.Map // key -> *photoBatch
	pending sync.Map // chatID -> *pendingScan
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message

	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}

	switch {
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, *msg, msg.Photo[len(msg.Photo)-1].FileID)
	case msg.Document != nil && isImageMIME(msg.Document.MimeType):
		r.acceptPhoto(ctx, *msg, msg.Document.FileID)
	case msg.Text != "":
		r.send(msg.Chat.ID, "Send me a photo of a menu and I'll list the likely allergens for each dish.")
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, "Send a photo of a menu. For menus over several pages, send them as one album.\n"+
			"I'll reply with each dish and the allergens it probably contains.\nCommands: /health")
	case "health":
		r.send(cid, "✅ OK ("+r.Scanner.EngineName()+")")
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		chatLog(chatID).WithError(err).Warn("Could not send message")
	}
}

// sendLong splits text on line boundaries to stay under Telegram's limit.
func (r *Router) sendLong(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen) {
		r.send(chatID, part)
	}
}

func (r *Router) debounce() time.Duration {
	if r.Debounce > 0 {
		return r.Debounce
	}
	return debounce
}

func chatLog(chatID int64) *logrus.Entry {
	return logger.WithField("chat_id", chatID)
}
