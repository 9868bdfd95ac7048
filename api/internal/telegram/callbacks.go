package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	// drop the keyboard so the choice can't be made twice
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{})
	_, _ = r.Bot.Send(edit)

	switch cb.Data {
	case cbScanAnyway:
		r.onScanAnyway(ctx, cid)
	case cbDiscard:
		r.pending.Delete(cid)
		r.send(cid, "Ok. Hold the phone steady and make sure the text is in focus.")
	}
}

func (r *Router) onScanAnyway(ctx context.Context, chatID int64) {
	v, ok := r.pending.LoadAndDelete(chatID)
	if !ok || time.Since(v.(*pendingScan).At) > pendingTTL {
		r.send(chatID, "That photo has expired. Please send it again.")
		return
	}
	p := v.(*pendingScan)
	chatLog(chatID).WithField("score", p.Score).Info("Scanning blurry photo on request")
	r.scan(ctx, chatID, p.Image)
}
