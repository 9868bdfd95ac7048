package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbScanAnyway = "scan_anyway"
	cbDiscard    = "scan_discard"
)

// Shown when a photo looks blurry.
func makeBlurryKeyboard() tgbotapi.InlineKeyboardMarkup {
	yes := tgbotapi.NewInlineKeyboardButtonData("Scan anyway", cbScanAnyway)
	no := tgbotapi.NewInlineKeyboardButtonData("I'll retake it", cbDiscard)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(yes, no))
}
