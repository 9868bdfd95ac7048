package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "allergen-scan/api/internal/errors"
	"allergen-scan/api/internal/menu"
	"allergen-scan/api/internal/sharpness"
	"allergen-scan/api/internal/util"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// checkThenScan runs the blur check first. A blurry photo is parked until the
// user decides; a sharp one goes straight to the scanner.
func (r *Router) checkThenScan(ctx context.Context, chatID int64, img []byte) {
	rep, err := sharpness.AssessBytes(img, r.BlurThreshold)
	if err != nil {
		r.sendError(chatID, "Could not read the photo. Please send it as JPEG or PNG.", err)
		return
	}
	if rep.IsBlurry {
		r.pending.Store(chatID, &pendingScan{Image: img, Score: rep.Score, At: time.Now()})
		msg := tgbotapi.NewMessage(chatID, "This photo looks blurry, so some dishes may be misread. Scan it anyway?")
		msg.ReplyMarkup = makeBlurryKeyboard()
		if _, err := r.Bot.Send(msg); err != nil {
			chatLog(chatID).WithError(err).Warn("Could not send message")
		}
		return
	}
	r.scan(ctx, chatID, img)
}

func (r *Router) scan(ctx context.Context, chatID int64, img []byte) {
	req := menu.ScanRequest{
		Image:  util.MakeDataURL("image/jpeg", img),
		Source: "telegram",
	}
	res, err := r.Scanner.Scan(ctx, menu.VariantBasic, req)
	if err != nil {
		msg := "Something went wrong while reading the menu. Please try again."
		if apperrors.IsKind(err, apperrors.KindParseFailure) {
			msg = "I couldn't find any dishes in this photo. Try a closer shot of the menu text."
		}
		r.sendError(chatID, msg, err)
		return
	}
	r.sendLong(chatID, formatItems(res.Items))
}

func (r *Router) sendError(chatID int64, text string, err error) {
	chatLog(chatID).WithError(err).WithField("kind", apperrors.KindOf(err)).Warn(text)
	r.send(chatID, "⚠️ "+text)
}

func formatItems(items []menu.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍽 Found %d %s:\n", len(items), plural(len(items), "dish", "dishes"))
	for _, it := range items {
		b.WriteString("\n• ")
		b.WriteString(it.Name)
		b.WriteString(": ")
		if len(it.Allergens) == 0 {
			b.WriteString("no common allergens")
		} else {
			b.WriteString(strings.Join(it.Allergens, ", "))
		}
	}
	b.WriteString("\n\nAllergens are estimated from the menu text. Always confirm with the staff.")
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// splitMessage cuts text into chunks of at most limit bytes, preferring line
// breaks. A single overlong line is cut at a rune boundary.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
