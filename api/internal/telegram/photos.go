package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) acceptPhoto(ctx context.Context, msg tgbotapi.Message, fileID string) {
	cid := msg.Chat.ID
	fileURL, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.sendError(cid, "Could not fetch the photo from Telegram.", err)
		return
	}
	imgBytes, err := r.download(ctx, fileURL)
	if err != nil {
		r.sendError(cid, "Could not download the photo.", err)
		return
	}

	key := "chat:" + fmt.Sprint(cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}

	bi, _ := r.batches.LoadOrStore(key, &photoBatch{
		ChatID: cid, Key: key, MediaGroupID: msg.MediaGroupID, images: make([][]byte, 0, 4),
	})
	b := bi.(*photoBatch)

	b.mu.Lock()
	b.images = append(b.images, imgBytes)
	first := len(b.images) == 1
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(r.debounce(), func() { r.processBatch(context.WithoutCancel(ctx), key) })
	b.mu.Unlock()

	if first {
		r.send(cid, "Photo received, reading the menu…")
	}
}

func (r *Router) processBatch(ctx context.Context, key string) {
	bi, ok := r.batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	chatID := b.ChatID
	b.mu.Unlock()

	if len(images) == 0 {
		return
	}

	merged, err := combineAsOne(images)
	if err != nil {
		r.sendError(chatID, "Could not read the photo. Please send it as JPEG or PNG.", err)
		return
	}
	r.checkThenScan(ctx, chatID, merged)
}

// combineAsOne stacks pages vertically on a white canvas and re-encodes the
// result as JPEG, scaled down to maxPixels.
func combineAsOne(images [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	maxW, sumH := 0, 0
	for i, b := range images {
		img, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("decode page %d: %w", i+1, err)
		}
		decoded = append(decoded, img)
		maxW = max(maxW, img.Bounds().Dx())
		sumH += img.Bounds().Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, errors.New("empty images")
	}

	final := decoded[0]
	if len(decoded) > 1 {
		dst := imaging.New(maxW, sumH, color.White)
		y := 0
		for _, img := range decoded {
			x := (maxW - img.Bounds().Dx()) / 2
			dst = imaging.Paste(dst, img, image.Pt(x, y))
			y += img.Bounds().Dy()
		}
		final = dst
	}

	if totalPx := maxW * sumH; totalPx > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(totalPx))
		newW := max(1, int(float64(maxW)*scale+0.5))
		final = imaging.Resize(final, newW, 0, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, final, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (r *Router) download(ctx context.Context, fileURL string) ([]byte, error) {
	if r.Download != nil {
		return r.Download(ctx, fileURL)
	}
	return download(ctx, fileURL)
}

// download strips the URL from transport errors: it carries the bot token.
func download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, errors.New("get file: bad url")
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			return nil, fmt.Errorf("get file: %w", ue.Err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

func isImageMIME(m string) bool {
	return strings.HasPrefix(strings.ToLower(m), "image/")
}
