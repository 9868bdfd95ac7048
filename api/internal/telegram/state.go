package telegram

import (
	"sync"
	"time"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000

	// how long a blurry photo waits for "scan anyway"
	pendingTTL = 10 * time.Minute
)

// photoBatch collects the pages of one menu. Albums arrive as separate
// updates sharing a media group id.
type photoBatch struct {
	ChatID       int64
	Key          string // "grp:<mediaGroupID>" | "chat:<chatID>"
	MediaGroupID string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}

// pendingScan is a photo that failed the blur check and waits for the user
// to confirm it should be scanned anyway.
type pendingScan struct {
	Image []byte
	Score float64
	At    time.Time
}
