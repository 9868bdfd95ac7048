package menu

import (
	"context"
	"time"

	"allergen-scan/api/internal/util"
)

// ScanRequest is the inbound unit of work shared by all variants. Location
// fields are pointers so that 0.0 is distinguishable from "not sent".
type ScanRequest struct {
	Image          string   `json:"image"`
	RestaurantName string   `json:"restaurantName,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Source         string   `json:"source,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location returns nil unless both coordinates were sent.
func (r ScanRequest) Location() *Location {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

// Item is one menu entry. Allergens is never nil once shaped.
type Item struct {
	Name      string   `json:"name"`
	Allergens []string `json:"allergens"`
	Certainty *float64 `json:"certainty,omitempty"`
}

// RawItem is an element of the model reply exactly as decoded.
type RawItem map[string]any

// InferenceRequest is one prompt plus image, ready for an Inferencer.
type InferenceRequest struct {
	PromptVersion string
	Instruction   string
	Image         util.Image
}

// Inferencer is the multimodal capability: instruction + image in, text out.
// Implementations must be safe for concurrent use.
type Inferencer interface {
	Name() string
	Generate(ctx context.Context, req InferenceRequest) (string, error)
}

// Result is a successful scan.
type Result struct {
	Variant       string
	PromptVersion string
	Engine        string
	ImageHash     string
	Items         []Item
	Latency       time.Duration
}

// Record is what a Recorder persists after a successful scan.
type Record struct {
	Variant        string
	PromptVersion  string
	Engine         string
	ImageHash      string
	RestaurantName string
	Location       *Location
	Source         string
	Items          []Item
	CreatedAt      time.Time
}

type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// ParseFailureReport is handed to an Archiver when a reply is unusable.
type ParseFailureReport struct {
	Variant       string    `json:"variant"`
	PromptVersion string    `json:"prompt_version"`
	Engine        string    `json:"engine"`
	ImageHash     string    `json:"image_hash"`
	Reason        string    `json:"reason"`
	RawReply      string    `json:"raw_reply"`
	At            time.Time `json:"at"`
}

type Archiver interface {
	ArchiveParseFailure(ctx context.Context, rep ParseFailureReport) error
}
