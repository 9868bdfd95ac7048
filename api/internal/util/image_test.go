package util

import (
	"errors"
	"testing"

	apperrors "allergen-scan/api/internal/errors"
)

func TestSplitDataURL(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantMeta    string
		wantPayload string
	}{
		{"data uri", "data:image/jpeg;base64,AAAA", "data:image/jpeg;base64", "AAAA"},
		{"no separator", "AAAA", "", "AAAA"},
		{"surrounding space", "  data:image/png;base64, QUJD \n", "data:image/png;base64", "QUJD"},
		{"empty payload", "data:image/png;base64,", "data:image/png;base64", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, payload := SplitDataURL(tt.in)
			if meta != tt.wantMeta || payload != tt.wantPayload {
				t.Errorf("expected (%q, %q), got (%q, %q)", tt.wantMeta, tt.wantPayload, meta, payload)
			}
		})
	}
}

func TestDecodeImage_DataURL(t *testing.T) {
	img, err := DecodeImage("data:image/jpeg;base64,AAAA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(img.Data) != 3 {
		t.Errorf("expected 3 bytes, got %d", len(img.Data))
	}
	if img.MIMEType != "image/jpeg" || img.Format != "jpeg" {
		t.Errorf("expected jpeg, got %s/%s", img.MIMEType, img.Format)
	}
}

func TestDecodeImage_BarePayloadSniffsPNG(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	img, err := DecodeImage(MakeDataURL("application/octet-stream", png)[len("data:application/octet-stream;base64,"):])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MIMEType != "image/png" || img.Format != "png" {
		t.Errorf("expected png, got %s/%s", img.MIMEType, img.Format)
	}
}

func TestDecodeImage_URLSafeAlphabet(t *testing.T) {
	// 0xFB 0xFF encodes to "-_8=" in the URL-safe alphabet.
	img, err := DecodeImage("data:image/webp;base64,-_8=")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(img.Data) != 2 || img.Format != "webp" {
		t.Errorf("unexpected image %+v", img)
	}
}

func TestDecodeImage_Failures(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantMissing bool
	}{
		{"empty", "", true},
		{"blank payload", "data:image/jpeg;base64,   ", true},
		{"prefix only", "data:image/jpeg;base64,", true},
		{"not base64", "data:image/jpeg;base64,%%%not-base64%%%", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeImage(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperrors.IsKind(err, apperrors.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if got := errors.Is(err, apperrors.ErrMissingFields); got != tt.wantMissing {
				t.Errorf("missing = %v, want %v", got, tt.wantMissing)
			}
		})
	}
}

func TestPickMIME(t *testing.T) {
	if got := PickMIME("image/jpg", nil); got != "image/jpeg" {
		t.Errorf("expected image/jpeg for jpg alias, got %s", got)
	}
	if got := PickMIME("text/plain", []byte("hello")); got != "image/jpeg" {
		t.Errorf("expected jpeg fallback, got %s", got)
	}
	if got := PickMIME("", []byte{0xFF, 0xD8, 0xFF, 0xE0}); got != "image/jpeg" {
		t.Errorf("expected sniffed jpeg, got %s", got)
	}
}
