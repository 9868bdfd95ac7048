package util

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	apperrors "allergen-scan/api/internal/errors"
)

const defaultImageMIME = "image/jpeg"

// Image is a decoded upload ready for the inference call.
type Image struct {
	Data     []byte
	MIMEType string // image/jpeg, image/png, ...
	Format   string // short tag declared upstream: jpeg, png, webp, ...
}

// SplitDataURL separates "data:<mime>;base64,<payload>" into its metadata
// and payload. Without a comma the whole string is the payload.
func SplitDataURL(s string) (meta, payload string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return "", s
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

// DecodeImage turns a data-URI (or bare base64) string into raw bytes.
func DecodeImage(s string) (Image, error) {
	meta, payload := SplitDataURL(s)
	if payload == "" {
		return Image{}, apperrors.NewValidationError("no image provided", []string{"image"}, apperrors.ErrMissingFields)
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Image{}, apperrors.NewValidationError("invalid image payload", []string{"image"}, err)
	}
	if len(data) == 0 {
		return Image{}, apperrors.NewValidationError("no image provided", []string{"image"}, apperrors.ErrMissingFields)
	}

	mime := PickMIME(mimeFromMeta(meta), data)
	return Image{Data: data, MIMEType: mime, Format: FormatTag(mime)}, nil
}

// decodeBase64 tries the standard alphabet first, then URL-safe, then the
// unpadded variants clients sometimes send.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// mimeFromMeta reads "<mime>" out of "data:<mime>;base64".
func mimeFromMeta(meta string) string {
	meta = strings.TrimPrefix(strings.TrimSpace(meta), "data:")
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		meta = meta[:semi]
	}
	return strings.ToLower(strings.TrimSpace(meta))
}

// PickMIME takes the declared type when it is an image type, otherwise
// sniffs the bytes, otherwise falls back to JPEG.
func PickMIME(declared string, data []byte) string {
	if strings.HasPrefix(declared, "image/") {
		if declared == "image/jpg" {
			return defaultImageMIME
		}
		return declared
	}
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	return defaultImageMIME
}

// FormatTag maps a MIME type to the short format name, e.g. image/png -> png.
func FormatTag(mime string) string {
	tag := strings.TrimPrefix(mime, "image/")
	if tag == "" || tag == mime {
		return "jpeg"
	}
	return tag
}

func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
