package menu

import (
	"fmt"
	"strings"

	apperrors "allergen-scan/api/internal/errors"
)

// Request field names as they appear on the wire.
const (
	FieldImage          = "image"
	FieldRestaurantName = "restaurantName"
	FieldLatitude       = "latitude"
	FieldLongitude      = "longitude"
	FieldSource         = "source"
)

// Variant is one endpoint contract: which fields are required, which prompt
// is sent and whether certainty is part of the output.
type Variant struct {
	Name          string
	Required      []string
	Prompt        Prompt
	WithCertainty bool
}

var (
	// VariantCapture is the full capture contract with restaurant metadata.
	VariantCapture = Variant{
		Name: "menu-capture",
		Required: []string{
			FieldImage, FieldRestaurantName, FieldLatitude, FieldLongitude, FieldSource,
		},
		Prompt:        CapturePrompt,
		WithCertainty: true,
	}

	// VariantBasic takes only an image and returns name + allergens.
	VariantBasic = Variant{
		Name:     "allergen-basic",
		Required: []string{FieldImage},
		Prompt:   BasicPrompt,
	}
)

// ErrMissingFields marks validation errors that list absent fields.
var ErrMissingFields = apperrors.ErrMissingFields

// Missing lists required fields that are absent or blank, in table order.
func (v Variant) Missing(r ScanRequest) []string {
	var missing []string
	for _, f := range v.Required {
		if !r.has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Validate fails fast, before any external call. Coordinates travel as a
// pair in every variant: one without the other is rejected.
func (v Variant) Validate(r ScanRequest) error {
	missing := v.Missing(r)
	if r.Latitude != nil && r.Longitude == nil && !contains(missing, FieldLongitude) {
		missing = append(missing, FieldLongitude)
	}
	if r.Longitude != nil && r.Latitude == nil && !contains(missing, FieldLatitude) {
		missing = append(missing, FieldLatitude)
	}
	if len(missing) > 0 {
		// the full contract is quoted unless only the coordinate pair is at fault
		listed := v.Required
		for _, f := range missing {
			if !contains(v.Required, f) {
				listed = missing
				break
			}
		}
		return apperrors.NewValidationError(
			fmt.Sprintf("Missing required fields (%s)", strings.Join(listed, ", ")), missing, ErrMissingFields)
	}

	if loc := r.Location(); loc != nil {
		var bad []string
		if loc.Latitude < -90 || loc.Latitude > 90 {
			bad = append(bad, FieldLatitude)
		}
		if loc.Longitude < -180 || loc.Longitude > 180 {
			bad = append(bad, FieldLongitude)
		}
		if len(bad) > 0 {
			return apperrors.NewValidationError("coordinates out of range", bad, nil)
		}
	}
	return nil
}

func (r ScanRequest) has(field string) bool {
	switch field {
	case FieldImage:
		return strings.TrimSpace(r.Image) != ""
	case FieldRestaurantName:
		return strings.TrimSpace(r.RestaurantName) != ""
	case FieldLatitude:
		return r.Latitude != nil
	case FieldLongitude:
		return r.Longitude != nil
	case FieldSource:
		return strings.TrimSpace(r.Source) != ""
	default:
		return false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
