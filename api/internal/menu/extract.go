package menu

import (
	"encoding/json"
	"fmt"

	apperrors "allergen-scan/api/internal/errors"
	"allergen-scan/api/internal/util"
)

// Extract parses a model reply into raw items. Fence markers are the only
// tolerated noise; anything else that is not a non-empty JSON array of
// objects fails as a whole with the raw reply attached. There is no partial
// recovery: a half-read menu could silently drop an allergen warning.
func Extract(raw string) ([]RawItem, error) {
	clean := util.StripCodeFences(raw)
	if clean == "" {
		return nil, apperrors.NewParseFailure("empty reply", raw, nil)
	}

	var v any
	if err := json.Unmarshal([]byte(clean), &v); err != nil {
		return nil, apperrors.NewParseFailure("reply is not valid JSON", raw, err)
	}

	switch t := v.(type) {
	case nil:
		return nil, apperrors.NewParseFailure("reply is null", raw, nil)
	case []any:
		if len(t) == 0 {
			return nil, apperrors.NewParseFailure("reply contains no menu items", raw, nil)
		}
		items := make([]RawItem, 0, len(t))
		for i, el := range t {
			obj, ok := el.(map[string]any)
			if !ok {
				return nil, apperrors.NewParseFailure(fmt.Sprintf("element %d is %s, not an object", i, jsonKind(el)), raw, nil)
			}
			items = append(items, RawItem(obj))
		}
		return items, nil
	default:
		return nil, apperrors.NewParseFailure(fmt.Sprintf("reply is %s, not an array", jsonKind(t)), raw, nil)
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
