package menu

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "allergen-scan/api/internal/errors"
)

// ShapeItems applies the per-item contract on top of Extract: a non-empty
// name, allergens always a list, and certainty (when asked for) in [0,1].
// raw is the original reply, carried into any ParseFailure.
func ShapeItems(items []RawItem, withCertainty bool, raw string) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for i, it := range items {
		name, _ := it["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, apperrors.NewParseFailure(fmt.Sprintf("item %d has no name", i), raw, nil)
		}

		allergens, err := allergenList(it["allergens"])
		if err != nil {
			return nil, apperrors.NewParseFailure(fmt.Sprintf("item %d (%s): %v", i, name, err), raw, err)
		}

		item := Item{Name: name, Allergens: allergens}
		if withCertainty {
			item.Certainty = certainty(it["certainty"])
		}
		out = append(out, item)
	}
	return out, nil
}

func allergenList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}, nil
		}
		return []string{}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("allergen entry %v is %s, not a string", el, jsonKind(el))
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("allergens is %s, not a list", jsonKind(v))
	}
}

// certainty returns nil when the value is absent or not a number.
func certainty(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(p) {
			return nil
		}
		f = p
	default:
		return nil
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return &f
}
