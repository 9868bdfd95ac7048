package menu

import (
	"reflect"
	"testing"

	apperrors "allergen-scan/api/internal/errors"
)

func TestExtract_ValidArray(t *testing.T) {
	items, err := Extract(`[{"name":"Fries","allergens":[]}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0]["name"] != "Fries" {
		t.Errorf("expected name Fries, got %v", items[0]["name"])
	}
	allergens, ok := items[0]["allergens"].([]any)
	if !ok || len(allergens) != 0 {
		t.Errorf("expected empty allergen list, got %#v", items[0]["allergens"])
	}
}

func TestExtract_PassesFieldsThroughUnmodified(t *testing.T) {
	items, err := Extract(`[{"name":"Burger","allergens":["gluten","egg"],"certainty":0.9,"price":"4.99"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := RawItem{
		"name":      "Burger",
		"allergens": []any{"gluten", "egg"},
		"certainty": 0.9,
		"price":     "4.99",
	}
	if !reflect.DeepEqual(items[0], want) {
		t.Errorf("expected %#v, got %#v", want, items[0])
	}
}

func TestExtract_FencedEqualsUnfenced(t *testing.T) {
	plain := `[{"name":"Burger","allergens":["gluten","egg"],"certainty":0.9},{"name":"Fries","allergens":[]}]`
	variants := []string{
		"```json\n" + plain + "\n```",
		"```\n" + plain + "\n```",
		"\n\n  ```json" + plain + "```  \n",
	}

	want, err := Extract(plain)
	if err != nil {
		t.Fatalf("unexpected error on plain reply: %v", err)
	}
	for _, in := range variants {
		got, err := Extract(in)
		if err != nil {
			t.Errorf("unexpected error for %q: %v", in, err)
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("fenced reply %q parsed differently: %#v", in, got)
		}
	}
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "Sorry, I cannot process this image."},
		{"empty", ""},
		{"only fences", "```json\n```"},
		{"null", "null"},
		{"false", "false"},
		{"zero", "0"},
		{"empty string", `""`},
		{"object", `{"name":"Burger","allergens":[]}`},
		{"empty array", "[]"},
		{"array of strings", `["Burger","Fries"]`},
		{"truncated", `[{"name":"Burger","allergens":["gluten"`},
		{"trailing prose", `[{"name":"Burger","allergens":[]}] Hope this helps!`},
		{"leading prose", `Here is the menu: [{"name":"Burger","allergens":[]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Extract(tt.raw)
			if err == nil {
				t.Fatalf("expected parse failure, got %v", items)
			}
			appErr, ok := apperrors.As(err)
			if !ok || appErr.Kind != apperrors.KindParseFailure {
				t.Fatalf("expected parse failure, got %v", err)
			}
			if appErr.Detail != tt.raw {
				t.Errorf("expected raw reply %q preserved, got %q", tt.raw, appErr.Detail)
			}
		})
	}
}
