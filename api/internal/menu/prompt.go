package menu

import "allergen-scan/api/internal/util"

// Prompt is a versioned instruction. Any wording change alters how often
// replies parse, so it must come with a new Version.
type Prompt struct {
	Version string
	Text    string
}

var CapturePrompt = Prompt{
	Version: "allergen-certainty/v1",
	Text: `You are analyzing an image of a restaurant menu.
Extract every menu item as an object with these fields:
1. "name": the name of the menu item (string)
2. "allergens": an array of allergen names such as gluten, egg, soy, milk, peanut, tree nut, fish, shellfish, sesame (array of strings)
3. "certainty": how sure you are about the allergens, a number between 0 and 1

Output must be a valid JSON array like:
[
  {"name": "Whopper", "allergens": ["gluten", "soy", "egg"], "certainty": 0.95},
  {"name": "French Fries", "allergens": [], "certainty": 0.7}
]

Rules:
- If ingredients are visible on the menu, derive the allergens from them and assign a high certainty.
- If ingredients are not visible, use your general knowledge of well known restaurant and fast food items to infer allergens and assign a moderate certainty. Assign a high certainty only when you are very sure the item contains those allergens.
- If you are making an educated guess or are unsure, assign a lower certainty.
- If you still cannot infer any allergens, return an empty array [] for "allergens". Never invent allergens.
- Accuracy is critical for people with allergies. Be as precise as possible.
- If an item name contains an obvious spelling or text recognition error of a known menu item, correct it (for example "Hamburger" instead of "Hashburger" or "Hanburger").
- No markdown, no code fences, no extra text. Reply with raw JSON only.`,
}

var BasicPrompt = Prompt{
	Version: "allergen-basic/v1",
	Text: `You are analyzing an image of a restaurant menu.
Extract every menu item as an object with exactly two fields:
1. "name": the name of the menu item (string)
2. "allergens": an array of allergen names such as gluten, egg, soy, milk, peanut, tree nut, fish, shellfish, sesame (array of strings)

Output must be a valid JSON array like:
[
  {"name": "Whopper", "allergens": ["gluten", "soy", "egg"]},
  {"name": "French Fries", "allergens": []}
]

Rules:
- Prefer allergens derived from ingredients visible on the menu over general knowledge.
- If ingredients are not visible, use your general knowledge of well known restaurant items, and only list allergens you are confident about.
- If you cannot infer any allergens, return an empty array [] for "allergens". Never invent allergens.
- If an item name contains an obvious spelling or text recognition error of a known menu item, correct it.
- No markdown, no code fences, no extra text. Reply with raw JSON only.`,
}

// BuildRequest pairs the variant's instruction with the image.
func BuildRequest(v Variant, img util.Image) InferenceRequest {
	return InferenceRequest{
		PromptVersion: v.Prompt.Version,
		Instruction:   v.Prompt.Text,
		Image:         img,
	}
}
