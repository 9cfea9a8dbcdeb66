package estimate

import (
	"fmt"
	"strings"
)

const defaultRegion = "Indian"

func systemPrompt(region string) string {
	return fmt.Sprintf(`You are %s expert nutritionist with extensive knowledge of %s food composition and dietary analysis. `+
		`You estimate the calories, protein, carbohydrates and fat of meals described in free text and explain your method item by item.`,
		article(region), region)
}

func article(word string) string {
	if word == "" {
		return "a"
	}
	switch strings.ToLower(word[:1]) {
	case "a", "e", "i", "o", "u":
		return "an " + word
	}
	return "a " + word
}

// buildPrompt renders the estimation request for one meal description
func buildPrompt(description, region string) string {
	var sb strings.Builder

	sb.WriteString("Estimate the nutritional content of the meal below.\n\n")
	sb.WriteString("Meal Description:\n")
	sb.WriteString(description)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, `Tool usage:
For each food item, decide whether its nutritional details are ambiguous or the item is uncommon. If so, call the '%s' tool for that ingredient. Call it once per ingredient as needed.

Steps:
1. Identify all primary food items mentioned.
2. Where quantities are not given, assume standard %s portion sizes.
3. Estimate the nutrients of each component.
4. Sum them into totals for the meal.
5. Write the explanation with these sections, one bullet per line, sections separated by blank lines:
   "Identified Food Items & Assessment Strategy:" one bullet per item with the assumption made, noting when the search tool refined it.
   "General Assumptions:" bullets for assumptions that apply to the whole meal.
   "Nutrient Breakdown (Main Ingredients):" bullets such as "* Roti (2 pieces): approx. 160 kcal, 6g protein, 30g carbs, 2g fat."
   Finish with a one-sentence concluding remark.

Return a JSON object with this structure:
{
  "calories": number,
  "protein": number,
  "carbs": number,
  "fat": number,
  "explanation": "string"
}

Units: calories in kcal, protein, carbs and fat in grams. All values are totals for the whole meal and must not be negative.
Provide ONLY the JSON. Do not add any other text and do not return markdown.`, LookupToolName, region)

	return sb.String()
}
