package gemini_test

import (
	"testing"

	"github.com/ladlehq/ladle/internal/http/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ExtractRecipe_NoJsonBlock(t *testing.T) {
	t.Parallel()

	inputs := map[string]string{
		"plain text":          "Here is your recipe: name is Pasta",
		"untagged fence":      "```\n{\"name\": \"Pasta\"}\n```",
		"wrong language tag":  "```yaml\nname: Pasta\n```",
		"unterminated fence":  "```json\n{\"name\": \"Pasta\"}",
		"empty input":         "",
		"bare json, no fence": "{\"name\": \"Pasta\"}",
	}

	for label, input := range inputs {
		t.Run(label, func(t *testing.T) {
			draft, err := gemini.ExtractRecipe(input)
			assert.Nil(t, draft)

			require.Error(t, err)
			assert.IsType(t, &gemini.ExtractionError{}, err)
			assert.EqualError(t, err, "no JSON block found")
		})
	}
}

func Test_ExtractRecipe_MalformedJson(t *testing.T) {
	t.Parallel()

	inputs := map[string]string{
		"truncated object":  "```json\n{\"name\": \"Pasta\"\n```",
		"not json at all":   "```json\nthis is not json\n```",
		"trailing comma":    "```json\n{\"name\": \"Pasta\",}\n```",
		"single quoted key": "```json\n{'name': 'Pasta'}\n```",
	}

	for label, input := range inputs {
		t.Run(label, func(t *testing.T) {
			draft, err := gemini.ExtractRecipe(input)
			assert.Nil(t, draft)

			require.Error(t, err)
			assert.IsType(t, &gemini.ExtractionError{}, err)
			assert.EqualError(t, err, "malformed JSON")
		})
	}
}

func Test_ExtractRecipe_MissingName(t *testing.T) {
	t.Parallel()

	inputs := map[string]string{
		"empty object":         "```json\n{}\n```",
		"empty name":           "```json\n{\"name\": \"\"}\n```",
		"non-string name":      "```json\n{\"name\": 42}\n```",
		"null name":            "```json\n{\"name\": null}\n```",
		"other fields only":    "```json\n{\"description\": \"Tasty\", \"ingredients\": []}\n```",
		"array instead of obj": "```json\n[{\"name\": \"Pasta\"}]\n```",
	}

	for label, input := range inputs {
		t.Run(label, func(t *testing.T) {
			draft, err := gemini.ExtractRecipe(input)
			assert.Nil(t, draft)

			require.Error(t, err)
			assert.IsType(t, &gemini.ExtractionError{}, err)
			assert.EqualError(t, err, "missing required field")
		})
	}
}

func Test_ExtractRecipe_RoundTrip(t *testing.T) {
	t.Parallel()

	text := "Sure! Here's your structured recipe:\n" +
		"```json\n" +
		`{
			"name": "X",
			"description": "A delicious dish",
			"recipeIngredient": ["250g spaghetti", "2 eggs"],
			"recipeInstructions": [{"text": "Boil the pasta"}],
			"cookTime": "PT20M"
		}` + "\n```\n" +
		"Enjoy your meal!"

	draft, err := gemini.ExtractRecipe(text)
	require.NoError(t, err)

	assert.Equal(t, gemini.RecipeDraft{
		"name":               "X",
		"description":        "A delicious dish",
		"recipeIngredient":   []interface{}{"250g spaghetti", "2 eggs"},
		"recipeInstructions": []interface{}{map[string]interface{}{"text": "Boil the pasta"}},
		"cookTime":           "PT20M",
	}, draft)
	assert.Equal(t, "X", draft.Name())
}

func Test_ExtractRecipe_CaseInsensitiveTag(t *testing.T) {
	t.Parallel()

	draft, err := gemini.ExtractRecipe("```JSON\n{\"name\": \"Pasta\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Pasta", draft.Name())
}
