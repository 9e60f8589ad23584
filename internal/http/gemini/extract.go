package gemini

import (
	"encoding/json"
	"regexp"
)

// fencedJsonPattern locates the first markdown code fence tagged as JSON.
// The language tag is matched case-insensitively and the body match is
// greedy, so interior fences inside the block do not truncate it.
var fencedJsonPattern = regexp.MustCompile("(?is)```json(.+)```")

// RecipeDraft is the structured recipe as produced by the model. Beyond
// the mandatory 'name' field its shape is free-form and passed through to
// the recipe store untouched.
type RecipeDraft map[string]interface{}

// Name returns the draft's mandatory name field, or an empty string if it
// is missing or not a string.
func (draft RecipeDraft) Name() string {
	if name, ok := draft["name"].(string); ok {
		return name
	}

	return ""
}

// ExtractRecipe parses a recipe draft out of free-form model output. The
// output is expected to contain one fenced code block tagged as JSON; the
// block's contents must be a JSON object carrying a non-empty 'name'.
// The function is pure: no side effects, deterministic for a given input.
func ExtractRecipe(text string) (RecipeDraft, error) {
	match := fencedJsonPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, &ExtractionError{reason: "no JSON block found"}
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(match[1]), &parsed); err != nil {
		return nil, &ExtractionError{reason: "malformed JSON", cause: err}
	}

	// Valid JSON which is not an object (or an object without a name) is
	// a shape failure, not a syntax one.
	draft, ok := parsed.(map[string]interface{})
	if !ok || RecipeDraft(draft).Name() == "" {
		return nil, &ExtractionError{reason: "missing required field"}
	}

	return RecipeDraft(draft), nil
}

// ExtractionError indicates that model output could not be shaped into a
// usable recipe draft. The reason is one of a small fixed set of strings
// so callers (and tests) can distinguish the failure modes.
type ExtractionError struct {
	reason string
	cause  error
}

func (err *ExtractionError) Error() string { return err.reason }
func (err *ExtractionError) Unwrap() error { return err.cause }
