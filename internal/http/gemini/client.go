package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	geminiBaseUrl = "https://generativelanguage.googleapis.com/v1beta"

	geminiGenerateContentTemplate = "%s/models/%s:generateContent"
)

type (
	Config struct {
		ApiKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY" env-required:"true"`
		Model  string `yaml:"gemini_model" env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
	}

	// geminiClient is a thin client over the Gemini generateContent API.
	// See https://ai.google.dev/api/generate-content for information
	// on the underlying request/response shapes.
	geminiClient struct {
		config  Config
		baseUrl string
	}

	generateContentRequest struct {
		Contents []content `json:"contents"`
	}

	content struct {
		Parts []part `json:"parts"`
	}

	part struct {
		Text string `json:"text"`
	}

	generateContentResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}

	geminiError struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

func NewClient(config Config) *geminiClient {
	return &geminiClient{config: config, baseUrl: geminiBaseUrl}
}

// NewClientWithBaseUrl is intended for tests which need to point the
// client at a local stand-in for the Gemini API.
func NewClientWithBaseUrl(config Config, baseUrl string) *geminiClient {
	return &geminiClient{config: config, baseUrl: baseUrl}
}

// GenerateContent submits the given prompt to the configured model and
// returns the text of the first candidate response. The model is treated
// as a black box; no assumptions are made about the returned text beyond
// it being text.
func (client *geminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", &UnknownRequestError{fmt.Sprintf("failed to marshal request payload: %s", err.Error())}
	}

	path := fmt.Sprintf(geminiGenerateContentTemplate, client.baseUrl, client.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return "", &UnknownRequestError{fmt.Sprintf("failed to construct request: %s", err.Error())}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", client.config.ApiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", &UnknownRequestError{fmt.Sprintf("failed to perform POST to Gemini: %s", err.Error())}
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UnknownRequestError{fmt.Sprintf("failed to read response body: %s", err.Error())}
	}

	if resp.StatusCode != http.StatusOK {
		// Some failures (a generation cut off mid-stream, for instance)
		// still carry partial candidate text in the body; return whatever
		// is decodable alongside the error so callers can keep it for
		// diagnostics.
		partialText := candidateText(respBody)

		var apiError geminiError
		if err := json.Unmarshal(respBody, &apiError); err != nil {
			return partialText, &FailedRequestError{HttpCode: resp.StatusCode, Message: "non-OK response could not be unmarshalled"}
		}

		return partialText, &FailedRequestError{HttpCode: resp.StatusCode, Message: apiError.Error.Message}
	}

	var generateResponse generateContentResponse
	if err := json.Unmarshal(respBody, &generateResponse); err != nil {
		return "", &UnknownRequestError{fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}

	if len(generateResponse.Candidates) == 0 {
		return "", &EmptyResponseError{}
	}

	return joinParts(generateResponse.Candidates[0].Content), nil
}

// candidateText best-effort decodes candidate text out of a response body,
// returning the empty string when none is present.
func candidateText(body []byte) string {
	var response generateContentResponse
	if err := json.Unmarshal(body, &response); err != nil || len(response.Candidates) == 0 {
		return ""
	}

	return joinParts(response.Candidates[0].Content)
}

func joinParts(c content) string {
	var text strings.Builder
	for _, p := range c.Parts {
		text.WriteString(p.Text)
	}

	return text.String()
}

type (
	FailedRequestError struct {
		HttpCode int
		Message  string
	}
	UnknownRequestError struct{ reason string }
	EmptyResponseError  struct{}
)

func (err *FailedRequestError) Error() string {
	return fmt.Sprintf("Gemini request failure (HTTP %d): %s", err.HttpCode, err.Message)
}
func (err *UnknownRequestError) Error() string {
	return fmt.Sprintf("unknown error occurred while communicating with Gemini: %s", err.reason)
}
func (err *EmptyResponseError) Error() string { return "no candidates returned from Gemini" }
