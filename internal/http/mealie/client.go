package mealie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	mealieListRecipesTemplate  = "%s/api/recipes?perPage=%d&queryFilter=%s"
	mealieCreateRecipeTemplate = "%s/api/recipes/create/html-or-json"
	mealiePatchRecipeTemplate  = "%s/api/recipes/%s"

	// duplicateScanPageSize makes the single-request duplicate scan
	// reliable for realistic catalog sizes. This is an acknowledged scan
	// limitation, not an indexed lookup; a catalog with more matching
	// candidates than this can slip a duplicate through.
	duplicateScanPageSize = 1000
)

type (
	Config struct {
		Host       string `yaml:"mealie_host" env:"MEALIE_HOST" env-required:"true"`
		PublicHost string `yaml:"mealie_public_host" env:"MEALIE_PUBLIC_HOST"`
		Token      string `yaml:"mealie_token" env:"MEALIE_TOKEN" env-required:"true"`
	}

	recipeSummary struct {
		Slug   string `json:"slug"`
		OrgURL string `json:"orgURL"`
	}

	recipeListResponse struct {
		Items []recipeSummary `json:"items"`
	}

	// mealieClient talks to a Mealie instance's REST API on behalf of
	// exactly one credential. A process hosting multiple users holds one
	// client per user token.
	// See https://docs.mealie.io/api/redoc/ for the underlying API.
	mealieClient struct {
		host  string
		token string
	}
)

// NewClient constructs a client bound to the given Mealie host and API
// token. The binding is fixed for the lifetime of the client.
func NewClient(host string, token string) *mealieClient {
	return &mealieClient{host: host, token: token}
}

// RecipeExists reports whether the store already holds a recipe whose
// recorded original URL is exactly equal to the given URL. The server-side
// filter narrows the scan, but equality is re-checked here because the
// filter match is not guaranteed to be exact.
func (client *mealieClient) RecipeExists(ctx context.Context, sourceUrl string) (bool, error) {
	queryFilter := url.QueryEscape(fmt.Sprintf("orgURL=%s", sourceUrl))
	path := fmt.Sprintf(mealieListRecipesTemplate, client.host, duplicateScanPageSize, queryFilter)

	var listResponse recipeListResponse
	if err := client.doJsonRequest(ctx, http.MethodGet, path, nil, &listResponse); err != nil {
		return false, err
	}

	for _, item := range listResponse.Items {
		if item.OrgURL == sourceUrl {
			return true, nil
		}
	}

	return false, nil
}

// CreateRecipe submits the draft as an opaque creation payload and returns
// the slug Mealie assigned to the new recipe. The draft is marshalled to a
// JSON string and wrapped in the 'data' envelope the html-or-json endpoint
// expects.
func (client *mealieClient) CreateRecipe(ctx context.Context, draft interface{}) (string, error) {
	draftJson, err := json.Marshal(draft)
	if err != nil {
		return "", &UnknownRequestError{fmt.Sprintf("failed to marshal recipe draft: %s", err.Error())}
	}

	path := fmt.Sprintf(mealieCreateRecipeTemplate, client.host)
	payload := map[string]string{"data": string(draftJson)}

	// Mealie responds to a successful creation with the new slug as a
	// bare JSON string.
	var slug string
	if err := client.doJsonRequest(ctx, http.MethodPost, path, payload, &slug); err != nil {
		return "", err
	}

	return slug, nil
}

// PatchRecipe merges the given fields in to the recipe identified by slug.
func (client *mealieClient) PatchRecipe(ctx context.Context, slug string, fields map[string]interface{}) error {
	path := fmt.Sprintf(mealiePatchRecipeTemplate, client.host, url.PathEscape(slug))
	return client.doJsonRequest(ctx, http.MethodPatch, path, fields, nil)
}

func (client *mealieClient) doJsonRequest(ctx context.Context, method string, path string, payload interface{}, targetInterface interface{}) error {
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return &UnknownRequestError{fmt.Sprintf("failed to marshal request payload: %s", err.Error())}
		}
		body = bytes.NewReader(payloadBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to construct request: %s", err.Error())}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", client.token))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to perform %s(%s) to Mealie: %s", method, path, err.Error())}
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to read response body: %s", err.Error())}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &FailedRequestError{HttpCode: resp.StatusCode, Body: string(respBody)}
	}

	if targetInterface == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, targetInterface); err != nil {
		return &UnknownRequestError{fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}

	return nil
}

type (
	// FailedRequestError preserves the upstream status and body so the
	// pipeline boundary can flatten them for diagnostics.
	FailedRequestError struct {
		HttpCode int
		Body     string
	}
	UnknownRequestError struct{ reason string }
)

func (err *FailedRequestError) Error() string {
	return fmt.Sprintf("Mealie request failure (HTTP %d): %s", err.HttpCode, err.Body)
}
func (err *UnknownRequestError) Error() string {
	return fmt.Sprintf("unknown error occurred while communicating with Mealie: %s", err.reason)
}
