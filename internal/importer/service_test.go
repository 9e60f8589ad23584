package importer_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/ladlehq/ladle/internal/http/gemini"
	"github.com/ladlehq/ladle/internal/http/mealie"
	"github.com/ladlehq/ladle/internal/importer"
	"github.com/ladlehq/ladle/internal/ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const publicHost = "https://mealie.example.com"

type MockRecipeStore struct{ mock.Mock }

func (m *MockRecipeStore) RecipeExists(ctx context.Context, sourceUrl string) (bool, error) {
	args := m.Called(ctx, sourceUrl)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecipeStore) CreateRecipe(ctx context.Context, draft interface{}) (string, error) {
	args := m.Called(ctx, draft)
	return args.String(0), args.Error(1)
}

func (m *MockRecipeStore) PatchRecipe(ctx context.Context, slug string, fields map[string]interface{}) error {
	args := m.Called(ctx, slug, fields)
	return args.Error(0)
}

type MockMetadataFetcher struct{ mock.Mock }

func (m *MockMetadataFetcher) VideoDetails(ctx context.Context, url string) (*ytdlp.VideoMetadata, error) {
	args := m.Called(ctx, url)
	if metadata := args.Get(0); metadata != nil {
		return metadata.(*ytdlp.VideoMetadata), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockContentGenerator struct{ mock.Mock }

func (m *MockContentGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type Service interface {
	Import(context.Context, importer.Request) (*importer.Result, error)
}

func newService(store importer.RecipeStore, fetcher importer.MetadataFetcher, generator importer.ContentGenerator) Service {
	return importer.New(publicHost, map[int]importer.RecipeStore{1: store}, fetcher, generator)
}

func Test_Import_Success(t *testing.T) {
	t.Parallel()

	metadata := &ytdlp.VideoMetadata{
		Title:       "Spaghetti in 60 seconds!!",
		Description: "250g spaghetti, 2 eggs...",
		Thumbnail:   "https://img.example/1.jpg",
		Channel:     "PastaChannel",
	}

	store := new(MockRecipeStore)
	fetcher := new(MockMetadataFetcher)
	generator := new(MockContentGenerator)

	store.On("RecipeExists", mock.Anything, "https://x/1").Return(false, nil).Once()
	fetcher.On("VideoDetails", mock.Anything, "https://x/1").Return(metadata, nil).Once()
	generator.On("GenerateContent", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		// The prompt must be built from the video metadata and carry the
		// fixed instruction preamble.
		return strings.Contains(prompt, "Schema.org Recipe JSON") &&
			strings.Contains(prompt, `Original title: "Spaghetti in 60 seconds!!"`) &&
			strings.Contains(prompt, "Thumbnail: https://img.example/1.jpg") &&
			strings.Contains(prompt, `Author: "PastaChannel"`) &&
			strings.Contains(prompt, "250g spaghetti, 2 eggs...")
	})).Return("Here you go:\n```json\n{\"name\": \"Pasta\"}\n```", nil).Once()
	store.On("CreateRecipe", mock.Anything, mock.Anything).Return("pasta-123", nil).Once()
	store.On("PatchRecipe", mock.Anything, "pasta-123", map[string]interface{}{"orgURL": "https://x/1"}).Return(nil).Once()

	result, err := newService(store, fetcher, generator).Import(context.Background(), importer.Request{URL: "https://x/1", User: 1})

	require.NoError(t, err)
	assert.Equal(t, "pasta-123", result.Slug)
	assert.Equal(t, publicHost+"/g/home/r/pasta-123", result.PublicURL)

	store.AssertExpectations(t)
	fetcher.AssertExpectations(t)
	generator.AssertExpectations(t)
}

func Test_Import_DuplicateRecipe(t *testing.T) {
	t.Parallel()

	store := new(MockRecipeStore)
	fetcher := new(MockMetadataFetcher)
	generator := new(MockContentGenerator)

	store.On("RecipeExists", mock.Anything, "https://x/1").Return(true, nil).Once()

	result, err := newService(store, fetcher, generator).Import(context.Background(), importer.Request{URL: "https://x/1", User: 1})

	assert.Nil(t, result)
	var trouble *importer.Trouble
	require.ErrorAs(t, err, &trouble)
	assert.Equal(t, importer.DUPLICATE_RECIPE, trouble.Type())

	// The pipeline must stop at the duplicate check; nothing downstream
	// may be touched.
	fetcher.AssertNotCalled(t, "VideoDetails", mock.Anything, mock.Anything)
	generator.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateRecipe", mock.Anything, mock.Anything)
}

func Test_Import_UnknownUser(t *testing.T) {
	t.Parallel()

	store := new(MockRecipeStore)
	fetcher := new(MockMetadataFetcher)
	generator := new(MockContentGenerator)

	result, err := newService(store, fetcher, generator).Import(context.Background(), importer.Request{URL: "https://x/1", User: 99})

	assert.Nil(t, result)
	var trouble *importer.Trouble
	require.ErrorAs(t, err, &trouble)
	assert.Equal(t, importer.USER_NOT_FOUND, trouble.Type())

	store.AssertNotCalled(t, "RecipeExists", mock.Anything, mock.Anything)
}

func Test_Import_MetadataToolFailure(t *testing.T) {
	t.Parallel()

	store := new(MockRecipeStore)
	fetcher := new(MockMetadataFetcher)
	generator := new(MockContentGenerator)

	store.On("RecipeExists", mock.Anything, "https://x/1").Return(false, nil).Once()
	fetcher.On("VideoDetails", mock.Anything, "https://x/1").
		Return(nil, &ytdlp.ExecutionError{Stderr: "ERROR: Unsupported URL"}).Once()

	result, err := newService(store, fetcher, generator).Import(context.Background(), importer.Request{URL: "https://x/1", User: 1})

	assert.Nil(t, result)
	var trouble *importer.Trouble
	require.ErrorAs(t, err, &trouble)
	assert.Equal(t, importer.METADATA_FAILURE, trouble.Type())
	assert.Contains(t, trouble.Error(), "Unsupported URL")
}

func Test_Import_ModelRequestFailure(t *testing.T) {
	t.Parallel()

	store := new(MockRecipeStore)
	fetcher := new(MockMetadataFetcher)
	generator := new(MockContentGenerator)

	store.On("RecipeExists", mock.Anything, "https://x/1").Return(false, nil).Once()
	fetcher.On("VideoDetails", mock.Anything, "https://x/1").Return(&ytdlp.VideoMetadata{Title: "Meal"}, nil).Once()
	generator.On("GenerateContent", mock.Anything, mock.Anything).
		Return("Here is the reci", &gemini.FailedRequestError{HttpCode: http.StatusTooManyRequests, Message: "Resource has been exhausted"}).Once()

	result, err := newService(store, fetcher, generator).Import(context.Background(), importer.Request{URL: "https://x/1", User: 1})

	assert.Nil(t, result)
	var trouble *importer.Trouble
	require.ErrorAs(t, err, &trouble)
	assert.Equal(t, importer.LLM_FAILURE, trouble.Type())
	assert.Contains(t, trouble.Error(), "Resource has been exhausted")

	// Any partial text the generator produced before failing is kept for
	// diagnostics.
	assert.Equal(t, "Here is the reci", trouble.RawModelOutput())

	store.AssertNotCalled(t, "CreateRecipe", mock.Anything, mock.Anything)
}

func Test_Import_ExtractionFailureKeepsModelOutput(t *testing.T) {
	t.Parallel()

	store := new(MockRecipeStore)
	fetcher := new(MockMetadataFetcher)
	generator := new(MockContentGenerator)

	store.On("RecipeExists", mock.Anything, "https://x/1").Return(false, nil).Once()
	fetcher.On("VideoDetails", mock.Anything, "https://x/1").Return(&ytdlp.VideoMetadata{Title: "Meal"}, nil).Once()
	generator.On("GenerateContent", mock.Anything, mock.Anything).
		Return("Sorry, I could not find a recipe in this video.", nil).Once()

	result, err := newService(store, fetcher, generator).Import(context.Background(), importer.Request{URL: "https://x/1", User: 1})

	assert.Nil(t, result)
	var trouble *importer.Trouble
	require.ErrorAs(t, err, &trouble)
	assert.Equal(t, importer.EXTRACTION_FAILURE, trouble.Type())
	assert.Equal(t, "Sorry, I could not find a recipe in this video.", trouble.RawModelOutput())

	store.AssertNotCalled(t, "CreateRecipe", mock.Anything, mock.Anything)
}

func Test_Import_StoreWriteFailureFlattensUpstream(t *testing.T) {
	t.Parallel()

	store := new(MockRecipeStore)
	fetcher := new(MockMetadataFetcher)
	generator := new(MockContentGenerator)

	store.On("RecipeExists", mock.Anything, "https://x/1").Return(false, nil).Once()
	fetcher.On("VideoDetails", mock.Anything, "https://x/1").Return(&ytdlp.VideoMetadata{Title: "Meal"}, nil).Once()
	generator.On("GenerateContent", mock.Anything, mock.Anything).
		Return("```json\n{\"name\": \"Pasta\"}\n```", nil).Once()
	store.On("CreateRecipe", mock.Anything, mock.Anything).
		Return("", &mealie.FailedRequestError{HttpCode: http.StatusUnprocessableEntity, Body: `{"detail": "bad draft"}`}).Once()

	result, err := newService(store, fetcher, generator).Import(context.Background(), importer.Request{URL: "https://x/1", User: 1})

	assert.Nil(t, result)
	var trouble *importer.Trouble
	require.ErrorAs(t, err, &trouble)
	assert.Equal(t, importer.STORE_FAILURE, trouble.Type())
	require.NotNil(t, trouble.Upstream())
	assert.Equal(t, http.StatusUnprocessableEntity, trouble.Upstream().Status)
	assert.Contains(t, trouble.Upstream().Data, "bad draft")

	store.AssertNotCalled(t, "PatchRecipe", mock.Anything, mock.Anything, mock.Anything)
}

// A patch failure after a successful create is still a store failure; the
// created recipe is left in place.
func Test_Import_PatchFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	store := new(MockRecipeStore)
	fetcher := new(MockMetadataFetcher)
	generator := new(MockContentGenerator)

	store.On("RecipeExists", mock.Anything, "https://x/1").Return(false, nil).Once()
	fetcher.On("VideoDetails", mock.Anything, "https://x/1").Return(&ytdlp.VideoMetadata{Title: "Meal"}, nil).Once()
	generator.On("GenerateContent", mock.Anything, mock.Anything).
		Return("```json\n{\"name\": \"Pasta\"}\n```", nil).Once()
	store.On("CreateRecipe", mock.Anything, mock.Anything).Return("pasta-123", nil).Once()
	store.On("PatchRecipe", mock.Anything, "pasta-123", mock.Anything).
		Return(&mealie.FailedRequestError{HttpCode: http.StatusInternalServerError, Body: "boom"}).Once()

	result, err := newService(store, fetcher, generator).Import(context.Background(), importer.Request{URL: "https://x/1", User: 1})

	assert.Nil(t, result)
	var trouble *importer.Trouble
	require.ErrorAs(t, err, &trouble)
	assert.Equal(t, importer.STORE_FAILURE, trouble.Type())

	// No delete/rollback operation exists on the store interface, so the
	// strongest assertion available is that create ran exactly once.
	store.AssertExpectations(t)
}
