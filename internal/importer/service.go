package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ladlehq/ladle/internal/http/gemini"
	"github.com/ladlehq/ladle/internal/ytdlp"
	"github.com/ladlehq/ladle/pkg/logger"
)

var log = logger.Get("Importer")

type (
	// MetadataFetcher obtains the metadata of the video a request points
	// at. The production implementation shells out to yt-dlp.
	MetadataFetcher interface {
		VideoDetails(ctx context.Context, url string) (*ytdlp.VideoMetadata, error)
	}

	// ContentGenerator turns a prompt into free-form model output. The
	// production implementation calls the Gemini API.
	ContentGenerator interface {
		GenerateContent(ctx context.Context, prompt string) (string, error)
	}

	// RecipeStore is the per-credential recipe-management backend. Only
	// RecipeExists is idempotent; the write operations mutate the store.
	RecipeStore interface {
		RecipeExists(ctx context.Context, sourceUrl string) (bool, error)
		CreateRecipe(ctx context.Context, draft interface{}) (string, error)
		PatchRecipe(ctx context.Context, slug string, fields map[string]interface{}) error
	}

	// Request describes one import: the video URL to import from, and the
	// user whose recipe store should receive the result.
	Request struct {
		URL  string
		User int
	}

	// Result describes a completed import.
	Result struct {
		Slug      string
		PublicURL string
	}

	// importService runs the import pipeline: duplicate check, metadata
	// fetch, model prompt, extraction, creation and patch-back. Each
	// external call is attempted exactly once per request; the first
	// failing stage aborts the run with a classified Trouble.
	//
	// The store mapping is constructed once at startup and never mutated,
	// so concurrent runs share it without locking. The duplicate check
	// and subsequent create are deliberately not atomic; two concurrent
	// imports of one URL can both pass the check, which is acceptable at
	// human-paced request rates.
	importService struct {
		stores     map[int]RecipeStore
		fetcher    MetadataFetcher
		generator  ContentGenerator
		publicHost string
	}
)

func New(publicHost string, stores map[int]RecipeStore, fetcher MetadataFetcher, generator ContentGenerator) *importService {
	return &importService{
		stores:     stores,
		fetcher:    fetcher,
		generator:  generator,
		publicHost: publicHost,
	}
}

// Import runs the full pipeline for one request. On failure the returned
// error is always a *Trouble classifying which stage gave up; a created
// but unpatched recipe is not rolled back when the final patch fails.
func (service *importService) Import(ctx context.Context, request Request) (*Result, error) {
	importID := uuid.New()
	log.Emit(logger.NEW, "Import %s requested for %s (user %d)\n", importID, request.URL, request.User)

	store, ok := service.stores[request.User]
	if !ok {
		return nil, newTrouble(&UserNotFoundError{UserID: request.User}, "")
	}

	log.Emit(logger.INFO, "Import %s checking store for duplicate recipe\n", importID)
	exists, err := store.RecipeExists(ctx, request.URL)
	if err != nil {
		return nil, newTrouble(err, "")
	} else if exists {
		return nil, newTrouble(&DuplicateRecipeError{SourceURL: request.URL}, "")
	}

	log.Emit(logger.INFO, "Import %s fetching video details\n", importID)
	metadata, err := service.fetcher.VideoDetails(ctx, request.URL)
	if err != nil {
		return nil, newTrouble(err, "")
	}
	log.Emit(logger.INFO, "Import %s fetched video details, title: %s\n", importID, metadata.Title)

	log.Emit(logger.INFO, "Import %s prompting model for a structured recipe\n", importID)
	modelOutput, err := service.generator.GenerateContent(ctx, buildPrompt(metadata))
	if err != nil {
		return nil, newTrouble(err, modelOutput)
	}

	draft, err := gemini.ExtractRecipe(modelOutput)
	if err != nil {
		log.Emit(logger.ERROR, "Import %s failed to extract a recipe from model output:\n%s\n", importID, modelOutput)
		return nil, newTrouble(err, modelOutput)
	}

	log.Emit(logger.INFO, "Import %s creating new recipe '%s'\n", importID, draft.Name())
	slug, err := store.CreateRecipe(ctx, draft)
	if err != nil {
		return nil, newTrouble(err, modelOutput)
	}

	// A failure from here on leaves a recipe without its original URL
	// patched in; that inconsistency is accepted and left for manual
	// correction rather than rolling the creation back.
	if err := store.PatchRecipe(ctx, slug, map[string]interface{}{"orgURL": request.URL}); err != nil {
		return nil, newTrouble(err, modelOutput)
	}

	result := &Result{
		Slug:      slug,
		PublicURL: fmt.Sprintf("%s/g/home/r/%s", service.publicHost, slug),
	}
	log.Emit(logger.SUCCESS, "Import %s complete: %s\n", importID, result.PublicURL)

	return result, nil
}
