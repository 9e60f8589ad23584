package internal

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ladlehq/ladle/internal/api"
	"github.com/ladlehq/ladle/internal/http/gemini"
	"github.com/ladlehq/ladle/internal/http/mealie"
	"github.com/ladlehq/ladle/internal/importer"
	"github.com/ladlehq/ladle/internal/user"
	"github.com/ladlehq/ladle/internal/ytdlp"
	"github.com/ladlehq/ladle/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	ImportService interface {
		Import(context.Context, importer.Request) (*importer.Result, error)
	}
)

// Ladle represents the top-level object for the server, and is
// responsible for constructing the external-facing clients, the per-user
// recipe store mapping, the import pipeline and the REST gateway.
type ladleImpl struct {
	config          LadleConfig
	metadataFetcher *ytdlp.MetadataFetcher

	importService ImportService
	restGateway   RunnableService
}

func New(config LadleConfig) *ladleImpl {
	log.Emit(logger.DEBUG, "Bootstrapping Ladle services using config: %#v\n", config)

	fetcher := ytdlp.NewMetadataFetcher(config.YtDlp)

	// The user -> store mapping is built exactly once here; the import
	// pipeline shares it read-only across concurrent requests.
	credentials := user.DiscoverCredentials(config.Mealie.Token, os.Environ())
	stores := make(map[int]importer.RecipeStore, len(credentials))
	for userID, token := range credentials {
		stores[userID] = mealie.NewClient(config.Mealie.Host, token)
	}

	importService := importer.New(config.PublicHost(), stores, fetcher, gemini.NewClient(config.Gemini))

	return &ladleImpl{
		config:          config,
		metadataFetcher: fetcher,
		importService:   importService,
		restGateway:     api.NewRestGateway(&config.Rest, importService),
	}
}

// Run brings the service up and does not return until it is stopped. The
// metadata tool is validated before any traffic is accepted; a broken
// tool makes every import impossible, so it is a startup failure rather
// than a per-request one. To stop Ladle, cancel the provided context.
func (ladle *ladleImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.INFO, "Validating yt-dlp binary at %s...\n", ladle.config.YtDlp.BinaryPath)
	if err := ladle.metadataFetcher.Validate(ctx); err != nil {
		return fmt.Errorf("yt-dlp validation failed: %w", err)
	}

	wg := &sync.WaitGroup{}
	ladle.spawnAsyncService(ctx, wg, ladle.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Ladle services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided service as its own go-routine,
// ensuring that the service waitgroup is updated correctly
func (ladle *ladleImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
