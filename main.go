package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ladlehq/ladle/internal"
	"github.com/ladlehq/ladle/pkg/logger"
)

var log = logger.Get("Main")

// main is the entry point to the program. Configuration is sourced from
// an optional .env file, an optional YAML config file, and the process
// environment; any missing mandatory value aborts startup before the
// server accepts traffic.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Emit(logger.DEBUG, "No .env file found\n")
	}

	configPath := flag.String("config", "", "Path to an optional YAML configuration file")
	flag.Parse()

	config := internal.LadleConfig{}
	if *configPath != "" {
		if err := config.LoadFromFile(*configPath); err != nil {
			log.Emit(logger.FATAL, "Failed to load configuration: %s\n", err.Error())
			os.Exit(1)
		}
	} else if err := config.LoadFromEnv(); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %s\n", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Emit(logger.STOP, "Received interrupt signal, shutting down...\n")
		cancel()
	}()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Ladle failed: %s\n", err.Error())
		os.Exit(1)
	}
}
