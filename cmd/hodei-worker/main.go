// Command hodei-worker is the Worker Runtime binary (C8): it dials the
// orchestrator's Worker Channel, registers under WORKER_ID, and executes
// whatever the orchestrator assigns until the connection ends.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/rubentxu/hodei-pipelines/internal/workerrt"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		log.Fatal().Msg("WORKER_ID is required")
	}
	serverURL := os.Getenv("HODEI_CHANNEL_URL")
	if serverURL == "" {
		serverURL = "ws://localhost:8080/ws"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := workerrt.New(workerrt.Config{ServerURL: serverURL, WorkerID: workerID}, log)
	if err := rt.Run(ctx); err != nil {
		log.Error().Err(err).Msg("worker runtime exited")
		os.Exit(1)
	}
}
