package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/unclebandit/remarketing-console/internal/config"
	"github.com/unclebandit/remarketing-console/internal/db"
	"github.com/unclebandit/remarketing-console/internal/pkg/logger"
	"github.com/unclebandit/remarketing-console/internal/queue"
	"github.com/unclebandit/remarketing-console/internal/repository"
)

// The worker records full sends published by the server in local mode with
// DISPATCH_DRIVER=amqp.
func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	sqlDB, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer sqlDB.Close()

	q, err := queue.DialAMQP(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer q.Close()

	recorder := newRecorder(&repository.CampaignRepository{DB: sqlDB}, &repository.ContactRepository{DB: sqlDB})
	if err := queue.StartCampaignRecorder(q, cfg.DispatchQueue, recorder); err != nil {
		log.Fatal().Err(err).Msg("Failed to register consumer")
	}

	log.Info().Str("queue", cfg.DispatchQueue).Msg("Worker running, waiting for messages...")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("Worker shutting down")
}

func newRecorder(campaigns repository.CampaignRepositoryInterface, contacts repository.ContactRepositoryInterface) *queue.Recorder {
	return &queue.Recorder{Campaigns: campaigns, Contacts: contacts}
}
