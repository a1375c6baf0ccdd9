// cmd/server/main.go
package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/unclebandit/remarketing-console/internal/cache"
	"github.com/unclebandit/remarketing-console/internal/client"
	"github.com/unclebandit/remarketing-console/internal/config"
	"github.com/unclebandit/remarketing-console/internal/controller"
	"github.com/unclebandit/remarketing-console/internal/db"
	"github.com/unclebandit/remarketing-console/internal/handler"
	"github.com/unclebandit/remarketing-console/internal/pkg/logger"
	"github.com/unclebandit/remarketing-console/internal/queue"
	"github.com/unclebandit/remarketing-console/internal/repository"
	"github.com/unclebandit/remarketing-console/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	var (
		dispatcher service.Dispatcher
		catalog    service.PlanCatalog
		store      service.HistoryStore
	)

	switch cfg.BackendMode {
	case config.BackendAPI:
		api := client.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.APITimeout)
		dispatcher, catalog, store = api, api, api
		log.Info().Str("base_url", cfg.APIBaseURL).Msg("Using platform API backend")

	case config.BackendLocal:
		sqlDB, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer sqlDB.Close()

		redisClient, err := db.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, plan catalog cache disabled")
			redisClient = nil
		}
		if redisClient != nil {
			defer redisClient.Close()
		}

		campaignRepo := &repository.CampaignRepository{DB: sqlDB}
		contactRepo := &repository.ContactRepository{DB: sqlDB}
		planRepo := &repository.PlanRepository{DB: sqlDB}

		var q queue.Queue
		if cfg.DispatchDriver == config.DispatchAMQP {
			amqpQueue, err := queue.DialAMQP(cfg.AMQPURL)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
			}
			defer amqpQueue.Close()
			// Recording happens in cmd/worker.
			q = amqpQueue
		} else {
			mem := queue.NewInMemoryQueue()
			recorder := &queue.Recorder{Campaigns: campaignRepo, Contacts: contactRepo}
			if err := queue.StartCampaignRecorder(mem, cfg.DispatchQueue, recorder); err != nil {
				log.Fatal().Err(err).Msg("Failed to start campaign recorder")
			}
			q = mem
		}

		dispatcher = &queue.Dispatcher{Queue: q, Topic: cfg.DispatchQueue, Contacts: contactRepo}
		catalog = &cache.PlanCache{Source: planRepo, Redis: redisClient, TTL: cfg.PlanCacheTTL}
		store = &service.CampaignService{CampaignRepo: campaignRepo}
		log.Info().Str("dispatch", cfg.DispatchDriver).Msg("Using local backend")

	default:
		log.Fatal().Str("backend_mode", cfg.BackendMode).Msg("Unknown BACKEND_MODE")
	}

	consoles := service.NewConsoleRegistry(dispatcher, catalog, store)
	consoles.IdleTTL = cfg.ConsoleIdleTTL
	consoles.StartSweeper(context.Background(), cfg.ConsoleIdleTTL/2)
	historyController := &controller.HistoryController{Consoles: consoles}
	wizardHandler := handler.NewWizardHandler(consoles)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/targets", historyController.Targets)

	// Console routes
	r.Post("/consoles", historyController.OpenConsole)
	r.Route("/consoles/{id}", func(r chi.Router) {
		r.Delete("/", historyController.CloseConsole)
		r.Put("/bot", historyController.SelectBot)

		r.Route("/wizard", func(r chi.Router) {
			r.Get("/", wizardHandler.GetWizardHandler)
			r.Delete("/", wizardHandler.DiscardHandler)
			r.Put("/audience", wizardHandler.SetAudienceHandler)
			r.Put("/content", wizardHandler.SetContentHandler)
			r.Put("/offer", wizardHandler.SetOfferHandler)
			r.Delete("/offer", wizardHandler.RemoveOfferHandler)
			r.Post("/next", wizardHandler.NextHandler)
			r.Post("/back", wizardHandler.BackHandler)
			r.Post("/jump", wizardHandler.JumpHandler)
			r.Get("/review", wizardHandler.ReviewHandler)
			r.Post("/submit", wizardHandler.SubmitHandler)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", historyController.GetHistory)
			r.Post("/{ref}", historyController.GoToPage)
			r.Delete("/{ref}", historyController.DeleteCampaign)
			r.Post("/{ref}/reuse", historyController.ReuseCampaign)
		})
	})

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("backend", cfg.BackendMode).Msg("Server running")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
