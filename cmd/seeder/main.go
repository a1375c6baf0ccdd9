//cmd/seeder/main.go
package main

import (
    "os"

    "github.com/rs/zerolog/log"

    "github.com/unclebandit/remarketing-console/internal/config"
    "github.com/unclebandit/remarketing-console/internal/db"
    "github.com/unclebandit/remarketing-console/internal/pkg/logger"
)

func main() {
    cfg := config.Load()
    logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

    sqlDB, err := db.Connect(cfg.DatabaseURL)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to connect to database")
    }
    defer sqlDB.Close()

    for _, file := range cfg.SeedFiles {
        content, err := os.ReadFile(file)
        if err != nil {
            log.Fatal().Err(err).Str("file", file).Msg("Failed to read seed file")
        }

        if _, err := sqlDB.Exec(string(content)); err != nil {
            log.Fatal().Err(err).Str("file", file).Msg("Failed to execute seed file")
        }
        log.Info().Str("file", file).Msg("Seeded")
    }

    log.Info().Int("files", len(cfg.SeedFiles)).Msg("Database seeding completed successfully!")
}
