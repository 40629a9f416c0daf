// main.go
//
// Entry point for the Spelling Nads Go server.
// Boot order: env + logging, word lists, asset preload, database + migrations,
// Azure client (optional), HTTP server.

package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marksoc/spelling-nads/server/internal/ai"
	"github.com/marksoc/spelling-nads/server/internal/httpserver"
	"github.com/marksoc/spelling-nads/server/internal/loader"
	"github.com/marksoc/spelling-nads/server/internal/store"
	"github.com/marksoc/spelling-nads/server/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}

	// Images, sounds, and narrator clips; games hold in LOADING_ASSETS until
	// this settles. Missing files degrade, they don't abort.
	assets := loader.Preload(getEnv("PUBLIC_DIR", "./public"))

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	aiClient, err := ai.NewFromEnv()
	if err != nil {
		log.Warn().Err(err).Msg("azure client unavailable, narration and definitions degrade")
		aiClient = nil
	}

	sessions := store.NewMemoryStore()
	srv := httpserver.New(sessions, db, aiClient, assets)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting spelling-nads server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
