package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"tour-planner-service/internal/adapters/cache"
	"tour-planner-service/internal/adapters/places"
	"tour-planner-service/internal/adapters/repositories"
	"tour-planner-service/internal/adapters/travel"
	"tour-planner-service/internal/api"
	"tour-planner-service/internal/config"
	"tour-planner-service/internal/ports"
	"tour-planner-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQLite, Foursquare, ORS, Redis) behind ports
// and starts the HTTP server. Missing API keys degrade to local adapters:
// seeded stops instead of place search, estimated legs instead of routing.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	dbPath := config.Get("DB_PATH", "data/app.db")
	seedPath := config.Get("SEED_PATH", "data/seeds/stops.json")
	port := config.Get("PORT", "8080")

	db, err := openDB(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Initialize schema and seed demo candidate stops on startup for
	// local runs.
	if err := initAndSeed(db, seedPath); err != nil {
		log.Fatal(err)
	}

	candidates := candidateProvider(db)
	travelProvider := travelProvider(db)
	prefs := repositories.NewSqlitePreferenceStore(db)

	planner := services.NewPlanner(candidates, travelProvider, prefs, optimizerConfig())
	router := api.NewRouter(planner)

	// Timeouts are tuned for cold-cache planning (external API latency).
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func candidateProvider(db *sql.DB) ports.CandidateProvider {
	fsqKey := strings.TrimSpace(os.Getenv("FSQ_API_KEY"))
	if fsqKey == "" {
		log.Println("FSQ_API_KEY not set, serving candidates from seeded stops")
		return repositories.NewSqliteStopRepository(db)
	}

	provider, err := places.NewFSQCandidateProvider(fsqKey, cache.NewSqliteGeocodeCache(db))
	if err != nil {
		log.Fatal(err)
	}
	return provider
}

func travelProvider(db *sql.DB) ports.TravelProvider {
	orsKey := strings.TrimSpace(os.Getenv("ORS_API_KEY"))
	if orsKey == "" {
		log.Println("ORS_API_KEY not set, estimating travel legs")
		return travel.NewEstimateTravelProvider()
	}

	// Prefer a shared Redis leg cache when configured; fall back to the
	// local SQLite cache otherwise.
	var legCache ports.TravelCache = cache.NewSqliteTravelCache(db)
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		legCache = cache.NewRedisTravelCache(client, 24*time.Hour)
	}

	provider, err := travel.NewORSTravelProvider(orsKey, legCache)
	if err != nil {
		log.Fatal(err)
	}
	return provider
}

func optimizerConfig() services.OptimizerConfig {
	cfg := services.DefaultOptimizerConfig()
	cfg.SlackPenaltyWeight = config.GetFloat("SLACK_PENALTY", cfg.SlackPenaltyWeight)
	cfg.BudgetSlackPenaltyWeight = config.GetFloat("BUDGET_SLACK_PENALTY", cfg.BudgetSlackPenaltyWeight)
	cfg.DiversityBonus = config.GetFloat("DIVERSITY_BONUS", cfg.DiversityBonus)
	cfg.ContinuityBonus = config.GetFloat("CONTINUITY_BONUS", cfg.ContinuityBonus)
	cfg.MaxStops = config.GetInt("MAX_STOPS", cfg.MaxStops)
	cfg.LocalSearchPasses = config.GetInt("LOCAL_SEARCH_PASSES", cfg.LocalSearchPasses)
	cfg.TimeBudget = time.Duration(config.GetInt("PLAN_TIME_BUDGET_MS", int(cfg.TimeBudget.Milliseconds()))) * time.Millisecond
	return cfg
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

func initAndSeed(db *sql.DB, seedPath string) error {
	if err := repositories.InitSchema(db); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromJSON(db, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}
