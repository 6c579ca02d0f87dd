package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lusakastack/shopstock-backend/internal/cache"
	"github.com/lusakastack/shopstock-backend/internal/modules/audit"
	"github.com/lusakastack/shopstock-backend/internal/modules/auth"
	"github.com/lusakastack/shopstock-backend/internal/modules/catalog"
	"github.com/lusakastack/shopstock-backend/internal/modules/intake"
	"github.com/lusakastack/shopstock-backend/internal/modules/shop"
	"github.com/lusakastack/shopstock-backend/internal/modules/stock"
	"github.com/lusakastack/shopstock-backend/internal/modules/transfer"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using process environment")
	}

	ctx := context.Background()

	// ── Database ────────────────────────────────────────────
	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	log.Info().Msg("connected to postgres")

	// ── Cache (optional, best-effort) ───────────────────────
	var cacheStore cache.Store = cache.NewNoop()
	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		cacheStore = cache.NewRedis(rdb)
		log.Info().Str("addr", addr).Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_ADDR not set, query cache disabled")
	}

	recorder := audit.NewLogRecorder(1024)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(auth.Middleware([]byte(getenv("JWT_SECRET", "your-secret-key"))))

	// ── Directories ─────────────────────────────────────────
	shopRepo := shop.NewPostgresRepository(db)
	shopService := shop.NewService(shopRepo)
	shop.NewHandler(shopService).RegisterRoutes(router)

	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo)
	catalog.NewHandler(catalogService).RegisterRoutes(router)

	// ── Ledger & movements ──────────────────────────────────
	ledger := stock.NewPostgresLedger(db)
	stockService := stock.NewService(ledger, cacheStore)
	stock.NewHandler(stockService).RegisterRoutes(router)

	transferRepo := transfer.NewPostgresRepository(db)
	transferService := transfer.NewService(transferRepo, ledger, shopService, catalogService, cacheStore, recorder)
	transfer.NewHandler(transferService).RegisterRoutes(router)

	intakeRepo := intake.NewPostgresRepository(db)
	intakeService := intake.NewService(intakeRepo, cacheStore, recorder)
	intake.NewHandler(intakeService).RegisterRoutes(router)

	// ── Server ──────────────────────────────────────────────
	port := getenv("APP_PORT", "8080")
	server := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Info().Str("port", port).Msg("shopstock API server starting")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}

	recorder.Close()
	if rdb != nil {
		rdb.Close()
	}
}
