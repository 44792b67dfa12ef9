package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rewards_backend/internal/avatar"
	"rewards_backend/internal/catalog"
	"rewards_backend/internal/chest"
	"rewards_backend/internal/config"
	"rewards_backend/internal/db"
	"rewards_backend/internal/events"
	httpServer "rewards_backend/internal/http"
	"rewards_backend/internal/http/handlers"
	"rewards_backend/internal/http/middleware"
	"rewards_backend/internal/kv"
	"rewards_backend/internal/logger"
	"rewards_backend/internal/migrations"
	"rewards_backend/internal/progress"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/reward"
	"rewards_backend/internal/service"
	"rewards_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	if cfg.AutoMigrate {
		applied, err := migrations.Apply(ctx, dbPool)
		if err != nil {
			logger.Fatal("migrations failed", "error", err)
		}
		logger.Info("migrations applied", "count", len(applied))
	}

	// Redis опционален: без него работаем на in-memory шине и кэше
	rdb := connectRedis(ctx, cfg)
	var (
		bus   events.Bus
		cache kv.Store
	)
	if rdb != nil {
		defer rdb.Close()
		middleware.SetRedisClient(rdb)
		redisBus := events.NewRedisBus(rdb)
		go redisBus.Run(ctx)
		bus = redisBus
		cache = kv.NewRedisStore(rdb, "rewards:", 0)
	} else {
		bus = events.NewLocalBus()
		cache = kv.NewMemoryStore()
	}

	table, err := config.LoadRarityTable(cfg.RarityFile)
	if err != nil {
		logger.Fatal("invalid rarity table", "error", err)
	}
	source := catalogSource(cfg)
	loader := avatar.NewLoader(assetFetcher(cfg),
		avatar.WithCache(avatar.NewCache()),
		avatar.WithTimeout(cfg.AssetLoadTimeout),
	)

	userRepo := repository.NewUserRepository(dbPool)
	rewardRepo := repository.NewRewardRepository(dbPool)
	achievementRepo := repository.NewAchievementRepository(dbPool)
	audit := service.NewAuditService(repository.NewAuditRepository(dbPool))

	sampler := reward.NewSampler(table, source, rewardRepo, reward.WithBundleSize(cfg.BundleSize))
	recorder := reward.NewRecorder(rewardRepo)

	// hub and chest service reference each other
	var hub *ws.Hub
	chests := service.NewChestService(sampler, recorder, audit,
		service.WithStateListener(func(userID int64, sessionID string, st chest.State) {
			hub.PushChestState(userID, sessionID, st)
		}),
	)
	hub = ws.NewHub(chests, loader)

	checker := progress.NewChecker(achievementRepo, cache, bus)
	prog := progress.NewService(userRepo, checker, progress.NewLevelQueue(), bus, audit)

	h := handlers.NewHandler(handlers.Deps{
		Catalog:       source,
		Rarities:      table,
		Rewards:       service.NewRewardService(rewardRepo, sampler, recorder, audit),
		Chests:        chests,
		Avatars:       service.NewAvatarService(userRepo, rewardRepo, loader, audit),
		Progress:      prog,
		Audit:         audit,
		Prefs:         cache,
		Bus:           bus,
		Hub:           hub,
		AllowedOrigin: cfg.AllowedOrigin,
	})
	health := handlers.NewHealthHandler(dbPool, rdb, version)

	go hub.Run(ctx, bus)
	chests.StartCleanup(ctx)

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, h, health, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}

func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory fallbacks", "addr", cfg.RedisAddr, "error", err)
		_ = rdb.Close()
		return nil
	}
	logger.Info("redis connected", "addr", cfg.RedisAddr)
	return rdb
}

func catalogSource(cfg *config.Config) catalog.Source {
	if cfg.CatalogURL != "" {
		return catalog.NewHTTPSource(cfg.CatalogURL, &http.Client{Timeout: 10 * time.Second})
	}
	return catalog.NewDirSource(cfg.CatalogDir)
}

func assetFetcher(cfg *config.Config) avatar.Fetcher {
	if cfg.AvatarAssetURL != "" {
		return avatar.NewHTTPFetcher(cfg.AvatarAssetURL, &http.Client{Timeout: cfg.AssetLoadTimeout})
	}
	return avatar.NewDirFetcher(cfg.AvatarAssetDir)
}
