package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/config"
	"github.com/researchportal/completion-ledger/internal/database"
	"github.com/researchportal/completion-ledger/internal/handler"
	mw "github.com/researchportal/completion-ledger/internal/middleware"
	"github.com/researchportal/completion-ledger/internal/queue"
	"github.com/researchportal/completion-ledger/internal/ratelimit"
	"github.com/researchportal/completion-ledger/internal/repository"
	"github.com/researchportal/completion-ledger/internal/router"
	"github.com/researchportal/completion-ledger/internal/service"
	"github.com/researchportal/completion-ledger/migrations"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database open: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db, migrations.FS); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// Redis is optional: without it the rate limiter falls back to an
	// in-process window and the leaderboard cache is disabled.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, using in-process rate limiting, no response cache")
	}

	redeemRL := config.LoadRedeemRateLimit()
	publicRL := config.LoadPublicRateLimit()
	var redeemLimiter, publicLimiter ratelimit.Limiter
	if redeemRL.Enabled {
		if rdb != nil {
			redeemLimiter = ratelimit.NewRedisLimiter(rdb, redeemRL.Max, redeemRL.Window)
		} else {
			redeemLimiter = ratelimit.NewMemoryLimiter(redeemRL.Max, redeemRL.Window)
		}
	}
	if publicRL.Enabled {
		if rdb != nil {
			publicLimiter = ratelimit.NewRedisLimiter(rdb, publicRL.Max, publicRL.Window)
		} else {
			publicLimiter = ratelimit.NewMemoryLimiter(publicRL.Max, publicRL.Window)
		}
	}

	st := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	refresh := repository.NewRefreshTokenRepo(db)

	badges := service.NewBadgeEvaluator(st, service.DefaultBadgeRules())
	issuer := service.NewIssuer(st, cfg.TokenSecret)
	redemption := service.NewRedemption(st, redeemLimiter, redeemRL.Prefix, cfg.TokenSecret,
		badges, queue.NewPublisher(), cfg.VerifiedPoints, cfg.SimplePoints)
	points := service.NewPoints(st)
	board := service.NewLeaderboard(st)

	go func() {
		if err := queue.StartCompletionConsumer(); err != nil {
			log.Printf("completion consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(mw.RequestID())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, refresh), cfg.JWTSecret)
	router.RegisterLedger(e,
		handler.NewTokenHandler(issuer),
		handler.NewVerifyHandler(redemption),
		handler.NewPointsHandler(points, st.Badges),
		cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewLeaderboardHandler(board), cfg.JWTSecret,
		mw.PublicRateLimit(publicLimiter, publicRL.Prefix),
		mw.NewRedisCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
