package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/tapcore/tap-access/internal/config"
	"github.com/tapcore/tap-access/internal/database"
	"github.com/tapcore/tap-access/internal/handler"
	"github.com/tapcore/tap-access/internal/middleware"
	"github.com/tapcore/tap-access/internal/queue"
	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/router"
	"github.com/tapcore/tap-access/internal/service"
	"github.com/tapcore/tap-access/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	albums := repository.NewAlbumRepo(db)
	access := repository.NewAccessRepo(db)
	verifications := repository.NewVerificationRepo(db)
	pins := repository.NewPinRepo(db)

	notifier := queue.NewPublisher(cfg.AMQPURL)
	if notifier.Configured() {
		// The consumer is the local delivery worker; a real mail sender
		// replaces it by consuming the same queue.
		go func() {
			if err := queue.StartVerificationConsumer(cfg.AMQPURL); err != nil {
				log.Printf("notifier consumer stopped: %v", err)
			}
		}()
	} else if cfg.IsProd() {
		log.Printf("warning: no notifier configured, code requests will fail")
	}

	signer, err := storage.NewSigner(context.Background(), storage.Options{
		Bucket:         cfg.S3Bucket,
		Region:         cfg.S3Region,
		Endpoint:       cfg.S3Endpoint,
		AccessKeyID:    cfg.S3AccessKeyID,
		SecretKey:      cfg.S3SecretKey,
		ForcePathStyle: cfg.S3ForcePathStyle,
		SignedURLTTL:   cfg.SignedURLTTL,
	})
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	verification := service.NewVerificationService(cfg, albums, access, verifications, notifier)
	gate := service.NewGateService(albums, access, pins)
	assets := service.NewAssetService(cfg, albums, access, signer)

	// Expired pending codes are already rejected on read; the sweeper
	// just keeps the table from growing unbounded.
	go func() {
		for range time.Tick(time.Hour) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if n, err := verifications.DeleteExpired(ctx); err != nil {
				log.Printf("verification sweep: %v", err)
			} else if n > 0 {
				log.Printf("verification sweep: removed %d expired", n)
			}
			cancel()
		}
	}()

	var rateLimit echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		rateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Printf("redis unavailable, request-code rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		RateLimit: rateLimit,
		Auth:      handler.NewAuthHandler(cfg, verification),
		Access:    handler.NewAccessHandler(cfg, gate),
		Assets:    handler.NewAssetHandler(assets, signer.Remote()),
		Albums:    handler.NewAlbumHandler(cfg, albums),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, storage=%v)", addr, cfg.Env, signer.Remote())
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
