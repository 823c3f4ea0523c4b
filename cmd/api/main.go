package main

import (
	"context"
	"fmt"
	"log"

	"tasktracker-api/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		// Starting without a signing secret would silently accept forged
		// tokens; refuse to come up at all.
		log.Fatalf("invalid configuration: %v", err)
	}

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	policy := core.DefaultAccessPolicy()
	if cfg.AccessPolicyPath != "" {
		policy, err = core.LoadAccessPolicy(cfg.AccessPolicyPath)
		if err != nil {
			log.Fatalf("failed to load access policy: %v", err)
		}
	}

	codec, err := core.NewTokenCodec(cfg.JWTSecret, cfg.TokenLifetime)
	if err != nil {
		log.Fatalf("failed to build token codec: %v", err)
	}

	userRepo := core.NewPgUserRepository(db)
	taskRepo := core.NewPgTaskRepository(db)
	authService := core.NewRepositoryAuthService(userRepo, codec, cfg.BcryptCost)
	limiter := core.NewLoginLimiter(redisClient, cfg.LoginRateLimit, cfg.LoginRateWindow)

	if err := core.BootstrapAdmin(ctx, userRepo, cfg); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}

	router := core.NewRouter(cfg, policy, codec, authService, userRepo, taskRepo, limiter)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
