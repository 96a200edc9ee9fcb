package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/google/uuid"

	"essaysmaster_backend/internals/configs"
	"essaysmaster_backend/internals/databases/backend"
	"essaysmaster_backend/internals/features/essays/revision/ai"
	"essaysmaster_backend/internals/features/essays/revision/scheduler"
	"essaysmaster_backend/internals/features/essays/revision/service"
	helper "essaysmaster_backend/internals/helpers"
	middlewares "essaysmaster_backend/internals/middlewares"
	routes "essaysmaster_backend/internals/route"
)

func main() {
	configs.LoadEnv()
	revCfg := configs.LoadRevisionConfig()
	aiCfg := configs.LoadAIConfig()

	// a round may spend the whole collaborator budget before answering
	reqTimeout := configs.GetEnvDuration("HTTP_REQUEST_TIMEOUT",
		time.Duration(revCfg.CollaboratorAttempts)*revCfg.CollaboratorTimeout+revCfg.CollaboratorBackoff+30*time.Second)

	app := fiber.New(fiber.Config{
		// 🚀 fast JSON
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
		BodyLimit:               2 * 1024 * 1024,
		// unhandled errors and recovered panics still use the JSON envelope
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code, msg := fiber.StatusInternalServerError, "internal error"
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code, msg = fe.Code, fe.Message
			}
			return helper.JsonError(c, code, msg)
		},
	})

	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// 🔎 Request-ID + timing
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), reqTimeout)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	middlewares.SetupMiddlewares(app)

	// 🔌 store + lock
	storage, err := backend.Open(revCfg)
	if err != nil {
		log.Fatalf("❌ backend init: %v", err)
	}

	bgCtx, stopBg := context.WithCancel(context.Background())
	var cleanupDone <-chan struct{}
	if storage.GormLocker != nil {
		cleanupDone = scheduler.StartLockCleanupScheduler(bgCtx, storage.GormLocker)
	}

	collaborator := ai.NewClient(ai.NewProvider(aiCfg), aiCfg, revCfg)
	log.Printf("🤖 Collaborator provider: %s", collaborator.ProviderName())

	rounds := service.NewRoundService(storage.Store, storage.Locker, collaborator, revCfg)

	routes.SetupRoutes(app, routes.Deps{
		JWTSecret: configs.JWTSecret,
		Rounds:    rounds,
		Ping:      storage.Ping,
	})

	// 🔒 Keep-Alive & server timeouts
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = reqTimeout + 10*time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: stop HTTP, drain progress evaluations, close storage
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	if err := rounds.Wait(ctx); err != nil {
		log.Printf("[WARN] progress evaluations still running: %v", err)
	}

	stopBg()
	if cleanupDone != nil {
		<-cleanupDone
	}
	storage.Close()
}
