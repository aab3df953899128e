package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arena-battle-system/battle"
	"arena-battle-system/config"
	"arena-battle-system/handlers"
	"arena-battle-system/middleware"
	"arena-battle-system/services"
	"arena-battle-system/telemetry"
	"arena-battle-system/utils"
	"arena-battle-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "arena-battle-system", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Fatal("failed to set up tracing: ", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	// --- Persistence ---
	var store services.Store
	if cfg.DatabaseURL == "" {
		log.Println("⚠️  DATABASE_URL not set, keeping rooms and events in memory")
		store = services.NewMemoryStore()
	} else {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatal("failed to connect to database: ", err)
		}
		gormStore := services.NewGormStore(db)
		if err := gormStore.AutoMigrate(); err != nil {
			log.Fatal(err)
		}
		store = gormStore
	}

	// --- Battle engine ---
	var sampler *battle.RandSampler
	if cfg.RNGSeed != 0 {
		sampler = battle.NewSampler(cfg.RNGSeed)
	} else if sampler, err = battle.NewSeededSampler(); err != nil {
		log.Fatal("failed to seed sampler: ", err)
	}
	log.Printf("🎲 Sampler seed: %d", sampler.Seed())

	pool := battle.DefaultTemplates()
	if cfg.NarrativeTemplatesPath != "" {
		if pool, err = battle.LoadTemplatesFile(cfg.NarrativeTemplatesPath); err != nil {
			log.Fatal("failed to load narrative templates: ", err)
		}
	}
	narration := &battle.Narration{Pool: pool, Timeout: cfg.NarrativeTimeout, Sampler: sampler}

	var namer services.ArenaNamer
	if cfg.NarrativeEnabled() {
		client := services.NewNarrativeClient(services.NarrativeClientConfig{
			BaseURL:    cfg.NarrativeBaseURL,
			Model:      cfg.NarrativeModel,
			APIKey:     cfg.NarrativeAPIKey,
			HTTPClient: utils.NewHTTPClient(cfg.NarrativeTimeout),
		})
		narration.Provider = client
		namer = client
		log.Printf("✅ Narrative provider: %s", cfg.NarrativeModel)
	} else {
		log.Println("⚠️  NARRATIVE_API_KEY not set, using template narration only")
	}

	eventLog := services.NewEventLog(store, services.NewEventHub())
	executor := services.NewRoundExecutor(store, eventLog, narration, sampler)
	pacing := battle.Pacing{
		Initial: cfg.RoundInitialDelay,
		Min:     cfg.RoundMinDelay,
		Max:     cfg.RoundMaxDelay,
		Step:    cfg.RoundDelayStep,
	}

	scheduler, err := services.NewRoundScheduler(store, eventLog, executor, pacing)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.R2.Enabled() {
		bucket, err := utils.InitR2(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		scheduler.OnFinish = services.NewBattleArchiver(store, bucket).OnFinish
		log.Printf("✅ Battle archives go to R2 bucket %s", cfg.R2.Bucket)
	}

	manager := services.NewRoomManager(store, scheduler)
	manager.Namer = namer

	if err := scheduler.Watch("activation-watcher", cfg.ActivationPollInterval, manager.ActivateDue); err != nil {
		log.Fatal(err)
	}
	scheduler.Start()
	// Pick up rooms that were ACTIVE or due before this process started.
	manager.ActivateDue(ctx)

	if cfg.ProfileSyncEnabled() {
		worker := workers.NewProfileSyncWorker(store, cfg.ProfileSyncURL, cfg.ProfileSyncPath, cfg.ProfileSyncToken, cfg.ProfileSyncInterval, nil)
		worker.Start(ctx)
	} else {
		log.Println("⚠️  PROFILE_SYNC_URL / PROFILE_SYNC_TOKEN not set, profile sync disabled")
	}

	// --- HTTP ---
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Origins(), ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 🔐❗ Only Gateway requests allowed past this point
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, "/health"))

	handlers.SetupBattleRoutes(app, services.NewRoomService(manager, store, eventLog))

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.ListenAddr)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.Origins(), ","))

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
}
