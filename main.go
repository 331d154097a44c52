package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"daily-checkin-system/games"
	"daily-checkin-system/handlers"
	"daily-checkin-system/middleware"
	"daily-checkin-system/models"
	"daily-checkin-system/services"
	"daily-checkin-system/utils"
	"daily-checkin-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Game{},
		&models.Account{},
		&models.CheckinLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedGames(db); err != nil {
		log.Fatal("failed to seed game registry:", err)
	}

	cipher, err := utils.NewCredentialCipher(os.Getenv("CREDENTIAL_KEY"))
	if err != nil {
		log.Fatal("failed to initialize credential cipher:", err)
	}
	if os.Getenv("CREDENTIAL_KEY") == "" {
		log.Println("⚠️  CREDENTIAL_KEY not set, credentials are stored unencrypted")
	}

	// Report sinks: log always, Discord webhook and R2 archive when configured
	reporters := services.MultiReporter{services.LogReporter{}}
	if webhook := os.Getenv("DISCORD_WEBHOOK"); webhook != "" {
		reporters = append(reporters, services.NewDiscordWebhookReporter(webhook))
	}
	if err := utils.InitR2(); err != nil {
		log.Println("⚠️  R2 archive disabled:", err)
	} else {
		reporters = append(reporters, workers.NewReportArchiver())
	}

	delay := 3 * time.Second
	if raw := os.Getenv("CHECKIN_DELAY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			log.Fatal("invalid CHECKIN_DELAY_SECONDS value: ", raw)
		}
		delay = time.Duration(seconds) * time.Second
	}

	adapters := []games.Adapter{
		games.NewHoyolabAdapter(utils.HTTPClient),
		games.NewSkportAdapter(utils.HTTPClient),
	}

	checkinService := services.NewCheckinService(
		services.NewStore(db), adapters, cipher.Decrypt,
		reporters, delay,
	)
	accountService := services.NewAccountService(db, cipher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hour, minute := scheduleFromEnv()
	checkinService.StartCheckinScheduler(ctx, hour, minute)

	app := fiber.New()
	app.Use(middleware.ServiceAuthMiddleware())
	handlers.SetupCheckinRoutes(app, checkinService)
	handlers.SetupAccountRoutes(app, accountService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Check-in service running on http://localhost:5300")
	log.Printf("✅ Inter-account delay: %s", delay)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}

// scheduleFromEnv parses CHECKIN_TIME_UTC ("HH:MM", default 16:00).
func scheduleFromEnv() (int, int) {
	raw := os.Getenv("CHECKIN_TIME_UTC")
	if raw == "" {
		return 16, 0
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		log.Fatal("invalid CHECKIN_TIME_UTC value (want HH:MM): ", raw)
	}
	return t.Hour(), t.Minute()
}
