package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hercure/internal/agent"
	"hercure/internal/assistant"
	"hercure/internal/config"
	"hercure/internal/conversation"
	"hercure/internal/health"
	"hercure/internal/insight"
	"hercure/internal/notification"
	"hercure/internal/platform/mail"
	"hercure/internal/platform/postgres"
	"hercure/internal/platform/telegram"
	"hercure/internal/report"
	"hercure/internal/user"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// 1. Infrastructure
	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()
	log.Println("Connected to Database.")

	if err := postgres.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// 2. Clients
	model, err := agent.NewGenerator(cfg)
	if err != nil {
		log.Fatalf("language model: %v", err)
	}
	ttsClient := agent.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID)
	sttClient := agent.NewWhisperClient(cfg.STTURL)

	var careTeam interface {
		notification.CareTeam
		report.DocumentSender
	}
	if cfg.TelegramBotToken != "" && cfg.CareTeamChatID != 0 {
		tg, err := telegram.NewClient(cfg.TelegramBotToken, cfg.CareTeamChatID)
		if err != nil {
			log.Printf("care team channel disabled: %v", err)
		} else {
			careTeam = tg
		}
	} else {
		log.Println("Warning: TELEGRAM_BOT_TOKEN or CARE_TEAM_CHAT_ID is not set. Care team delivery is disabled.")
	}

	var mailer notification.Mailer
	if cfg.MailEnabled() {
		sender, err := mail.NewGmailSender(ctx, cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRefreshToken, cfg.GmailSender)
		if err != nil {
			log.Printf("urgent email disabled: %v", err)
		} else {
			mailer = sender
		}
	}

	// 3. Services
	userRepo := user.NewRepository(db)
	healthRepo := health.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	userSvc := user.NewService(userRepo)
	healthSvc := health.NewService(healthRepo)
	conversations := conversation.NewManager(conversation.NewRepository(db))
	assistantSvc := assistant.NewService(
		healthSvc,
		conversations,
		insight.NewRepository(),
		model,
		ttsClient,
		sttClient,
		assistant.Options{RecentWindow: cfg.RecentWindow, HistoryLimit: cfg.PromptHistoryLimit},
	)
	reportSvc := report.NewService(healthSvc, userSvc, careTeam, cfg.ReportFontPath)
	dispatcher := notification.NewDispatcher(notificationRepo, userSvc, mailer, careTeam)

	if cfg.SchedulerEnabled {
		scheduler := notification.NewScheduler()
		if err := scheduler.Register(notification.NewJobs(userSvc, healthRepo, dispatcher)); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// 4. Router
	router := newRouter(cfg, handlers{
		users:         user.NewHandler(userSvc),
		health:        health.NewHandler(healthSvc),
		reports:       report.NewHandler(reportSvc),
		notifications: notification.NewHandler(notificationRepo),
		assistant:     assistant.NewHandler(assistantSvc),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s...", cfg.AppPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
