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

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gritfulAPI/handlers"
	"gritfulAPI/internal/config"
	"gritfulAPI/internal/email"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/notification"
	"gritfulAPI/internal/workers"
	"gritfulAPI/middleware"
	"gritfulAPI/services"
)

func newPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func newPushProvider(ctx context.Context, cfg *config.Config, lg *logger.Logger) notification.PushProvider {
	fcm, err := notification.NewFCMService(ctx, cfg.FCMServiceAccountJSON, cfg.FCMCredentialsFile, lg)
	if err != nil {
		if !errors.Is(err, notification.ErrNoFCMCredentials) {
			lg.Warn("Could not initialize FCM, push notifications will be logged only", "error", err)
		}
		return &notification.LogPushProvider{Log: lg.With("push", "log")}
	}
	lg.Info("FCM push provider initialized")
	return fcm
}

func newEmailSender(cfg *config.Config, lg *logger.Logger) email.Sender {
	if cfg.EmailEnabled() {
		lg.Info("SendGrid email sender initialized", "from", cfg.EmailFromAddress)
		return email.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddress)
	}
	lg.Warn("SENDGRID_API_KEY or EMAIL_FROM_ADDRESS not set, emails will be logged only")
	return email.NewConsoleSender(lg)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	clerk.SetKey(cfg.ClerkSecretKey)

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbPool, err := newPool(startupCtx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		lg.Fatal("Failed to connect to database", "error", err)
	}
	push := newPushProvider(startupCtx, cfg, lg)
	cancel()
	defer func() {
		lg.Info("Closing database connection pool")
		dbPool.Close()
	}()
	lg.Info("Connected to database")

	middleware.InitPrometheus()

	notificationService := services.NewNotificationService(dbPool, push, lg)
	defer notificationService.Close()
	feedService := services.NewFeedService(dbPool, notificationService, lg)
	userService := services.NewUserService(dbPool, cfg.DefaultTimezone)
	challengeService := services.NewChallengeService(dbPool, feedService, notificationService, lg)
	entryService := services.NewEntryService(dbPool, feedService, notificationService, lg)
	taskService := services.NewTaskService(dbPool, feedService, lg)
	participantService := services.NewParticipantService(dbPool, lg)
	emailService := services.NewEmailService(dbPool)

	emailWorker := workers.NewEmailWorker(emailService, newEmailSender(cfg, lg), lg, cfg.EmailBatchSize)
	emailWorker.OnResult = middleware.RecordEmailOutcome
	emailWorker.Start(cfg.EmailPollInterval)
	defer emailWorker.Stop()

	userHandler := handlers.NewUserHandler(userService, lg)
	challengeHandler := handlers.NewChallengeHandler(challengeService, lg)
	entryHandler := handlers.NewEntryHandler(entryService, lg)
	taskHandler := handlers.NewTaskHandler(taskService, lg)
	participantHandler := handlers.NewParticipantHandler(participantService, lg)
	feedHandler := handlers.NewFeedHandler(feedService, lg)
	notificationHandler := handlers.NewNotificationHandler(notificationService, lg)
	webhookHandler := handlers.NewWebhookHandler(userService, cfg.ClerkWebhookSecret, lg)
	cronHandler := handlers.NewCronHandler(emailWorker, lg)
	healthHandler := handlers.NewHealthHandler(dbPool)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	stopCleanup := make(chan struct{})
	go limiter.CleanupVisitors(stopCleanup)
	defer close(stopCleanup)

	r := mux.NewRouter()
	r.Use(middleware.MonitorMiddleware)
	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler())).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(limiter.Middleware)

	api.HandleFunc("/health", healthHandler.Health).Methods("GET")
	api.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	cron := api.PathPrefix("/cron").Subrouter()
	cron.Use(middleware.CronSecretMiddleware(cfg.CronSecret))
	cron.HandleFunc("/send-emails", cronHandler.SendEmails).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware(middleware.ClerkVerifier, lg))

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user", userHandler.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/challenges", challengeHandler.CreateChallenge).Methods("POST")
	protected.HandleFunc("/challenges", challengeHandler.ListChallenges).Methods("GET")
	protected.HandleFunc("/challenges/join", challengeHandler.JoinChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{id}", challengeHandler.GetChallenge).Methods("GET")
	protected.HandleFunc("/challenges/{id}/end", challengeHandler.EndChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{id}/participation", challengeHandler.LeaveChallenge).Methods("DELETE")

	protected.HandleFunc("/challenges/{id}/entries", entryHandler.SubmitDailyEntry).Methods("POST")
	protected.HandleFunc("/challenges/{id}/entries", entryHandler.GetDailyEntries).Methods("GET")
	protected.HandleFunc("/challenges/{id}/calendar", entryHandler.GetCalendar).Methods("GET")

	protected.HandleFunc("/challenges/{id}/tasks", taskHandler.GetTasks).Methods("GET")
	protected.HandleFunc("/challenges/{id}/tasks/{taskId}/complete", taskHandler.CompleteTask).Methods("POST")
	protected.HandleFunc("/challenges/{id}/tasks/{taskId}/complete", taskHandler.UndoTask).Methods("DELETE")

	protected.HandleFunc("/challenges/{id}/leaderboard", participantHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/challenges/{id}/stats", participantHandler.GetStats).Methods("GET")

	protected.HandleFunc("/challenges/{id}/feed", feedHandler.GetFeed).Methods("GET")
	protected.HandleFunc("/challenges/{id}/messages", feedHandler.GetMessages).Methods("GET")
	protected.HandleFunc("/challenges/{id}/messages", feedHandler.PostMessage).Methods("POST")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", handlers.TimezoneHeader}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		lg.Info("Starting server", "port", cfg.Port, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("Error starting server", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("Got signal, shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("Server shutdown error", "error", err)
	}

	lg.Info("Server shutdown complete")
}
