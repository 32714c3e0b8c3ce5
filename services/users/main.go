package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/hoteldesk/backend/pkg/config"
	"github.com/hoteldesk/backend/pkg/database"
	"github.com/hoteldesk/backend/pkg/logger"
	"github.com/hoteldesk/backend/pkg/mailer"
	mw "github.com/hoteldesk/backend/pkg/middleware"
	"github.com/hoteldesk/backend/services/users/internal/handlers"
	"github.com/hoteldesk/backend/services/users/internal/repository"
	"github.com/hoteldesk/backend/services/users/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Server.LogLevel)

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	limiter := newRateLimiter(cfg.Redis.URL)

	authService := service.NewAuthService(userRepo, limiter, newMailer(cfg), cfg.Auth)
	userService := service.NewUserService(userRepo)

	h := handlers.New(authService, userService, cfg)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("users"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h.Routes(r)

	srv := &http.Server{
		Addr:         ":8081",
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down users service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Users service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting users service", "port", "8081")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Users service error", "error", err)
		os.Exit(1)
	}
}

func newRateLimiter(redisURL string) repository.RateLimitRepository {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("Invalid Redis URL, reset-code rate limiting disabled", "error", err)
		return repository.NoopRateLimiter{}
	}
	return repository.NewRateLimitRepository(redis.NewClient(opts))
}

func newMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
	}
}
