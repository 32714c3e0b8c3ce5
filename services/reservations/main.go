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

	"github.com/hoteldesk/backend/pkg/config"
	"github.com/hoteldesk/backend/pkg/database"
	"github.com/hoteldesk/backend/pkg/events"
	"github.com/hoteldesk/backend/pkg/logger"
	"github.com/hoteldesk/backend/pkg/mailer"
	mw "github.com/hoteldesk/backend/pkg/middleware"
	"github.com/hoteldesk/backend/services/reservations/internal/clients"
	"github.com/hoteldesk/backend/services/reservations/internal/handlers"
	"github.com/hoteldesk/backend/services/reservations/internal/repository"
	"github.com/hoteldesk/backend/services/reservations/internal/service"
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

	var bus events.Publisher
	if eventBus, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
	} else {
		bus = eventBus
		defer eventBus.Close()
	}

	reservationRepo := repository.NewReservationRepository(pool)
	invoiceRepo := repository.NewInvoiceRepository(pool)

	roomsClient := clients.NewRoomsClient(cfg.Services.RoomsURL, cfg.Services.RoomsToken)
	usersClient := clients.NewUsersClient(cfg.Services.UsersURL)

	reservationService := service.NewReservationService(reservationRepo, invoiceRepo, roomsClient, usersClient, bus)
	invoiceService := service.NewInvoiceService(invoiceRepo, reservationRepo, usersClient, newMailer(cfg), bus)

	h := handlers.New(reservationService, invoiceService, cfg)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("reservations"))
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
		Addr:         ":8082",
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down reservations service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Reservations service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting reservations service", "port", "8082")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Reservations service error", "error", err)
		os.Exit(1)
	}
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
