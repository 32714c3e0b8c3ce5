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
	mw "github.com/hoteldesk/backend/pkg/middleware"
	"github.com/hoteldesk/backend/services/payments/internal/clients"
	"github.com/hoteldesk/backend/services/payments/internal/handlers"
	"github.com/hoteldesk/backend/services/payments/internal/providers"
	"github.com/hoteldesk/backend/services/payments/internal/repository"
	"github.com/hoteldesk/backend/services/payments/internal/service"
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

	stripeProvider := providers.NewStripeProvider(cfg.Stripe.SecretKey)
	paypalProvider, err := providers.NewPayPalProvider(cfg.PayPal.ClientID, cfg.PayPal.Secret, cfg.PayPal.Mode)
	if err != nil {
		logger.Error("Failed to configure PayPal", "error", err)
		os.Exit(1)
	}

	paymentRepo := repository.NewPaymentRepository(pool)
	invoicesClient := clients.NewInvoicesClient(cfg.Services.ReservationsURL)

	paymentService := service.NewPaymentService(paymentRepo, stripeProvider, paypalProvider, invoicesClient, bus)

	h := handlers.New(paymentService, cfg)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("payments"))
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
		Addr:         ":8085",
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down payments service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Payments service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting payments service", "port", "8085")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Payments service error", "error", err)
		os.Exit(1)
	}
}
