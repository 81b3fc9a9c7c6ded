// devserver runs the whole backend in one process against in-memory
// infrastructure. It is a development harness: the deployed stack runs
// each trigger as its own function.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/commerce-hub/commerce-hub/internal/api/http"
	"github.com/commerce-hub/commerce-hub/internal/application/eventflow"
	"github.com/commerce-hub/commerce-hub/internal/application/importflow"
	orderapp "github.com/commerce-hub/commerce-hub/internal/application/order"
	productapp "github.com/commerce-hub/commerce-hub/internal/application/product"
	"github.com/commerce-hub/commerce-hub/internal/config"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/localhub"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/memory"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// infrastructure
	transactionStore := memory.NewTransactionStore()
	invoiceStore := memory.NewInvoiceStore()
	payloadStore := memory.NewPayloadStore(cfg.DevPublicURL, cfg.InvoicesBucket)
	productStore := memory.NewProductStore()
	orderStore := memory.NewOrderStore()
	eventStore := memory.NewEventStore()
	hub := localhub.NewHub(logger)
	topic := memory.NewTopic(logger)
	auditLog := memory.NewAuditLog(logger)

	// services
	eventsSvc := eventflow.NewService(eventStore, logger)
	importSvc := importflow.NewService(transactionStore, invoiceStore, payloadStore, hub, auditLog, cfg.DevPublicURL, logger)
	productSvc := productapp.NewService(productStore, eventsSvc, logger)
	orderSvc := orderapp.NewService(orderStore, productStore, topic, auditLog, logger)

	// The topic subscription replaces the deployed stack's queue-fed
	// projection function.
	topic.Subscribe(func(env order.Envelope, messageID string) {
		if err := eventsSvc.RecordOrderEvent(context.Background(), env, messageID); err != nil {
			logger.Error().Err(err).Str("message_id", messageID).Msg("failed to project order event")
		}
	})

	apiServer := httpapi.NewServer(importSvc, productSvc, orderSvc, eventsSvc, hub, payloadStore, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming endpoint holds connections open
		IdleTimeout:  60 * time.Second,
	}

	// The sweeper stands in for the store's ttl removal stream.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.SweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, snapshot := range transactionStore.ExpireDue(time.Now()) {
					if err := importSvc.OnExpired(context.Background(), snapshot); err != nil {
						logger.Error().Err(err).Str("transaction_id", snapshot.Token).Msg("expiry handling failed")
					}
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopSweep()
	hub.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
