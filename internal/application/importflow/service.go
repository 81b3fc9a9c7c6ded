package importflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/commerce-hub/commerce-hub/internal/domain/audit"
	"github.com/commerce-hub/commerce-hub/internal/domain/invoice"
)

// AuditSource identifies this flow on the audit bus.
const AuditSource = "app.invoice"

// TimeoutDetailType is the audit detail type emitted when a transaction
// expires before processing.
const TimeoutDetailType = "invoice-import-timeout"

// TimeoutDetail is the audit payload for an expired transaction.
type TimeoutDetail struct {
	ErrorCode     string `json:"errorCode"`
	TransactionID string `json:"transactionId"`
}

// UploadTarget is returned to the client over the synchronous response
// path of RequestUploadTarget.
type UploadTarget struct {
	URL       string `json:"uploadUrl"`
	Token     string `json:"transactionId"`
	ExpiresIn int    `json:"expiresIn"`
}

// Service is the invoice-import lifecycle controller. Each method is an
// independent entry point; the only coordination between them is the
// transaction store's conditional status update.
type Service struct {
	transactions invoice.TransactionRepository
	invoices     invoice.InvoiceRepository
	payloads     invoice.PayloadStore
	notifier     invoice.ChannelNotifier
	audit        audit.Publisher
	endpoint     string
	logger       zerolog.Logger
}

// NewService creates a new import flow service. endpoint is the origin
// address recorded on each transaction so the notifier can be rebuilt
// for it later.
func NewService(
	transactions invoice.TransactionRepository,
	invoices invoice.InvoiceRepository,
	payloads invoice.PayloadStore,
	notifier invoice.ChannelNotifier,
	auditBus audit.Publisher,
	endpoint string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		transactions: transactions,
		invoices:     invoices,
		payloads:     payloads,
		notifier:     notifier,
		audit:        auditBus,
		endpoint:     endpoint,
		logger:       logger.With().Str("service", "importflow").Logger(),
	}
}

// RequestUploadTarget mints a transaction in the URL_GENERATED state and
// returns a pre-authorized upload target correlated with its token.
func (s *Service) RequestUploadTarget(ctx context.Context, connectionID, requestID string) (*UploadTarget, error) {
	tx := invoice.NewTransaction(connectionID, requestID, s.endpoint)

	url, err := s.payloads.PresignPut(ctx, tx.Token, time.Duration(tx.ExpiresIn)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload target: %w", err)
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.logger.Info().
		Str("transactionId", tx.Token).
		Str("connectionId", connectionID).
		Str("requestId", requestID).
		Msg("upload target generated")

	return &UploadTarget{URL: url, Token: tx.Token, ExpiresIn: tx.ExpiresIn}, nil
}

// OnPayloadWritten handles an object-created notification for an upload
// target. The object key is the transaction token.
func (s *Service) OnPayloadWritten(ctx context.Context, bucket, key string) error {
	tx, err := s.transactions.Get(ctx, key)
	if err != nil {
		// No record means no known channel: nothing to notify.
		s.logger.Error().Err(err).Str("transactionId", key).Msg("transaction lookup failed for written payload")
		return fmt.Errorf("failed to get transaction %s: %w", key, err)
	}

	if tx.Status != invoice.StatusURLGenerated {
		// Duplicate or late delivery: report the stored status, never reprocess.
		s.notifier.SendStatus(ctx, key, tx.ConnectionID, tx.Status)
		s.logger.Warn().
			Str("transactionId", key).
			Str("status", string(tx.Status)).
			Msg("payload written for already advanced transaction")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.notifier.SendStatus(gctx, key, tx.ConnectionID, invoice.StatusInvoiceReceived)
		return nil
	})
	g.Go(func() error {
		ok, err := s.transactions.UpdateStatus(gctx, key, invoice.StatusURLGenerated, invoice.StatusInvoiceReceived)
		if err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		if !ok {
			// Lost the race; continue with the fetched record.
			s.logger.Warn().Str("transactionId", key).Msg("status update precondition failed, continuing")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("transactionId", key).Msg("failed to mark transaction received")
		return err
	}

	body, err := s.payloads.Get(ctx, bucket, key)
	if err != nil {
		// Keep the client informed before handing the failure back to the
		// trigger's redelivery policy.
		s.notifier.SendStatus(ctx, key, tx.ConnectionID, invoice.StatusInvoiceReceived)
		s.logger.Error().Err(err).Str("transactionId", key).Msg("failed to download payload")
		return fmt.Errorf("failed to download payload %s: %w", key, err)
	}

	var file invoice.File
	if err := json.Unmarshal(body, &file); err == nil {
		err = file.Validate()
	}
	if err != nil {
		// Payload is deliberately left in the object store for inspection.
		s.logger.Error().Err(err).Str("transactionId", key).Msg("invoice import failed, non valid invoice payload")
		return s.finishInvalid(ctx, key, tx.ConnectionID)
	}

	inv := invoice.NewInvoice(&file, key)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.invoices.Create(gctx, inv); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.payloads.Delete(gctx, bucket, key); err != nil {
			return fmt.Errorf("failed to delete payload: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ok, err := s.transactions.UpdateStatus(gctx, key, invoice.StatusInvoiceReceived, invoice.StatusInvoiceProcessed)
		if err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		if !ok {
			s.logger.Warn().Str("transactionId", key).Msg("status update precondition failed, continuing")
		}
		return nil
	})
	g.Go(func() error {
		s.notifier.SendStatus(gctx, key, tx.ConnectionID, invoice.StatusInvoiceProcessed)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("transactionId", key).Msg("invoice processing incomplete")
		return err
	}

	s.logger.Info().
		Str("transactionId", key).
		Str("invoiceNumber", inv.InvoiceNumber).
		Msg("invoice processed")

	return nil
}

func (s *Service) finishInvalid(ctx context.Context, token, connectionID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.notifier.SendStatus(gctx, token, connectionID, invoice.StatusNonValidNumber)
		return nil
	})
	g.Go(func() error {
		ok, err := s.transactions.UpdateStatus(gctx, token, invoice.StatusInvoiceReceived, invoice.StatusNonValidNumber)
		if err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		if !ok {
			s.logger.Warn().Str("transactionId", token).Msg("status update precondition failed, continuing")
		}
		return nil
	})
	return g.Wait()
}

// Cancel handles an explicit cancellation request from the client. Only
// a transaction still waiting for its upload can be cancelled.
func (s *Service) Cancel(ctx context.Context, token, connectionID string) error {
	tx, err := s.transactions.Get(ctx, token)
	if err != nil {
		s.logger.Error().Err(err).
			Str("transactionId", token).
			Str("connectionId", connectionID).
			Msg("invoice transaction not found")
		s.notifier.SendStatus(ctx, token, connectionID, invoice.StatusNotFound)
		return nil
	}

	if tx.Status != invoice.StatusURLGenerated {
		s.notifier.SendStatus(ctx, token, connectionID, tx.Status)
		s.logger.Info().
			Str("transactionId", token).
			Str("status", string(tx.Status)).
			Msg("can't cancel an ongoing process")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.notifier.SendStatus(gctx, token, connectionID, invoice.StatusInvoiceCancelled)
		return nil
	})
	g.Go(func() error {
		ok, err := s.transactions.UpdateStatus(gctx, token, invoice.StatusURLGenerated, invoice.StatusInvoiceCancelled)
		if err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		if !ok {
			s.logger.Warn().Str("transactionId", token).Msg("status update precondition failed, continuing")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("transactionId", token).Msg("failed to cancel transaction")
		return err
	}

	s.logger.Info().Str("transactionId", token).Msg("transaction cancelled")
	return nil
}

// OnExpired handles the store's removal notification for a record whose
// ttl elapsed. snapshot is the last known record image.
func (s *Service) OnExpired(ctx context.Context, snapshot *invoice.Transaction) error {
	if snapshot.Status == invoice.StatusInvoiceProcessed {
		// Completed transactions age out silently.
		return nil
	}

	s.logger.Warn().
		Str("transactionId", snapshot.Token).
		Str("status", string(snapshot.Status)).
		Msg("transaction expired before processing")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		detail := TimeoutDetail{ErrorCode: string(invoice.StatusTimeout), TransactionID: snapshot.Token}
		if err := s.audit.Publish(gctx, AuditSource, TimeoutDetailType, detail); err != nil {
			return fmt.Errorf("failed to publish timeout audit event: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.notifier.SendStatus(gctx, snapshot.Token, snapshot.ConnectionID, invoice.StatusTimeout)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("transactionId", snapshot.Token).Msg("failed to report transaction timeout")
		return err
	}

	s.notifier.Disconnect(ctx, snapshot.ConnectionID)
	return nil
}
