package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/pkg/config"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
)

// PaymentService simulates the enrollment fee settlement. There is no real
// gateway behind it: details are validated, redacted and returned as a
// receipt after a configurable processing delay. Cancelling the context
// during the delay aborts with no side effect.
type PaymentService struct {
	cfg     config.PaymentConfig
	logger  *zap.Logger
	metrics *MetricsService
	now     func() time.Time
}

// NewPaymentService constructs the payment processor.
func NewPaymentService(cfg config.PaymentConfig, metrics *MetricsService, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Amount <= 0 {
		cfg.Amount = 1000
	}
	if cfg.Currency == "" {
		cfg.Currency = "PHP"
	}
	return &PaymentService{cfg: cfg, logger: logger, metrics: metrics, now: time.Now}
}

// Process validates the raw details for the chosen method, waits out the
// simulated settlement delay and returns a redacted receipt. Raw card and
// account numbers never leave this function.
func (s *PaymentService) Process(ctx context.Context, method models.PaymentMethod, details models.PaymentDetails) (*models.PaymentRecord, error) {
	if err := s.validateDetails(method, details); err != nil {
		return nil, err
	}

	if s.cfg.ProcessingDelay > 0 {
		timer := time.NewTimer(s.cfg.ProcessingDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			s.logger.Info("payment cancelled before settlement", zap.String("method", string(method)))
			return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrPaymentCancelled.Code, appErrors.ErrPaymentCancelled.Status, "payment cancelled before settlement")
		case <-timer.C:
		}
	}

	record := &models.PaymentRecord{
		Reference: "PAY-" + uuid.NewString(),
		Method:    method,
		Details:   redact(method, details),
		Amount:    s.cfg.Amount,
		Currency:  s.cfg.Currency,
		Timestamp: s.now().UTC(),
	}

	if s.metrics != nil {
		s.metrics.RecordPayment(string(method), s.cfg.ProcessingDelay)
	}
	s.logger.Info("payment settled",
		zap.String("method", string(method)),
		zap.Int64("amount", record.Amount),
		zap.String("currency", record.Currency),
	)

	return record, nil
}

func (s *PaymentService) validateDetails(method models.PaymentMethod, details models.PaymentDetails) error {
	var fields []models.FieldError
	missing := func(field string) {
		fields = append(fields, models.FieldError{Field: field, Reason: "is required"})
	}

	switch method {
	case models.PaymentMethodCreditCard:
		if strings.TrimSpace(details.CardNumber) == "" {
			missing("card_number")
		}
		if strings.TrimSpace(details.CardName) == "" {
			missing("card_name")
		}
		if strings.TrimSpace(details.Expiry) == "" {
			missing("expiry")
		}
		if strings.TrimSpace(details.CVC) == "" {
			missing("cvc")
		}
	case models.PaymentMethodBankTransfer:
		if strings.TrimSpace(details.AccountName) == "" {
			missing("account_name")
		}
		if strings.TrimSpace(details.AccountNumber) == "" {
			missing("account_number")
		}
		if strings.TrimSpace(details.BankName) == "" {
			missing("bank_name")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported payment method")
	}

	if len(fields) > 0 {
		return &FormValidationError{Fields: fields}
	}
	return nil
}

func redact(method models.PaymentMethod, details models.PaymentDetails) models.RedactedDetails {
	switch method {
	case models.PaymentMethodCreditCard:
		return models.RedactedDetails{
			CardNumber: maskDigits(details.CardNumber),
			CardName:   details.CardName,
			Expiry:     details.Expiry,
		}
	default:
		return models.RedactedDetails{
			AccountName:   details.AccountName,
			AccountNumber: maskDigits(details.AccountNumber),
			BankName:      details.BankName,
		}
	}
}

// maskDigits replaces every digit except the last four with '*', leaving
// separators in place.
func maskDigits(s string) string {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits <= 4 {
		return s
	}
	toMask := digits - 4
	out := []rune(s)
	for i, r := range out {
		if toMask == 0 {
			break
		}
		if r >= '0' && r <= '9' {
			out[i] = '*'
			toMask--
		}
	}
	return string(out)
}
