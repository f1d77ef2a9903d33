package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/pkg/config"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
)

func TestProcessCreditCardRedactsDetails(t *testing.T) {
	svc := NewPaymentService(config.PaymentConfig{Amount: 1000, Currency: "PHP"}, nil, nil)

	record, err := svc.Process(context.Background(), models.PaymentMethodCreditCard, models.PaymentDetails{
		CardNumber: "4111-1111-1111-9876",
		CardName:   "Maria Garcia",
		Expiry:     "12/27",
		CVC:        "123",
	})
	require.NoError(t, err)

	assert.Equal(t, "****-****-****-9876", record.Details.CardNumber)
	assert.Equal(t, "Maria Garcia", record.Details.CardName)
	assert.Equal(t, int64(1000), record.Amount)
	assert.Equal(t, "PHP", record.Currency)
	assert.NotEmpty(t, record.Reference)
}

func TestProcessBankTransferRedactsAccount(t *testing.T) {
	svc := NewPaymentService(config.PaymentConfig{Amount: 1000, Currency: "PHP"}, nil, nil)

	record, err := svc.Process(context.Background(), models.PaymentMethodBankTransfer, models.PaymentDetails{
		AccountName:   "Maria Garcia",
		AccountNumber: "0012345678",
		BankName:      "BDO",
	})
	require.NoError(t, err)
	assert.Equal(t, "******5678", record.Details.AccountNumber)
	assert.Equal(t, "BDO", record.Details.BankName)
}

func TestProcessCollectsMissingFields(t *testing.T) {
	svc := NewPaymentService(config.PaymentConfig{}, nil, nil)

	_, err := svc.Process(context.Background(), models.PaymentMethodCreditCard, models.PaymentDetails{CardName: "Maria"})
	var formErr *FormValidationError
	require.ErrorAs(t, err, &formErr)
	assert.Len(t, formErr.Fields, 3)

	_, err = svc.Process(context.Background(), models.PaymentMethod("cash"), models.PaymentDetails{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProcessHonoursCancellation(t *testing.T) {
	svc := NewPaymentService(config.PaymentConfig{ProcessingDelay: time.Second}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_, err := svc.Process(ctx, models.PaymentMethodBankTransfer, models.PaymentDetails{
		AccountName: "Maria", AccountNumber: "0012345678", BankName: "BDO",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPaymentCancelled.Code, appErrors.FromError(err).Code)
	assert.Less(t, time.Since(start), time.Second)
}

func TestMaskDigitsKeepsShortValuesIntact(t *testing.T) {
	assert.Equal(t, "1234", maskDigits("1234"))
	assert.Equal(t, "12", maskDigits("12"))
	assert.Equal(t, "**3456", maskDigits("123456"))
}
