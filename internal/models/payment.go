package models

import "time"

// PaymentMethod enumerates the simulated settlement channels.
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// PaymentDetails is the raw caller input. It is validated and redacted by
// the payment processor; the raw values are never persisted.
type PaymentDetails struct {
	CardNumber string `json:"card_number,omitempty"`
	CardName   string `json:"card_name,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CVC        string `json:"cvc,omitempty"`

	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
}

// RedactedDetails is the masked copy stored on the application. Numbers keep
// only their last four digits; the CVC is dropped entirely.
type RedactedDetails struct {
	CardNumber string `json:"card_number,omitempty"`
	CardName   string `json:"card_name,omitempty"`
	Expiry     string `json:"expiry,omitempty"`

	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
}

// PaymentRecord is the redacted receipt written into the application.
type PaymentRecord struct {
	Reference string          `json:"reference"`
	Method    PaymentMethod   `json:"method"`
	Details   RedactedDetails `json:"details"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Timestamp time.Time       `json:"timestamp"`
}
