package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/pagflow/pagflow/app/models"
	"github.com/shopspring/decimal"
)

// CustomerProfile is the checkout identification data sent to a provider.
// Phone and tax id are normalized to digits before leaving the process.
type CustomerProfile struct {
	Name  string
	Email string
	Phone string
	TaxID string
}

// ChargeRequest is the provider-agnostic input for a PIX charge.
type ChargeRequest struct {
	Profile     CustomerProfile
	Amount      decimal.Decimal
	Description string
	// ExternalReference is the client-generated idempotency key for this
	// checkout attempt, passed through to the provider.
	ExternalReference string
}

// ChargeResult is the normalized output of a charge creation. CopyPasteKey
// may legitimately be empty: the alternate provider returns an image URL
// instead of a payload string.
type ChargeResult struct {
	CustomerID     string
	PaymentID      string
	Status         string
	QRPayload      string
	QRImageBase64  string
	CopyPasteKey   string
	ExpirationDate *time.Time
}

// PaymentGateway is the capability interface the orchestrator is built
// against. The provider is selected once at construction, never branched
// inline. Implementations that manage their own credentials (PushinPay)
// ignore the credential argument.
type PaymentGateway interface {
	Name() string
	CreateCharge(ctx context.Context, credential string, req ChargeRequest) (*ChargeResult, error)
	PaymentStatus(ctx context.Context, credential, paymentID string) (string, error)
}

// DigitsOnly strips everything but 0-9 from phone numbers and tax ids.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// NormalizeStatus maps provider status strings onto the order status set.
func NormalizeStatus(providerStatus string) string {
	switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
	case "PENDING", "AWAITING_PAYMENT", "CREATED", "WAITING_PAYMENT":
		return models.OrderStatusPending
	case "RECEIVED", "CONFIRMED", "RECEIVED_IN_CASH", "PAID", "APPROVED":
		return models.OrderStatusConfirmed
	case "OVERDUE", "EXPIRED":
		return models.OrderStatusOverdue
	case "REFUNDED", "REFUND_REQUESTED":
		return models.OrderStatusRefunded
	case "CANCELLED", "CANCELED", "DELETED":
		return models.OrderStatusCancelled
	default:
		return models.OrderStatusPending
	}
}
