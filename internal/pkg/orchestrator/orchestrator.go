package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/pagflow/pagflow/internal/pkg/apperrors"
	"github.com/pagflow/pagflow/internal/pkg/env"
	"github.com/pagflow/pagflow/internal/pkg/gateway"
	"github.com/pagflow/pagflow/internal/pkg/keystore"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Orchestration states, advanced in order; ERROR absorbs from any step.
const (
	StateStart              = "START"
	StateCredentialResolved = "CREDENTIAL_RESOLVED"
	StateCustomerCreated    = "CUSTOMER_CREATED"
	StateChargeCreated      = "CHARGE_CREATED"
	StateQRFetched          = "QR_FETCHED"
	StatePersisted          = "PERSISTED"
	StateDone               = "DONE"
	StateError              = "ERROR"
)

// overallTimeout bounds a whole orchestration so a slow third gateway step
// cannot starve the caller; per-call timeouts live in the HTTP clients.
const overallTimeout = 90 * time.Second

// Input is one checkout attempt.
type Input struct {
	OrderID     uint
	Profile     gateway.CustomerProfile
	Amount      decimal.Decimal
	Description string
}

// Result is the normalized orchestration outcome handed back to the
// checkout handler.
type Result struct {
	CustomerID     string
	PaymentID      string
	Status         string
	QRPayload      string
	QRImageBase64  string
	CopyPasteKey   string
	ExpirationDate *time.Time
	Gateway        string
	IdempotencyKey string
}

// Orchestrator sequences credential resolution, the gateway charge flow and
// persistence for one checkout attempt. The provider is injected once at
// construction.
type Orchestrator struct {
	gateway      gateway.PaymentGateway
	selector     *keystore.Selector
	orders       repository.OrderRepository
	payments     repository.PaymentRepository
	policy       keystore.ValidationPolicy
	environment  string
	useTempEmail bool
	tempEmail    string
}

// Option tunes orchestrator construction.
type Option func(*Orchestrator)

// WithTempEmail substitutes a configured notification email for the
// customer's real one, uniformly across providers.
func WithTempEmail(email string) Option {
	return func(o *Orchestrator) {
		o.useTempEmail = strings.TrimSpace(email) != ""
		o.tempEmail = strings.TrimSpace(email)
	}
}

// WithEnvironment overrides the credential environment (tests).
func WithEnvironment(environment string) Option {
	return func(o *Orchestrator) { o.environment = environment }
}

func New(
	gw gateway.PaymentGateway,
	selector *keystore.Selector,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	policy keystore.ValidationPolicy,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		gateway:     gw,
		selector:    selector,
		orders:      orders,
		payments:    payments,
		policy:      policy,
		environment: models.KeyEnvironmentSandbox,
	}
	if env.IsProduction() {
		o.environment = models.KeyEnvironmentProduction
	}
	if env.GetBool("USE_TEMP_EMAIL", false) {
		WithTempEmail(env.GetEnv("TEMP_NOTIFICATION_EMAIL", ""))(o)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Orchestrate runs one checkout attempt to completion or error. Retries are
// the caller's decision; an order that already carries a gateway payment id
// is refused so a retry can never create a duplicate charge.
func (o *Orchestrator) Orchestrate(ctx context.Context, in Input) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, overallTimeout)
	defer cancel()

	state := StateStart

	order, err := o.orders.GetByID(in.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, o.fail(state, apperrors.Wrap(err, apperrors.KindValidation, "orchestrator", "order not found"))
		}
		return nil, o.fail(state, apperrors.Wrap(err, apperrors.KindPersistence, "orchestrator", "order lookup failed"))
	}
	if order.GatewayPaymentID != "" {
		return nil, o.fail(state, apperrors.New(apperrors.KindValidation, "orchestrator",
			"order already has a gateway payment attached"))
	}

	key, err := o.selector.ActiveKey(o.environment)
	if err != nil {
		if errors.Is(err, keystore.ErrNoActiveKey) {
			return nil, o.fail(state, apperrors.Wrap(err, apperrors.KindConfiguration, "orchestrator",
				"no active gateway key configured for "+o.environment))
		}
		return nil, o.fail(state, err)
	}

	credential := keystore.Sanitize(key.Secret)
	if check := keystore.Validate(credential); !check.Valid {
		if o.policy == keystore.PolicyStrict {
			return nil, o.fail(state, apperrors.New(apperrors.KindConfiguration, "orchestrator",
				"gateway key "+key.Label+" failed validation: "+check.Reason))
		}
		log.Printf("orchestrator: permissive policy, proceeding with invalid key %q: %s", key.Label, check.Reason)
	}
	state = StateCredentialResolved

	profile := in.Profile
	if o.useTempEmail {
		profile.Email = o.tempEmail
	}

	idempotencyKey := uuid.NewString()
	charge, err := o.gateway.CreateCharge(ctx, credential, gateway.ChargeRequest{
		Profile:           profile,
		Amount:            in.Amount,
		Description:       in.Description,
		ExternalReference: idempotencyKey,
	})
	if err != nil {
		return nil, o.fail(state, err)
	}
	state = StateQRFetched

	payment := &models.Payment{
		OrderID:          order.ID,
		GatewayPaymentID: charge.PaymentID,
		Gateway:          o.gateway.Name(),
		Status:           charge.Status,
		Amount:           in.Amount,
		QRPayload:        charge.QRPayload,
		QRImageBase64:    charge.QRImageBase64,
		CopyPasteKey:     charge.CopyPasteKey,
		ExpirationDate:   charge.ExpirationDate,
		IdempotencyKey:   idempotencyKey,
	}
	if err := o.payments.Create(payment); err != nil {
		// The charge already exists on the gateway side; this cannot be
		// silently dropped or blindly retried.
		log.Printf("RECONCILIATION REQUIRED: charge %s created on %s but payment record write failed for order %d: %v",
			charge.PaymentID, o.gateway.Name(), order.ID, err)
		return nil, o.fail(state, apperrors.Wrap(err, apperrors.KindPersistence, "orchestrator",
			"payment record write failed after charge creation"))
	}
	state = StatePersisted

	if err := o.orders.AttachGatewayPayment(order.ID, o.gateway.Name(), charge.PaymentID); err != nil {
		log.Printf("RECONCILIATION REQUIRED: charge %s persisted but order %d not linked: %v",
			charge.PaymentID, order.ID, err)
		return nil, o.fail(state, apperrors.Wrap(err, apperrors.KindPersistence, "orchestrator",
			"order update failed after charge creation"))
	}
	state = StateDone
	_ = state

	return &Result{
		CustomerID:     charge.CustomerID,
		PaymentID:      charge.PaymentID,
		Status:         charge.Status,
		QRPayload:      charge.QRPayload,
		QRImageBase64:  charge.QRImageBase64,
		CopyPasteKey:   charge.CopyPasteKey,
		ExpirationDate: charge.ExpirationDate,
		Gateway:        o.gateway.Name(),
		IdempotencyKey: idempotencyKey,
	}, nil
}

// Gateway exposes the injected provider for status queries.
func (o *Orchestrator) Gateway() gateway.PaymentGateway {
	return o.gateway
}

// ResolveCredential returns the sanitized routable credential for the
// orchestrator's environment (used by status checks against the gateway).
func (o *Orchestrator) ResolveCredential() (string, error) {
	key, err := o.selector.ActiveKey(o.environment)
	if err != nil {
		return "", err
	}
	return keystore.Sanitize(key.Secret), nil
}

func (o *Orchestrator) fail(state string, err error) error {
	log.Printf("orchestrator: failed at %s: %v", state, err)
	return err
}
