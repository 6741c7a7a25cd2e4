package repository

import (
	"github.com/pagflow/pagflow/app/models"
	"gorm.io/gorm"
)

// GatewayKeyRepository defines database operations for gateway credentials.
type GatewayKeyRepository interface {
	Create(key *models.GatewayKey) error
	GetByID(id uint) (*models.GatewayKey, error)
	Update(key *models.GatewayKey) error
	Deactivate(id uint) error
	List() ([]models.GatewayKey, error)
	// ActiveByEnvironment returns the active key with the lowest priority
	// value for the environment, or gorm.ErrRecordNotFound.
	ActiveByEnvironment(environment string) (*models.GatewayKey, error)
}

// OrderRepository defines database operations for checkout orders.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByGatewayPaymentID(gatewayPaymentID string) (*models.Order, error)
	AttachGatewayPayment(orderID uint, gateway, gatewayPaymentID string) error
	// TransitionStatus performs a status-guarded conditional update and
	// reports whether the row was actually changed.
	TransitionStatus(orderID uint, fromStatus, toStatus string) (bool, error)
	Recent(limit int) ([]models.Order, error)
}

// PaymentRepository defines database operations for gateway charge records.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByGatewayPaymentID(gatewayPaymentID string) (*models.Payment, error)
	GetByOrderID(orderID uint) (*models.Payment, error)
	UpdateStatus(gatewayPaymentID, status string) error
	Recent(limit int) ([]models.Payment, error)
}

// WebhookEventRepository defines database operations for the webhook log.
type WebhookEventRepository interface {
	// CreateIfNotExists appends the event unless one with the same provider
	// event id exists; reports whether a new row was written.
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
	Recent(limit int) ([]models.WebhookEvent, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	GatewayKey   GatewayKeyRepository
	Order        OrderRepository
	Payment      PaymentRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		GatewayKey:   NewGatewayKeyRepository(db),
		Order:        NewOrderRepository(db),
		Payment:      NewPaymentRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
