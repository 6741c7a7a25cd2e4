package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusRefunded  = "REFUNDED"
	OrderStatusOverdue   = "OVERDUE"
)

const (
	GatewayAsaas     = "asaas"
	GatewayPushinPay = "pushinpay"
)

// Order is the application's own record of a checkout attempt, distinct from
// the gateway's charge record. Created when the customer completes the
// identification step; never deleted by the normal flow.
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CustomerName     string          `gorm:"type:varchar(191);not null" json:"customer_name"`
	CustomerEmail    string          `gorm:"type:varchar(191);not null" json:"customer_email"`
	CustomerPhone    string          `gorm:"type:varchar(30)" json:"customer_phone"`
	CustomerTaxID    string          `gorm:"type:varchar(20);not null" json:"customer_tax_id"`
	ProductID        string          `gorm:"type:varchar(100);not null" json:"product_id"`
	BumpIDs          string          `gorm:"type:text" json:"bump_ids"`
	Amount           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status           string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentMethod    string          `gorm:"type:varchar(20);not null;default:'PIX'" json:"payment_method"`
	Gateway          string          `gorm:"type:varchar(20)" json:"gateway"`
	GatewayPaymentID string          `gorm:"type:varchar(100);index" json:"gateway_payment_id"`
	UTMJson          string          `gorm:"type:text" json:"utm_json"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminalOrderStatus reports whether a status ends payment tracking.
func IsTerminalOrderStatus(status string) bool {
	switch status {
	case OrderStatusConfirmed, OrderStatusCancelled, OrderStatusRefunded, OrderStatusOverdue:
		return true
	default:
		return false
	}
}

// CanTransitionOrderStatus is the single source of truth for order status
// changes. Webhooks, the status watcher and manual simulations all go through
// this table, so a stale "pending" notification can never overwrite a newer
// terminal status.
func CanTransitionOrderStatus(from, to string) bool {
	if from == to {
		return false
	}
	switch from {
	case OrderStatusPending:
		return to == OrderStatusConfirmed || to == OrderStatusCancelled ||
			to == OrderStatusRefunded || to == OrderStatusOverdue
	case OrderStatusConfirmed:
		return to == OrderStatusRefunded
	case OrderStatusOverdue:
		// Late settlement after the due date is still accepted by PIX.
		return to == OrderStatusConfirmed
	default:
		return false
	}
}
