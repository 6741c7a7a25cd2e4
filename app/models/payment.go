package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment stores the gateway-side charge created for an order: PIX QR payload,
// base64 image and copy-paste key. Rows are append-only; only the status
// column is ever updated after creation.
type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderID          uint            `gorm:"not null;index" json:"order_id"`
	GatewayPaymentID string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"gateway_payment_id"`
	Gateway          string          `gorm:"type:varchar(20);not null" json:"gateway"`
	Status           string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Amount           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	QRPayload        string          `gorm:"type:text" json:"qr_payload"`
	QRImageBase64    string          `gorm:"type:longtext" json:"qr_image_base64"`
	CopyPasteKey     string          `gorm:"type:text" json:"copy_paste_key"`
	ExpirationDate   *time.Time      `gorm:"type:timestamp;default:null" json:"expiration_date,omitempty"`
	IdempotencyKey   string          `gorm:"type:varchar(64);index" json:"idempotency_key"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
