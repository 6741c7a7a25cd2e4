package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	KeyEnvironmentSandbox    = "sandbox"
	KeyEnvironmentProduction = "production"
)

// GatewayKey is one payment-gateway credential. Several rows may exist per
// environment; routing picks the active row with the lowest priority value.
// Keys are deactivated instead of deleted to preserve audit history.
type GatewayKey struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Label       string    `gorm:"type:varchar(100);not null" json:"label"`
	Secret      string    `gorm:"type:text;not null" json:"-"`
	Environment string    `gorm:"type:varchar(20);not null;index:idx_gateway_keys_env_active,priority:1" json:"environment"`
	Active      bool      `gorm:"not null;default:true;index:idx_gateway_keys_env_active,priority:2" json:"active"`
	Priority    int       `gorm:"not null;default:100" json:"priority"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MaskedSecret returns a diagnostics-safe form of the credential.
func (k *GatewayKey) MaskedSecret() string {
	if len(k.Secret) <= 10 {
		return "***"
	}
	return k.Secret[:10] + "..." + k.Secret[len(k.Secret)-4:]
}

// HashSecret returns the sha256 hex digest used for admin key comparison.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
