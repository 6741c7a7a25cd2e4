package repository

import (
	"github.com/pagflow/pagflow/app/models"
	"gorm.io/gorm"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository backed by GORM.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *paymentRepository) GetByGatewayPaymentID(gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByOrderID(orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("order_id = ?", orderID).Order("created_at DESC").First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) UpdateStatus(gatewayPaymentID, status string) error {
	return r.db.Model(&models.Payment{}).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		Update("status", status).Error
}

func (r *paymentRepository) Recent(limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Order("created_at DESC").Limit(limit).Find(&payments).Error
	return payments, err
}
