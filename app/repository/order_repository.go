package repository

import (
	"time"

	"github.com/pagflow/pagflow/app/models"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository backed by GORM.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByGatewayPaymentID(gatewayPaymentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) AttachGatewayPayment(orderID uint, gateway, gatewayPaymentID string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"gateway":            gateway,
			"gateway_payment_id": gatewayPaymentID,
		}).Error
}

// TransitionStatus guards the write with the expected current status so a
// concurrent webhook and simulator cannot regress each other's update.
func (r *orderRepository) TransitionStatus(orderID uint, fromStatus, toStatus string) (bool, error) {
	tx := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *orderRepository) Recent(limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Order("created_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}
