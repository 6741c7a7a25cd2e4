package repository

import (
	"github.com/pagflow/pagflow/app/models"
	"gorm.io/gorm"
)

type gatewayKeyRepository struct {
	db *gorm.DB
}

// NewGatewayKeyRepository creates a gateway key repository backed by GORM.
func NewGatewayKeyRepository(db *gorm.DB) GatewayKeyRepository {
	return &gatewayKeyRepository{db: db}
}

func (r *gatewayKeyRepository) Create(key *models.GatewayKey) error {
	return r.db.Create(key).Error
}

func (r *gatewayKeyRepository) GetByID(id uint) (*models.GatewayKey, error) {
	var key models.GatewayKey
	if err := r.db.First(&key, id).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *gatewayKeyRepository) Update(key *models.GatewayKey) error {
	return r.db.Save(key).Error
}

func (r *gatewayKeyRepository) Deactivate(id uint) error {
	return r.db.Model(&models.GatewayKey{}).Where("id = ?", id).
		Update("active", false).Error
}

func (r *gatewayKeyRepository) List() ([]models.GatewayKey, error) {
	var keys []models.GatewayKey
	err := r.db.Order("environment ASC, priority ASC").Find(&keys).Error
	return keys, err
}

func (r *gatewayKeyRepository) ActiveByEnvironment(environment string) (*models.GatewayKey, error) {
	var key models.GatewayKey
	err := r.db.
		Where("environment = ? AND active = ?", environment, true).
		Order("priority ASC").
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}
