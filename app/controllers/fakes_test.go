package controllers

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/pagflow/pagflow/app/models"
)

// In-memory repository fakes shared by the controller tests.

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*models.Order

	createErr error
	lookupErr error
}

func newFakeOrderRepo(orders ...*models.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[uint]*models.Order), nextID: 1}
	for _, o := range orders {
		repo.orders[o.ID] = o
		if o.ID >= repo.nextID {
			repo.nextID = o.ID + 1
		}
	}
	return repo
}

func (f *fakeOrderRepo) Create(order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = f.nextID
	f.nextID++
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetByID(id uint) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) GetByGatewayPaymentID(gatewayPaymentID string) (*models.Order, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.GatewayPaymentID == gatewayPaymentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) AttachGatewayPayment(orderID uint, gateway, gatewayPaymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Gateway = gateway
	order.GatewayPaymentID = gatewayPaymentID
	return nil
}

func (f *fakeOrderRepo) TransitionStatus(orderID uint, fromStatus, toStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.Status != fromStatus {
		return false, nil
	}
	order.Status = toStatus
	return true, nil
}

func (f *fakeOrderRepo) Recent(limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Order, 0, limit)
	for _, order := range f.orders {
		if len(out) == limit {
			break
		}
		out = append(out, *order)
	}
	return out, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments []*models.Payment
}

func (f *fakePaymentRepo) Create(payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakePaymentRepo) GetByGatewayPaymentID(gatewayPaymentID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.GatewayPaymentID == gatewayPaymentID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) GetByOrderID(orderID uint) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) UpdateStatus(gatewayPaymentID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.GatewayPaymentID == gatewayPaymentID {
			p.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) Recent(int) ([]models.Payment, error) { return nil, nil }

type fakeWebhookEventRepo struct {
	mu     sync.Mutex
	nextID uint
	events []*models.WebhookEvent

	createErr error
}

func (f *fakeWebhookEventRepo) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if f.createErr != nil {
		return false, nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.events {
		if existing.Provider == event.Provider && existing.ProviderEventID == event.ProviderEventID {
			return false, existing, nil
		}
	}
	f.nextID++
	event.ID = f.nextID
	f.events = append(f.events, event)
	return true, event, nil
}

func (f *fakeWebhookEventRepo) MarkProcessed(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, event := range f.events {
		if event.ID == id {
			event.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeWebhookEventRepo) Recent(int) ([]models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.WebhookEvent, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, *event)
	}
	return out, nil
}

// mapCache is an in-process status cache.
type mapCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return v, nil
}

func (c *mapCache) Set(key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := value.(string); ok {
		c.values[key] = s
	}
	return nil
}
