package orchestrator

import (
	"errors"
	"fmt"
	"log"

	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/pagflow/pagflow/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// ErrInvalidTransition rejects status changes the transition table forbids,
// e.g. CONFIRMED back to PENDING.
var ErrInvalidTransition = errors.New("invalid order status transition")

// StatusService is the single write path for order status. Webhooks, the
// watcher and manual simulations all go through Transition, so every change
// is validated against the transition table and guarded against concurrent
// writers.
type StatusService struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
}

func NewStatusService(orders repository.OrderRepository, payments repository.PaymentRepository) *StatusService {
	return &StatusService{orders: orders, payments: payments}
}

// TransitionByGatewayPaymentID applies a status change to the order matching
// the gateway payment id. Returns whether the row changed; an invalid
// transition is reported via ErrInvalidTransition, a stale guard (another
// writer got there first) as changed=false with no error.
func (s *StatusService) TransitionByGatewayPaymentID(gatewayPaymentID, newStatus, source string) (bool, error) {
	order, err := s.orders.GetByGatewayPaymentID(gatewayPaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		return false, apperrors.Wrap(err, apperrors.KindPersistence, "status.Transition", "order lookup failed")
	}
	return s.transition(order, newStatus, source)
}

// TransitionOrder applies a status change to an order by id.
func (s *StatusService) TransitionOrder(orderID uint, newStatus, source string) (bool, error) {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		return false, apperrors.Wrap(err, apperrors.KindPersistence, "status.Transition", "order lookup failed")
	}
	return s.transition(order, newStatus, source)
}

func (s *StatusService) transition(order *models.Order, newStatus, source string) (bool, error) {
	if order.Status == newStatus {
		return false, nil
	}
	if !models.CanTransitionOrderStatus(order.Status, newStatus) {
		return false, fmt.Errorf("%w: %s -> %s (source=%s, order=%d)",
			ErrInvalidTransition, order.Status, newStatus, source, order.ID)
	}

	changed, err := s.orders.TransitionStatus(order.ID, order.Status, newStatus)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.KindPersistence, "status.Transition", "order status write failed")
	}
	if !changed {
		// Guard lost against a concurrent writer; last valid write wins.
		log.Printf("status: stale transition %s -> %s for order %d (source=%s) skipped",
			order.Status, newStatus, order.ID, source)
		return false, nil
	}

	if order.GatewayPaymentID != "" {
		if err := s.payments.UpdateStatus(order.GatewayPaymentID, newStatus); err != nil {
			log.Printf("status: payment record %s not updated to %s: %v", order.GatewayPaymentID, newStatus, err)
		}
	}
	log.Printf("status: order %d %s -> %s (source=%s)", order.ID, order.Status, newStatus, source)
	return true, nil
}
