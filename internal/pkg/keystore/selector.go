package keystore

import (
	"errors"

	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/pagflow/pagflow/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// ErrNoActiveKey means no active credential is configured for the requested
// environment. Callers must fail the enclosing operation with a configuration
// error, never proceed with an empty credential.
var ErrNoActiveKey = errors.New("no active gateway key for environment")

// Selector resolves the routable credential for an environment.
type Selector struct {
	keys repository.GatewayKeyRepository
}

func NewSelector(keys repository.GatewayKeyRepository) *Selector {
	return &Selector{keys: keys}
}

// ActiveKey returns the active credential with the lowest priority value for
// the environment. Zero matches yield ErrNoActiveKey; database failures are
// reported as a distinct persistence error.
func (s *Selector) ActiveKey(environment string) (*models.GatewayKey, error) {
	key, err := s.keys.ActiveByEnvironment(environment)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveKey
		}
		return nil, apperrors.Wrap(err, apperrors.KindPersistence, "keystore.ActiveKey", "gateway key lookup failed")
	}
	return key, nil
}
