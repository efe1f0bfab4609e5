package financier

import (
	"context"
	"fmt"

	"hospicore/internal/core/id"
	"hospicore/internal/core/tx"
	"hospicore/internal/domain"
)

// Service provides business logic for the Financier catalog.
type Service struct {
	*domain.CatalogService[*Financier]
	repo Repository
}

// NewService creates a new Financier service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Financier]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "financier",
	})

	return &Service{
		CatalogService: base,
		repo:           repo,
	}
}

// SetActive flips the active flag.
func (s *Service) SetActive(ctx context.Context, financierID id.ID, active bool) error {
	f, err := s.GetByID(ctx, financierID)
	if err != nil {
		return err
	}

	if f.Active == active {
		return nil
	}

	// Version bump is handled by the repository on update.
	f.Active = active
	if err := s.Update(ctx, f); err != nil {
		return fmt.Errorf("set financier active=%t: %w", active, err)
	}
	return nil
}
