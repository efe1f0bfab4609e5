package center

import (
	"hospicore/internal/core/tx"
	"hospicore/internal/domain"
)

// Service provides business logic for the HospitalCenter catalog.
type Service struct {
	*domain.CatalogService[*HospitalCenter]
	repo Repository
}

// NewService creates a new HospitalCenter service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*HospitalCenter]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "hospital center",
	})

	return &Service{
		CatalogService: base,
		repo:           repo,
	}
}
