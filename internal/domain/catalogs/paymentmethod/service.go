package paymentmethod

import (
	"context"

	"hospicore/internal/core/tx"
	"hospicore/internal/domain"
)

// Service provides business logic for the PaymentMethod catalog.
// When a classifier is configured, IsCashEquivalent is derived from it at
// create and update time, so the flag stays consistent with the predicate.
type Service struct {
	*domain.CatalogService[*PaymentMethod]
	repo       Repository
	classifier *Classifier
}

// NewService creates a new PaymentMethod service.
// classifier may be nil, in which case IsCashEquivalent is taken as provided.
func NewService(repo Repository, txManager tx.Manager, classifier *Classifier) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*PaymentMethod]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "payment method",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		classifier:     classifier,
	}

	base.Hooks().OnBeforeCreate(svc.resolveCashFlag)
	base.Hooks().OnBeforeUpdate(svc.resolveCashFlag)

	return svc
}

// resolveCashFlag derives IsCashEquivalent from the configured predicate.
func (s *Service) resolveCashFlag(ctx context.Context, m *PaymentMethod) error {
	if s.classifier == nil {
		return nil
	}

	isCash, err := s.classifier.IsCashEquivalent(m)
	if err != nil {
		return err
	}
	m.IsCashEquivalent = isCash
	return nil
}

// ListCashEquivalent returns all methods whose receipts enter the cash ledger.
func (s *Service) ListCashEquivalent(ctx context.Context) ([]*PaymentMethod, error) {
	result, err := s.List(ctx, domain.ListFilter{Limit: 1000, OrderBy: "name"})
	if err != nil {
		return nil, err
	}

	var cash []*PaymentMethod
	for _, m := range result.Items {
		if m.IsCashEquivalent {
			cash = append(cash, m)
		}
	}
	return cash, nil
}
