package catalog_repo

import (
	"hospicore/internal/domain/catalogs/financier"
	"hospicore/internal/infrastructure/storage/postgres"
)

const financierTable = "cat_financiers"

// FinancierRepo implements financier.Repository.
type FinancierRepo struct {
	*BaseCatalogRepo[*financier.Financier]
}

// NewFinancierRepo creates a new financier repository.
func NewFinancierRepo(txManager *postgres.TxManager) *FinancierRepo {
	return &FinancierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			financierTable,
			postgres.ExtractDBColumns[financier.Financier](),
			func() *financier.Financier { return &financier.Financier{} },
		),
	}
}
