package catalog_repo

import (
	"hospicore/internal/domain/catalogs/center"
	"hospicore/internal/infrastructure/storage/postgres"
)

const centerTable = "cat_hospital_centers"

// CenterRepo implements center.Repository.
type CenterRepo struct {
	*BaseCatalogRepo[*center.HospitalCenter]
}

// NewCenterRepo creates a new hospital center repository.
func NewCenterRepo(txManager *postgres.TxManager) *CenterRepo {
	return &CenterRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			centerTable,
			postgres.ExtractDBColumns[center.HospitalCenter](),
			func() *center.HospitalCenter { return &center.HospitalCenter{} },
		),
	}
}
