package center

import (
	"hospicore/internal/domain"
)

// Repository defines persistence operations for hospital centers.
type Repository interface {
	domain.CatalogRepository[*HospitalCenter]
}
