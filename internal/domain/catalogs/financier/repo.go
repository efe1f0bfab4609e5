package financier

import (
	"hospicore/internal/domain"
)

// Repository defines persistence operations for financiers.
type Repository interface {
	domain.CatalogRepository[*Financier]
}
