package episodes

import (
	"context"
	"time"

	"hospicore/internal/core/id"
	"hospicore/internal/domain"
)

// Repository defines operations for care episode documents.
type Repository interface {
	Create(ctx context.Context, ep *CareEpisode) error
	GetByID(ctx context.Context, episodeID id.ID) (*CareEpisode, error)

	// GetForUpdate locks the episode row for status flips and cost accrual.
	GetForUpdate(ctx context.Context, episodeID id.ID) (*CareEpisode, error)

	Update(ctx context.Context, ep *CareEpisode) error

	GetUsages(ctx context.Context, episodeID id.ID) ([]ProductUsage, error)
	CreateUsages(ctx context.Context, usages []ProductUsage) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*CareEpisode], error)
}

// ListFilter for filtering care episodes.
type ListFilter struct {
	domain.ListFilter

	HospitalCenterID *id.ID
	Status           *Status
	AdmittedFrom     *time.Time
	AdmittedTo       *time.Time
}
