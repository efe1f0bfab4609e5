package examinations

import (
	"context"
	"time"

	"hospicore/internal/core/id"
	"hospicore/internal/domain"
)

// Repository defines operations for examination documents.
type Repository interface {
	Create(ctx context.Context, ex *Examination) error
	GetByID(ctx context.Context, examinationID id.ID) (*Examination, error)

	// GetForUpdate locks the examination row for status flips.
	GetForUpdate(ctx context.Context, examinationID id.ID) (*Examination, error)

	Update(ctx context.Context, ex *Examination) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Examination], error)
}

// ListFilter for filtering examinations.
type ListFilter struct {
	domain.ListFilter

	HospitalCenterID *id.ID
	EpisodeID        *id.ID
	Status           *Status
	ScheduledFrom    *time.Time
	ScheduledTo      *time.Time
}
