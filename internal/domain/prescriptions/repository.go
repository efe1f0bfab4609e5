package prescriptions

import (
	"context"
	"time"

	"hospicore/internal/core/id"
	"hospicore/internal/domain"
)

// Repository defines operations for prescription documents.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, prescriptionID id.ID) (*Prescription, error)

	// GetForUpdate locks the prescription row for the dispense status flip.
	GetForUpdate(ctx context.Context, prescriptionID id.ID) (*Prescription, error)

	Update(ctx context.Context, p *Prescription) error

	GetLines(ctx context.Context, prescriptionID id.ID) ([]PrescriptionLine, error)
	SaveLines(ctx context.Context, prescriptionID id.ID, lines []PrescriptionLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Prescription], error)
}

// ListFilter for filtering prescriptions.
type ListFilter struct {
	domain.ListFilter

	HospitalCenterID *id.ID
	EpisodeID        *id.ID
	Status           *Status
	DateFrom         *time.Time
	DateTo           *time.Time
}
