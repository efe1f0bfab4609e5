// Package episodes provides the CareEpisode document: a patient's stay at a
// hospital center, accumulating product usage costs until closure.
package episodes

import (
	"context"
	"time"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
)

// Status is the lifecycle state of a care episode.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the closed transition table. Completed and cancelled are
// terminal.
var transitions = map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether the status change is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CareEpisode represents one patient stay at a hospital center.
type CareEpisode struct {
	entity.Document

	PatientName string `db:"patient_name" json:"patientName"`

	// PatientNumber is the center's patient file reference
	PatientNumber string `db:"patient_number" json:"patientNumber,omitempty"`

	Diagnosis       string `db:"diagnosis" json:"diagnosis,omitempty"`
	AttendingDoctor string `db:"attending_doctor" json:"attendingDoctor,omitempty"`

	Status Status `db:"status" json:"status"`

	AdmittedAt time.Time  `db:"admitted_at" json:"admittedAt"`
	ClosedAt   *time.Time `db:"closed_at" json:"closedAt,omitempty"`

	// AccumulatedCost is the running total of products used during the stay
	AccumulatedCost types.Money `db:"accumulated_cost" json:"accumulatedCost"`

	// Usages are loaded on demand, not with every fetch
	Usages []ProductUsage `db:"-" json:"usages,omitempty"`
}

// NewCareEpisode creates an active episode admitted now.
func NewCareEpisode(centerID id.ID, patientName string, now time.Time) *CareEpisode {
	return &CareEpisode{
		Document:        entity.NewDocument(centerID, now),
		PatientName:     patientName,
		Status:          StatusActive,
		AdmittedAt:      now,
		AccumulatedCost: types.ZeroMoney(),
	}
}

// Validate implements entity.Validatable.
func (e *CareEpisode) Validate(ctx context.Context) error {
	if err := e.Document.Validate(ctx); err != nil {
		return err
	}

	if e.PatientName == "" {
		return apperror.NewValidation("patient name is required").
			WithDetail("field", "patientName")
	}

	return nil
}

// IsActive reports whether the episode accepts usage and dispensation.
func (e *CareEpisode) IsActive() bool {
	return e.Status == StatusActive && !e.DeletionMark
}

// ProductUsage is one product consumed during an episode, priced at the
// product's unit price at recording time.
type ProductUsage struct {
	LineID    id.ID `db:"line_id" json:"lineId"`
	EpisodeID id.ID `db:"episode_id" json:"episodeId"`

	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	TotalCost types.Money    `db:"total_cost" json:"totalCost"`

	UsedAt     time.Time `db:"used_at" json:"usedAt"`
	RecordedBy string    `db:"recorded_by" json:"recordedBy"`
}
