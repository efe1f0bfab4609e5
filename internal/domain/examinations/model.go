// Package examinations provides the Examination document: a scheduled
// diagnostic act with a linear lifecycle.
package examinations

import (
	"context"
	"time"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
)

// Status is the lifecycle state of an examination.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions is the closed transition table: the act moves forward through
// scheduled, in progress and completed, and can be cancelled at any point
// before completion.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
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

// Examination represents one diagnostic act for a patient.
type Examination struct {
	entity.Document

	PatientName string `db:"patient_name" json:"patientName"`

	// EpisodeID links the examination to a care episode, when one exists
	EpisodeID *id.ID `db:"episode_id" json:"episodeId,omitempty"`

	// ExaminationType is the act label (e.g. "radiography", "blood panel")
	ExaminationType string `db:"examination_type" json:"examinationType"`

	Status Status `db:"status" json:"status"`

	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduledAt"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	// Result is the practitioner's findings, recorded at completion
	Result string `db:"result" json:"result,omitempty"`

	// Price is the billed amount for the act
	Price types.Money `db:"price" json:"price"`

	// PerformedBy identifies the practitioner
	PerformedBy string `db:"performed_by" json:"performedBy,omitempty"`
}

// NewExamination creates a scheduled examination.
func NewExamination(centerID id.ID, patientName, examinationType string, scheduledAt, now time.Time) *Examination {
	return &Examination{
		Document:        entity.NewDocument(centerID, now),
		PatientName:     patientName,
		ExaminationType: examinationType,
		Status:          StatusScheduled,
		ScheduledAt:     scheduledAt,
		Price:           types.ZeroMoney(),
	}
}

// Validate implements entity.Validatable.
func (e *Examination) Validate(ctx context.Context) error {
	if err := e.Document.Validate(ctx); err != nil {
		return err
	}

	if e.PatientName == "" {
		return apperror.NewValidation("patient name is required").
			WithDetail("field", "patientName")
	}

	if e.ExaminationType == "" {
		return apperror.NewValidation("examination type is required").
			WithDetail("field", "examinationType")
	}

	if e.ScheduledAt.IsZero() {
		return apperror.NewValidation("scheduled time is required").
			WithDetail("field", "scheduledAt")
	}

	if e.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price")
	}

	return nil
}
