package entity

import (
	"context"
	"time"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/id"
)

// Document is the base type for clinical and financial operations.
// Examples: CareEpisode, Examination, Prescription, CashHandover.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+year)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// HospitalCenterID is the owning center (all operations are center-scoped)
	HospitalCenterID id.ID `db:"hospital_center_id" json:"hospitalCenterId"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument(centerID id.ID, now time.Time) Document {
	return Document{
		BaseDocument:     NewBaseDocument(now),
		Date:             now,
		HospitalCenterID: centerID,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.HospitalCenterID) {
		return apperror.NewValidation("hospital center is required").
			WithDetail("field", "hospitalCenterId")
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}
