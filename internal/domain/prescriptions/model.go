// Package prescriptions provides the Prescription document: an ordered set
// of products to dispense to a patient, consuming center stock.
package prescriptions

import (
	"context"
	"time"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
)

// Status is the lifecycle state of a prescription.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDispensed Status = "dispensed"
	StatusCancelled Status = "cancelled"
)

// transitions is the closed transition table. Dispensed and cancelled are
// terminal: a dispensed prescription cannot be dispensed again.
var transitions = map[Status][]Status{
	StatusPending:   {StatusDispensed, StatusCancelled},
	StatusDispensed: {},
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

// Prescription represents an order of products for a patient.
type Prescription struct {
	entity.Document

	PatientName string `db:"patient_name" json:"patientName"`

	// EpisodeID links the prescription to a care episode, when one exists.
	// Dispensing requires the linked episode to be active.
	EpisodeID *id.ID `db:"episode_id" json:"episodeId,omitempty"`

	// PrescribedBy identifies the ordering practitioner
	PrescribedBy string `db:"prescribed_by" json:"prescribedBy"`

	Status Status `db:"status" json:"status"`

	DispensedAt *time.Time `db:"dispensed_at" json:"dispensedAt,omitempty"`
	DispensedBy string     `db:"dispensed_by" json:"dispensedBy,omitempty"`

	// TotalCost is set at dispensation time from the products' unit prices
	TotalCost types.Money `db:"total_cost" json:"totalCost"`

	// Table part: ordered products
	Lines []PrescriptionLine `db:"-" json:"lines"`
}

// PrescriptionLine is one ordered product.
type PrescriptionLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`

	// Dosage is the free-text administration instruction
	Dosage string `db:"dosage" json:"dosage,omitempty"`
}

// NewPrescription creates a pending prescription.
func NewPrescription(centerID id.ID, patientName, prescribedBy string, now time.Time) *Prescription {
	return &Prescription{
		Document:     entity.NewDocument(centerID, now),
		PatientName:  patientName,
		PrescribedBy: prescribedBy,
		Status:       StatusPending,
		TotalCost:    types.ZeroMoney(),
		Lines:        make([]PrescriptionLine, 0),
	}
}

// AddLine appends an ordered product.
func (p *Prescription) AddLine(productID id.ID, quantity types.Quantity, dosage string) {
	p.Lines = append(p.Lines, PrescriptionLine{
		LineID:    id.New(),
		LineNo:    len(p.Lines) + 1,
		ProductID: productID,
		Quantity:  quantity,
		Dosage:    dosage,
	})
}

// Validate implements entity.Validatable.
func (p *Prescription) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}

	if p.PatientName == "" {
		return apperror.NewValidation("patient name is required").
			WithDetail("field", "patientName")
	}

	if p.PrescribedBy == "" {
		return apperror.NewValidation("prescriber is required").
			WithDetail("field", "prescribedBy")
	}

	if len(p.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range p.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
