// Package financier provides the Financier catalog.
// A financier is an external party authorized to receive cash handovers
// from a hospital center.
package financier

import (
	"context"
	"regexp"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
)

var phoneRE = regexp.MustCompile(`^\+?[0-9 ]{6,20}$`)

// Financier represents a cash handover recipient.
type Financier struct {
	entity.Catalog

	// Active gates handover creation: inactive financiers cannot receive cash
	Active bool `db:"active" json:"active"`

	// Phone is the contact number
	Phone string `db:"phone" json:"phone,omitempty"`

	// Organization is the employing organization, if any
	Organization string `db:"organization" json:"organization,omitempty"`
}

// NewFinancier creates an active financier with required fields.
func NewFinancier(code, name string) *Financier {
	return &Financier{
		Catalog: entity.NewCatalog(code, name),
		Active:  true,
	}
}

// Validate implements entity.Validatable.
func (f *Financier) Validate(ctx context.Context) error {
	if err := f.Catalog.Validate(ctx); err != nil {
		return err
	}

	if f.Phone != "" && !phoneRE.MatchString(f.Phone) {
		return apperror.NewValidation("invalid phone format").
			WithDetail("field", "phone")
	}

	return nil
}

// CanReceiveHandover reports whether the financier may receive cash.
func (f *Financier) CanReceiveHandover() bool {
	return f.Active && !f.DeletionMark
}
