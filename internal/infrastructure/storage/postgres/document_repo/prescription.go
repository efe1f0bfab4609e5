package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"hospicore/internal/core/id"
	"hospicore/internal/domain"
	"hospicore/internal/domain/prescriptions"
	"hospicore/internal/infrastructure/storage/postgres"
)

const (
	prescriptionsTable     = "doc_prescriptions"
	prescriptionLinesTable = "doc_prescription_lines"
)

// PrescriptionRepo implements prescriptions.Repository.
type PrescriptionRepo struct {
	*BaseDocumentRepo[*prescriptions.Prescription]
}

// NewPrescriptionRepo creates a new prescription repository.
func NewPrescriptionRepo(txManager *postgres.TxManager) *PrescriptionRepo {
	return &PrescriptionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			prescriptionsTable,
			postgres.ExtractDBColumns[prescriptions.Prescription](),
			func() *prescriptions.Prescription { return &prescriptions.Prescription{} },
		),
	}
}

// GetLines returns the ordered products, in line order.
func (r *PrescriptionRepo) GetLines(ctx context.Context, prescriptionID id.ID) ([]prescriptions.PrescriptionLine, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_id", "quantity", "dosage").
		From(prescriptionLinesTable).
		Where(squirrel.Eq{"prescription_id": prescriptionID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []prescriptions.PrescriptionLine
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces the prescription's lines.
func (r *PrescriptionRepo) SaveLines(ctx context.Context, prescriptionID id.ID, lines []prescriptions.PrescriptionLine) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + prescriptionLinesTable + " WHERE prescription_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, prescriptionID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(prescriptionLinesTable).
		Columns("line_id", "prescription_id", "line_no", "product_id", "quantity", "dosage")

	for _, line := range lines {
		q = q.Values(line.LineID, prescriptionID, line.LineNo, line.ProductID, line.Quantity, line.Dosage)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

// List retrieves prescriptions with filtering.
func (r *PrescriptionRepo) List(ctx context.Context, filter prescriptions.ListFilter) (domain.ListResult[*prescriptions.Prescription], error) {
	q := r.baseSelect()

	if filter.HospitalCenterID != nil {
		q = q.Where(squirrel.Eq{"hospital_center_id": *filter.HospitalCenterID})
	}

	if filter.EpisodeID != nil {
		q = q.Where(squirrel.Eq{"episode_id": *filter.EpisodeID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	return r.listWithFilter(ctx, q, filter.ListFilter)
}

// Ensure interface compliance.
var _ prescriptions.Repository = (*PrescriptionRepo)(nil)
