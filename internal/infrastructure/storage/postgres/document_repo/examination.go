package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"hospicore/internal/domain"
	"hospicore/internal/domain/examinations"
	"hospicore/internal/infrastructure/storage/postgres"
)

const examinationsTable = "doc_examinations"

// ExaminationRepo implements examinations.Repository.
type ExaminationRepo struct {
	*BaseDocumentRepo[*examinations.Examination]
}

// NewExaminationRepo creates a new examination repository.
func NewExaminationRepo(txManager *postgres.TxManager) *ExaminationRepo {
	return &ExaminationRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			examinationsTable,
			postgres.ExtractDBColumns[examinations.Examination](),
			func() *examinations.Examination { return &examinations.Examination{} },
		),
	}
}

// List retrieves examinations with filtering.
func (r *ExaminationRepo) List(ctx context.Context, filter examinations.ListFilter) (domain.ListResult[*examinations.Examination], error) {
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

	if filter.ScheduledFrom != nil {
		q = q.Where(squirrel.GtOrEq{"scheduled_at": *filter.ScheduledFrom})
	}

	if filter.ScheduledTo != nil {
		q = q.Where(squirrel.LtOrEq{"scheduled_at": *filter.ScheduledTo})
	}

	return r.listWithFilter(ctx, q, filter.ListFilter)
}

// Ensure interface compliance.
var _ examinations.Repository = (*ExaminationRepo)(nil)
