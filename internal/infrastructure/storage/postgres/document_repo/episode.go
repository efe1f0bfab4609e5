package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"hospicore/internal/core/id"
	"hospicore/internal/domain"
	"hospicore/internal/domain/episodes"
	"hospicore/internal/infrastructure/storage/postgres"
)

const (
	careEpisodesTable  = "doc_care_episodes"
	episodeUsagesTable = "doc_episode_usage_lines"
)

// EpisodeRepo implements episodes.Repository.
type EpisodeRepo struct {
	*BaseDocumentRepo[*episodes.CareEpisode]
}

// NewEpisodeRepo creates a new care episode repository.
func NewEpisodeRepo(txManager *postgres.TxManager) *EpisodeRepo {
	return &EpisodeRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			careEpisodesTable,
			postgres.ExtractDBColumns[episodes.CareEpisode](),
			func() *episodes.CareEpisode { return &episodes.CareEpisode{} },
		),
	}
}

// GetUsages returns the episode's usage lines, oldest first.
func (r *EpisodeRepo) GetUsages(ctx context.Context, episodeID id.ID) ([]episodes.ProductUsage, error) {
	q := r.Builder().
		Select(
			"line_id", "episode_id", "product_id",
			"quantity", "unit_price", "total_cost",
			"used_at", "recorded_by",
		).
		From(episodeUsagesTable).
		Where(squirrel.Eq{"episode_id": episodeID}).
		OrderBy("used_at", "line_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var usages []episodes.ProductUsage
	if err := pgxscan.Select(ctx, r.querier(ctx), &usages, sql, args...); err != nil {
		return nil, fmt.Errorf("get usages: %w", err)
	}

	return usages, nil
}

// CreateUsages appends usage lines. Lines are immutable once recorded.
func (r *EpisodeRepo) CreateUsages(ctx context.Context, usages []episodes.ProductUsage) error {
	if len(usages) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(episodeUsagesTable).
		Columns(
			"line_id", "episode_id", "product_id",
			"quantity", "unit_price", "total_cost",
			"used_at", "recorded_by",
		)

	for _, u := range usages {
		q = q.Values(
			u.LineID, u.EpisodeID, u.ProductID,
			u.Quantity, u.UnitPrice, u.TotalCost,
			u.UsedAt, u.RecordedBy,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert usages: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert usages: %w", err)
	}

	return nil
}

// List retrieves episodes with filtering.
func (r *EpisodeRepo) List(ctx context.Context, filter episodes.ListFilter) (domain.ListResult[*episodes.CareEpisode], error) {
	q := r.baseSelect()

	if filter.HospitalCenterID != nil {
		q = q.Where(squirrel.Eq{"hospital_center_id": *filter.HospitalCenterID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.AdmittedFrom != nil {
		q = q.Where(squirrel.GtOrEq{"admitted_at": *filter.AdmittedFrom})
	}

	if filter.AdmittedTo != nil {
		q = q.Where(squirrel.LtOrEq{"admitted_at": *filter.AdmittedTo})
	}

	return r.listWithFilter(ctx, q, filter.ListFilter)
}

// Ensure interface compliance.
var _ episodes.Repository = (*EpisodeRepo)(nil)
