package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
	"hospicore/internal/domain/registers/cash"
	"hospicore/internal/infrastructure/storage/postgres"
)

const (
	cashHandoversTable = "doc_cash_handovers"
	paymentsTable      = "doc_payments"
)

// cancelledNotesPrefix marks voided payments in the billing read-model. The
// ledger never counts them.
const cancelledNotesPrefix = "[CANCELLED]%"

// CashRepo implements cash.Repository.
//
// Receipts are read from the payments table joined against payment methods:
// only methods flagged is_cash_equivalent produce physical cash at the
// center, so only those rows enter the ledger.
type CashRepo struct {
	txManager    *postgres.TxManager
	builder      squirrel.StatementBuilderType
	handoverCols []string
}

// NewCashRepo creates a new cash register repository.
func NewCashRepo(txManager *postgres.TxManager) *CashRepo {
	return &CashRepo{
		txManager:    txManager,
		builder:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		handoverCols: postgres.ExtractDBColumns[cash.Handover](),
	}
}

// receiptsSelect builds the counted-receipts query for a center: cash
// equivalent methods only, cancelled payments excluded.
func (r *CashRepo) receiptsSelect(centerID id.ID, cols ...string) squirrel.SelectBuilder {
	return r.builder.Select(cols...).
		From(paymentsTable + " p").
		Join("cat_payment_methods pm ON pm.id = p.payment_method_id").
		Where(squirrel.Eq{"p.hospital_center_id": centerID}).
		Where(squirrel.Eq{"pm.is_cash_equivalent": true}).
		Where(squirrel.NotLike{"p.notes": cancelledNotesPrefix})
}

// SumReceipts returns the total of counted cash receipts for a center.
// Both bounds are exclusive: a receipt at the exact handover instant belongs
// to the period the handover closed, not to the one it opened.
func (r *CashRepo) SumReceipts(ctx context.Context, centerID id.ID, after, until *time.Time) (types.Money, error) {
	q := r.receiptsSelect(centerID, "COALESCE(SUM(p.amount), 0)")

	if after != nil {
		q = q.Where(squirrel.Gt{"p.paid_at": *after})
	}
	if until != nil {
		q = q.Where(squirrel.Lt{"p.paid_at": *until})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return types.ZeroMoney(), fmt.Errorf("build query: %w", err)
	}

	var total types.Money
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.ZeroMoney(), fmt.Errorf("sum receipts: %w", err)
	}

	return total, nil
}

// ListReceipts returns counted cash receipts for a center in the window,
// ordered by paid_at ascending.
func (r *CashRepo) ListReceipts(ctx context.Context, centerID id.ID, filter cash.HistoryFilter) ([]cash.Receipt, error) {
	q := r.receiptsSelect(centerID,
		"p.id AS payment_id",
		"p.hospital_center_id",
		"p.payment_method_id",
		"p.amount",
		"p.paid_at",
		"p.payer_name",
		"p.notes",
	)

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"p.paid_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"p.paid_at": *filter.ToDate})
	}

	q = q.OrderBy("p.paid_at", "p.id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var receipts []cash.Receipt
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &receipts, sql, args...); err != nil {
		return nil, fmt.Errorf("select receipts: %w", err)
	}

	return receipts, nil
}

// GetLastHandover returns the center's most recent handover by date,
// optionally restricted to handovers strictly before the given instant.
func (r *CashRepo) GetLastHandover(ctx context.Context, centerID id.ID, before *time.Time) (cash.Handover, bool, error) {
	var h cash.Handover

	q := r.builder.Select(r.handoverCols...).
		From(cashHandoversTable).
		Where(squirrel.Eq{"hospital_center_id": centerID}).
		Where(squirrel.Eq{"deletion_mark": false})

	if before != nil {
		q = q.Where(squirrel.Lt{"date": *before})
	}

	q = q.OrderBy("date DESC", "created_at DESC").Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return h, false, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &h, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return h, false, nil
		}
		return h, false, fmt.Errorf("get last handover: %w", err)
	}

	return h, true, nil
}

// ListHandovers returns handovers for a center in the window, ordered by
// date ascending.
func (r *CashRepo) ListHandovers(ctx context.Context, centerID id.ID, filter cash.HistoryFilter) ([]cash.Handover, error) {
	q := r.builder.Select(r.handoverCols...).
		From(cashHandoversTable).
		Where(squirrel.Eq{"hospital_center_id": centerID}).
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}

	q = q.OrderBy("date", "created_at")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var handovers []cash.Handover
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &handovers, sql, args...); err != nil {
		return nil, fmt.Errorf("select handovers: %w", err)
	}

	return handovers, nil
}

// GetHandoverByID returns a handover.
func (r *CashRepo) GetHandoverByID(ctx context.Context, handoverID id.ID) (cash.Handover, bool, error) {
	var h cash.Handover

	q := r.builder.Select(r.handoverCols...).
		From(cashHandoversTable).
		Where(squirrel.Eq{"id": handoverID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return h, false, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &h, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return h, false, nil
		}
		return h, false, fmt.Errorf("get handover: %w", err)
	}

	return h, true, nil
}

// CreateHandover persists a new handover. Handovers are immutable: there is
// no corresponding update or delete statement in this repository.
func (r *CashRepo) CreateHandover(ctx context.Context, h *cash.Handover) error {
	data := postgres.StructToMap(h)

	filtered := make(map[string]any, len(r.handoverCols))
	for _, col := range r.handoverCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder.Insert(cashHandoversTable).SetMap(filtered)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert handover: %w", err)
	}

	return nil
}

// AcquireCenterLock takes a transaction-scoped advisory lock keyed on the
// center, serializing concurrent handover writes against the same till.
// The lock releases automatically on commit or rollback.
func (r *CashRepo) AcquireCenterLock(ctx context.Context, centerID id.ID) error {
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("center lock requires transaction context")
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))", centerID); err != nil {
		return fmt.Errorf("acquire center lock: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ cash.Repository = (*CashRepo)(nil)
