// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
	"hospicore/internal/domain/registers/stock"
	"hospicore/internal/infrastructure/storage/postgres"
)

const (
	stockInventoryTable = "reg_stock_inventory"
	stockMovementsTable = "reg_stock_movements"
)

var movementColumns = []string{
	"line_id", "product_id", "hospital_center_id",
	"movement_type", "quantity",
	"reference_type", "reference_id",
	"movement_date", "created_by", "created_at",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetInventory returns the inventory row for (product, center).
func (r *StockRepo) GetInventory(ctx context.Context, productID, centerID id.ID) (entity.StockInventory, bool, error) {
	return r.getInventory(ctx, productID, centerID, false)
}

// GetInventoryForUpdate returns the inventory row with a pessimistic lock.
func (r *StockRepo) GetInventoryForUpdate(ctx context.Context, productID, centerID id.ID) (entity.StockInventory, bool, error) {
	return r.getInventory(ctx, productID, centerID, true)
}

func (r *StockRepo) getInventory(ctx context.Context, productID, centerID id.ID, lock bool) (entity.StockInventory, bool, error) {
	var inv entity.StockInventory

	q := r.builder.Select(
		"product_id", "hospital_center_id",
		"current_quantity", "minimum_threshold", "maximum_threshold",
		"updated_at", "updated_by",
	).From(stockInventoryTable).
		Where(squirrel.Eq{
			"product_id":         productID,
			"hospital_center_id": centerID,
		})

	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return inv, false, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return inv, false, nil
		}
		return inv, false, fmt.Errorf("get inventory: %w", err)
	}

	return inv, true, nil
}

// GetInventoriesByCenter returns all inventory rows for a center.
func (r *StockRepo) GetInventoriesByCenter(ctx context.Context, centerID id.ID) ([]entity.StockInventory, error) {
	q := r.builder.Select(
		"product_id", "hospital_center_id",
		"current_quantity", "minimum_threshold", "maximum_threshold",
		"updated_at", "updated_by",
	).From(stockInventoryTable).
		Where(squirrel.Eq{"hospital_center_id": centerID}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []entity.StockInventory
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select inventories: %w", err)
	}

	return items, nil
}

// DecrementQuantity applies the guarded decrement in a single statement.
// The quantity predicate in the WHERE clause is what makes the availability
// check and the decrement one atomic step: a concurrent consumer cannot
// drive the row negative between them.
func (r *StockRepo) DecrementQuantity(ctx context.Context, productID, centerID id.ID, qty types.Quantity, updatedBy string, now time.Time) (stock.DecrementOutcome, error) {
	const decrementSQL = `
		UPDATE reg_stock_inventory
		SET current_quantity = current_quantity - $3,
		    updated_at = $4,
		    updated_by = $5
		WHERE product_id = $1
		  AND hospital_center_id = $2
		  AND current_quantity >= $3
		RETURNING current_quantity
	`

	querier := r.txManager.GetQuerier(ctx)

	var remaining types.Quantity
	err := querier.QueryRow(ctx, decrementSQL, productID, centerID, qty, now, updatedBy).Scan(&remaining)
	if err == nil {
		return stock.DecrementOutcome{Applied: true, Remaining: remaining}, nil
	}
	if err != pgx.ErrNoRows {
		return stock.DecrementOutcome{}, fmt.Errorf("decrement quantity: %w", err)
	}

	// The update matched nothing: either the row is missing or it holds less
	// than requested. Distinguish the two for the caller.
	inv, found, err := r.getInventory(ctx, productID, centerID, false)
	if err != nil {
		return stock.DecrementOutcome{}, err
	}
	if !found {
		return stock.DecrementOutcome{Missing: true}, nil
	}

	return stock.DecrementOutcome{Remaining: inv.CurrentQuantity}, nil
}

// IncrementQuantity adds qty to the inventory row, creating it when absent.
func (r *StockRepo) IncrementQuantity(ctx context.Context, productID, centerID id.ID, qty types.Quantity, updatedBy string, now time.Time) (types.Quantity, error) {
	const upsertSQL = `
		INSERT INTO reg_stock_inventory (
			product_id, hospital_center_id, current_quantity,
			minimum_threshold, maximum_threshold, updated_at, updated_by
		) VALUES ($1, $2, $3, 0, 0, $4, $5)
		ON CONFLICT (product_id, hospital_center_id) DO UPDATE
		SET current_quantity = reg_stock_inventory.current_quantity + EXCLUDED.current_quantity,
		    updated_at = EXCLUDED.updated_at,
		    updated_by = EXCLUDED.updated_by
		RETURNING current_quantity
	`

	querier := r.txManager.GetQuerier(ctx)

	var resulting types.Quantity
	err := querier.QueryRow(ctx, upsertSQL, productID, centerID, qty, now, updatedBy).Scan(&resulting)
	if err != nil {
		return 0, fmt.Errorf("increment quantity: %w", err)
	}

	return resulting, nil
}

// CreateMovements batch inserts ledger entries.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.LineID, m.ProductID, m.HospitalCenterID,
				m.MovementType, m.Quantity,
				m.ReferenceType, m.ReferenceID,
				m.MovementDate, m.CreatedBy, m.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback: non-transactional insert. Prefer calling CreateMovements
	// inside the consuming transaction.
	q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.LineID, m.ProductID, m.HospitalCenterID,
			m.MovementType, m.Quantity,
			m.ReferenceType, m.ReferenceID,
			m.MovementDate, m.CreatedBy, m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// GetMovementHistory returns movement history for a center.
func (r *StockRepo) GetMovementHistory(ctx context.Context, centerID id.ID, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"hospital_center_id": centerID})

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}

	if filter.MovementType != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.MovementType})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"movement_date": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"movement_date": *filter.ToDate})
	}

	q = q.OrderBy("movement_date DESC", "created_at DESC")

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

	var movements []entity.StockMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}

	return movements, nil
}

// UpsertThresholds sets minimum/maximum thresholds for (product, center).
func (r *StockRepo) UpsertThresholds(ctx context.Context, productID, centerID id.ID, minimum, maximum types.Quantity, updatedBy string, now time.Time) error {
	const upsertSQL = `
		INSERT INTO reg_stock_inventory (
			product_id, hospital_center_id, current_quantity,
			minimum_threshold, maximum_threshold, updated_at, updated_by
		) VALUES ($1, $2, 0, $3, $4, $5, $6)
		ON CONFLICT (product_id, hospital_center_id) DO UPDATE
		SET minimum_threshold = EXCLUDED.minimum_threshold,
		    maximum_threshold = EXCLUDED.maximum_threshold,
		    updated_at = EXCLUDED.updated_at,
		    updated_by = EXCLUDED.updated_by
	`

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, upsertSQL, productID, centerID, minimum, maximum, now, updatedBy); err != nil {
		return fmt.Errorf("upsert thresholds: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
