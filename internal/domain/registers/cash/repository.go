package cash

import (
	"context"
	"time"

	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
	"hospicore/internal/domain/catalogs/financier"
)

// HistoryFilter bounds the reconciled ledger view.
type HistoryFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository defines persistence operations for the cash register.
//
// Receipts come from the payments read-model: only payments whose method is
// cash-equivalent count, and cancelled payments (notes starting with
// "[CANCELLED]") are excluded at the query level.
type Repository interface {
	// SumReceipts returns the total of counted cash receipts for a center.
	// after and until are exclusive bounds; either may be nil.
	SumReceipts(ctx context.Context, centerID id.ID, after, until *time.Time) (types.Money, error)

	// ListReceipts returns counted cash receipts for a center in the window,
	// ordered by paid_at ascending.
	ListReceipts(ctx context.Context, centerID id.ID, filter HistoryFilter) ([]Receipt, error)

	// GetLastHandover returns the center's most recent handover by date,
	// optionally restricted to handovers strictly before the given instant.
	// found is false when the center has none in range.
	GetLastHandover(ctx context.Context, centerID id.ID, before *time.Time) (h Handover, found bool, err error)

	// ListHandovers returns handovers for a center in the window, ordered by
	// date ascending.
	ListHandovers(ctx context.Context, centerID id.ID, filter HistoryFilter) ([]Handover, error)

	// GetHandoverByID returns a handover. found is false when no row exists.
	GetHandoverByID(ctx context.Context, handoverID id.ID) (h Handover, found bool, err error)

	// CreateHandover persists a new handover. Handovers are immutable; there
	// is no update or delete.
	CreateHandover(ctx context.Context, h *Handover) error

	// AcquireCenterLock takes a transaction-scoped advisory lock keyed on the
	// center, serializing concurrent handover writes against the same till.
	// Must be called inside a transaction; the lock releases on commit or
	// rollback.
	AcquireCenterLock(ctx context.Context, centerID id.ID) error
}

// FinancierDirectory is the slice of the financier catalog the register
// needs. Satisfied by the financier catalog service.
type FinancierDirectory interface {
	GetByID(ctx context.Context, financierID id.ID) (*financier.Financier, error)
}
