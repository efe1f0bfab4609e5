package cash

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/tx"
	"hospicore/internal/core/types"
	"hospicore/internal/domain/audit"
	"hospicore/pkg/logger"
	"hospicore/pkg/numerator"
)

// NumberAllocator allocates document numbers. Satisfied by numerator.Service.
type NumberAllocator interface {
	Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error)
}

// Service provides business operations for the cash register.
//
// The balance is never stored: it is anchored at the most recent handover's
// remainder and extended with the cash receipts after it, so point-in-time
// balances can always be reconstructed from the ledger.
type Service struct {
	repo       Repository
	financiers FinancierDirectory
	txManager  tx.Manager
	numbers    NumberAllocator
	auditLog   audit.Logger
	clock      clock.Clock

	numberCfg numerator.Config
}

// NewService creates a new cash register service.
func NewService(
	repo Repository,
	financiers FinancierDirectory,
	txManager tx.Manager,
	numbers NumberAllocator,
	auditLog audit.Logger,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:       repo,
		financiers: financiers,
		txManager:  txManager,
		numbers:    numbers,
		auditLog:   auditLog,
		clock:      clk,
		numberCfg:  numerator.DefaultConfig("CH"),
	}
}

// CurrentBalance returns the reconciled cash balance for a center: the last
// handover's remainder plus the counted receipts after it, or the sum of all
// counted receipts when the center has never handed cash over.
func (s *Service) CurrentBalance(ctx context.Context, centerID id.ID) (types.Money, error) {
	return s.balanceAt(ctx, centerID, nil)
}

// BalanceAsOf returns the balance as it stood just before asOf: anchored at
// the last handover strictly before asOf, extended with receipts strictly
// between that handover and asOf.
func (s *Service) BalanceAsOf(ctx context.Context, centerID id.ID, asOf time.Time) (types.Money, error) {
	return s.balanceAt(ctx, centerID, &asOf)
}

func (s *Service) balanceAt(ctx context.Context, centerID id.ID, asOf *time.Time) (types.Money, error) {
	last, found, err := s.repo.GetLastHandover(ctx, centerID, asOf)
	if err != nil {
		return types.ZeroMoney(), apperror.NewDatabase(fmt.Errorf("last handover: %w", err))
	}

	var after *time.Time
	anchor := types.ZeroMoney()
	if found {
		after = &last.Date
		anchor = last.RemainingCashAmount
	}

	receipts, err := s.repo.SumReceipts(ctx, centerID, after, asOf)
	if err != nil {
		return types.ZeroMoney(), apperror.NewDatabase(fmt.Errorf("sum receipts: %w", err))
	}

	return anchor.Add(receipts), nil
}

// MovementHistory returns the reconciled ledger for a center: receipts and
// handovers merged chronologically, each line carrying the running balance
// after it is applied. The fold opens at BalanceAsOf(FromDate), so a
// windowed view stays consistent with the direct balance computation.
//
// At equal timestamps receipts sort before handovers, so a same-instant
// handover is reconciled against a balance that already includes the receipt.
func (s *Service) MovementHistory(ctx context.Context, centerID id.ID, filter HistoryFilter) ([]Movement, error) {
	opening := types.ZeroMoney()
	if filter.FromDate != nil {
		b, err := s.balanceAt(ctx, centerID, filter.FromDate)
		if err != nil {
			return nil, err
		}
		opening = b
	}

	// Pagination is applied after the merge; the repo lists the full window.
	window := HistoryFilter{FromDate: filter.FromDate, ToDate: filter.ToDate}

	receipts, err := s.repo.ListReceipts(ctx, centerID, window)
	if err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list receipts: %w", err))
	}

	handovers, err := s.repo.ListHandovers(ctx, centerID, window)
	if err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list handovers: %w", err))
	}

	movements := make([]Movement, 0, len(receipts)+len(handovers))
	for _, r := range receipts {
		movements = append(movements, Movement{
			Direction:     DirectionIn,
			At:            r.PaidAt,
			Amount:        r.Amount,
			ReferenceType: "Payment",
			ReferenceID:   r.PaymentID,
			Label:         r.PayerName,
		})
	}
	for _, h := range handovers {
		movements = append(movements, Movement{
			Direction:     DirectionOut,
			At:            h.Date,
			Amount:        h.HandoverAmount,
			ReferenceType: "CashHandover",
			ReferenceID:   h.ID,
			Label:         h.Number,
		})
	}

	sort.SliceStable(movements, func(i, j int) bool {
		if !movements[i].At.Equal(movements[j].At) {
			return movements[i].At.Before(movements[j].At)
		}
		return movements[i].Direction == DirectionIn && movements[j].Direction == DirectionOut
	})

	running := opening
	for i := range movements {
		if movements[i].Direction == DirectionIn {
			running = running.Add(movements[i].Amount)
		} else {
			running = running.Sub(movements[i].Amount)
		}
		movements[i].RunningBalance = running
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(movements) {
			return []Movement{}, nil
		}
		movements = movements[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(movements) {
		movements = movements[:filter.Limit]
	}

	return movements, nil
}

// CashPosition returns the at-a-glance cash state of a center.
func (s *Service) CashPosition(ctx context.Context, centerID id.ID) (Position, error) {
	pos := Position{HospitalCenterID: centerID}

	last, found, err := s.repo.GetLastHandover(ctx, centerID, nil)
	if err != nil {
		return Position{}, apperror.NewDatabase(fmt.Errorf("last handover: %w", err))
	}

	var after *time.Time
	anchor := types.ZeroMoney()
	if found {
		after = &last.Date
		anchor = last.RemainingCashAmount
		pos.LastHandoverDate = &last.Date
		pos.LastHandoverAmount = last.HandoverAmount
		pos.DaysSinceLastHandover = daysSince(last.Date, s.clock.Now())
	} else {
		// Never handed over: the whole receipt history is "since last
		// handover", and the accumulation window is floored at one day.
		pos.DaysSinceLastHandover = 1
	}

	receipts, err := s.repo.SumReceipts(ctx, centerID, after, nil)
	if err != nil {
		return Position{}, apperror.NewDatabase(fmt.Errorf("sum receipts: %w", err))
	}

	pos.ReceiptsSinceLastHandover = receipts
	pos.CurrentBalance = anchor.Add(receipts)
	pos.AverageDailyReceipts = receipts.Div(decimal.NewFromInt(int64(pos.DaysSinceLastHandover)))

	return pos, nil
}

// daysSince counts calendar days between two instants, minimum 1: cash
// handed over earlier today has still been accumulating for one day.
func daysSince(from, now time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, now.Location())
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	days := int(nowDay.Sub(fromDay).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// CreateHandoverInput carries the caller's declared amounts for a handover.
type CreateHandoverInput struct {
	HospitalCenterID id.ID
	FinancierID      id.ID

	// TotalCashAmount and HandoverAmount are authoritative.
	TotalCashAmount types.Money
	HandoverAmount  types.Money

	// RemainingCashAmount is advisory: the stored remainder is always
	// recomputed as total - handover, and an inconsistent input is corrected
	// silently rather than rejected.
	RemainingCashAmount types.Money

	Comment string
}

// CreateHandover records cash handed to a financier as an immutable ledger
// event. The handover amount may not exceed the declared total; the stored
// remainder is always total - handover. Runs under a per-center advisory
// lock so two concurrent handovers against the same till serialize.
//
// The declared total is not reconciled against the computed balance here;
// a mismatch surfaces later in the running-balance view.
func (s *Service) CreateHandover(ctx context.Context, in CreateHandoverInput, handedOverBy string) (*Handover, error) {
	now := s.clock.Now()

	h := &Handover{
		FinancierID:         in.FinancierID,
		TotalCashAmount:     in.TotalCashAmount,
		HandoverAmount:      in.HandoverAmount,
		RemainingCashAmount: in.TotalCashAmount.Sub(in.HandoverAmount),
		HandedOverBy:        handedOverBy,
	}
	h.Document = entity.NewDocument(in.HospitalCenterID, now)
	h.Comment = in.Comment
	h.CreatedBy = handedOverBy
	h.UpdatedBy = handedOverBy

	if err := h.Validate(ctx); err != nil {
		return nil, err
	}

	if !in.RemainingCashAmount.Equal(h.RemainingCashAmount) {
		logger.Debug(ctx, "handover remainder corrected",
			"center_id", in.HospitalCenterID,
			"declared", in.RemainingCashAmount,
			"computed", h.RemainingCashAmount,
		)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.AcquireCenterLock(ctx, in.HospitalCenterID); err != nil {
			return apperror.NewDatabase(fmt.Errorf("acquire center lock: %w", err))
		}

		if err := s.checkFinancier(ctx, in.FinancierID); err != nil {
			return err
		}

		number, err := s.numbers.Next(ctx, s.numberCfg, now)
		if err != nil {
			return apperror.NewDatabase(fmt.Errorf("allocate handover number: %w", err))
		}
		h.Number = number

		if err := s.repo.CreateHandover(ctx, h); err != nil {
			return apperror.NewDatabase(fmt.Errorf("create handover: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    handedOverBy,
		Action:     audit.ActionHandover,
		EntityType: "CashHandover",
		EntityID:   h.ID,
		NewValues: map[string]any{
			"number":       h.Number,
			"total":        h.TotalCashAmount.String(),
			"handover":     h.HandoverAmount.String(),
			"remaining":    h.RemainingCashAmount.String(),
			"financier_id": h.FinancierID.String(),
		},
	})

	logger.Info(ctx, "cash handover created",
		"handover_id", h.ID,
		"number", h.Number,
		"center_id", h.HospitalCenterID,
		"handover", h.HandoverAmount,
		"remaining", h.RemainingCashAmount,
	)

	return h, nil
}

// GetHandover returns a handover by ID.
func (s *Service) GetHandover(ctx context.Context, handoverID id.ID) (*Handover, error) {
	h, found, err := s.repo.GetHandoverByID(ctx, handoverID)
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	if !found {
		return nil, apperror.NewNotFound("cash handover", handoverID)
	}
	return &h, nil
}

// ListHandovers returns handovers for a center in the window.
func (s *Service) ListHandovers(ctx context.Context, centerID id.ID, filter HistoryFilter) ([]Handover, error) {
	handovers, err := s.repo.ListHandovers(ctx, centerID, filter)
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	return handovers, nil
}

func (s *Service) checkFinancier(ctx context.Context, financierID id.ID) error {
	f, err := s.financiers.GetByID(ctx, financierID)
	if err != nil {
		return err
	}
	if !f.CanReceiveHandover() {
		return apperror.NewBusinessRule(
			apperror.CodeInactiveFinancier,
			"financier cannot receive handovers",
		).WithDetail("financier_id", financierID.String())
	}
	return nil
}
