package cash

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
	"hospicore/internal/domain/audit"
	"hospicore/internal/domain/catalogs/financier"
	"hospicore/pkg/numerator"
)

type fakeRepo struct {
	receipts  []Receipt
	handovers []Handover
}

func (r *fakeRepo) SumReceipts(_ context.Context, centerID id.ID, after, until *time.Time) (types.Money, error) {
	sum := types.ZeroMoney()
	for _, rc := range r.receipts {
		if rc.HospitalCenterID != centerID {
			continue
		}
		if after != nil && !rc.PaidAt.After(*after) {
			continue
		}
		if until != nil && !rc.PaidAt.Before(*until) {
			continue
		}
		sum = sum.Add(rc.Amount)
	}
	return sum, nil
}

func (r *fakeRepo) ListReceipts(_ context.Context, centerID id.ID, filter HistoryFilter) ([]Receipt, error) {
	var out []Receipt
	for _, rc := range r.receipts {
		if rc.HospitalCenterID != centerID {
			continue
		}
		if filter.FromDate != nil && rc.PaidAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && rc.PaidAt.After(*filter.ToDate) {
			continue
		}
		out = append(out, rc)
	}
	return out, nil
}

func (r *fakeRepo) GetLastHandover(_ context.Context, centerID id.ID, before *time.Time) (Handover, bool, error) {
	var last Handover
	found := false
	for _, h := range r.handovers {
		if h.HospitalCenterID != centerID {
			continue
		}
		if before != nil && !h.Date.Before(*before) {
			continue
		}
		if !found || h.Date.After(last.Date) {
			last = h
			found = true
		}
	}
	return last, found, nil
}

func (r *fakeRepo) ListHandovers(_ context.Context, centerID id.ID, filter HistoryFilter) ([]Handover, error) {
	var out []Handover
	for _, h := range r.handovers {
		if h.HospitalCenterID != centerID {
			continue
		}
		if filter.FromDate != nil && h.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && h.Date.After(*filter.ToDate) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (r *fakeRepo) GetHandoverByID(_ context.Context, handoverID id.ID) (Handover, bool, error) {
	for _, h := range r.handovers {
		if h.ID == handoverID {
			return h, true, nil
		}
	}
	return Handover{}, false, nil
}

func (r *fakeRepo) CreateHandover(_ context.Context, h *Handover) error {
	r.handovers = append(r.handovers, *h)
	return nil
}

func (r *fakeRepo) AcquireCenterLock(_ context.Context, _ id.ID) error { return nil }

type fakeFinanciers struct {
	byID map[id.ID]*financier.Financier
}

func (f *fakeFinanciers) GetByID(_ context.Context, financierID id.ID) (*financier.Financier, error) {
	fin, ok := f.byID[financierID]
	if !ok {
		return nil, apperror.NewNotFound("financier", financierID)
	}
	return fin, nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNumbers struct{ n int }

func (f *fakeNumbers) Next(_ context.Context, cfg numerator.Config, period time.Time) (string, error) {
	f.n++
	return fmt.Sprintf("%s-%s-%05d", cfg.Prefix, period.Format("2006"), f.n), nil
}

var testNow = time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

func money(s string) types.Money { return types.MustMoney(s) }

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	centerID  id.ID
	financier *financier.Financier
}

func newFixture() *fixture {
	centerID := id.New()
	fin := financier.NewFinancier("FIN-01", "Dr. Mbarga")
	fin.ID = id.New()

	repo := &fakeRepo{}
	financiers := &fakeFinanciers{byID: map[id.ID]*financier.Financier{fin.ID: fin}}

	svc := NewService(repo, financiers, fakeTxManager{}, &fakeNumbers{}, audit.Nop{}, clock.Fixed{T: testNow})

	return &fixture{svc: svc, repo: repo, centerID: centerID, financier: fin}
}

func (f *fixture) addReceipt(amount string, paidAt time.Time) {
	f.repo.receipts = append(f.repo.receipts, Receipt{
		PaymentID:        id.New(),
		HospitalCenterID: f.centerID,
		Amount:           money(amount),
		PaidAt:           paidAt,
	})
}

func (f *fixture) addHandover(total, handover string, date time.Time) Handover {
	h := Handover{
		Document:            entity.NewDocument(f.centerID, date),
		FinancierID:         f.financier.ID,
		TotalCashAmount:     money(total),
		HandoverAmount:      money(handover),
		RemainingCashAmount: money(total).Sub(money(handover)),
		HandedOverBy:        "cashier-01",
	}
	h.Date = date
	h.Number = fmt.Sprintf("CH-2026-%05d", len(f.repo.handovers)+1)
	f.repo.handovers = append(f.repo.handovers, h)
	return h
}

func TestCurrentBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("no handover sums all counted receipts", func(t *testing.T) {
		f := newFixture()
		f.addReceipt("4000", testNow.Add(-72*time.Hour))
		f.addReceipt("1500", testNow.Add(-48*time.Hour))
		f.addReceipt("2500", testNow.Add(-24*time.Hour))

		balance, err := f.svc.CurrentBalance(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(money("8000")), "got %s", balance)
	})

	t.Run("anchored at last handover remainder plus later receipts", func(t *testing.T) {
		f := newFixture()
		handoverDate := testNow.Add(-96 * time.Hour)

		f.addReceipt("10000", handoverDate.Add(-24*time.Hour))
		f.addHandover("10000", "6000", handoverDate)
		f.addReceipt("1500", handoverDate.Add(24*time.Hour))
		f.addReceipt("2500", handoverDate.Add(48*time.Hour))

		// remaining 4000 + 1500 + 2500
		balance, err := f.svc.CurrentBalance(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(money("8000")), "got %s", balance)
	})

	t.Run("receipt at the handover instant is not counted twice", func(t *testing.T) {
		f := newFixture()
		handoverDate := testNow.Add(-24 * time.Hour)

		f.addReceipt("1000", handoverDate)
		f.addHandover("1000", "600", handoverDate)

		balance, err := f.svc.CurrentBalance(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(money("400")), "got %s", balance)
	})

	t.Run("empty register balances to zero", func(t *testing.T) {
		f := newFixture()
		balance, err := f.svc.CurrentBalance(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("other centers do not leak in", func(t *testing.T) {
		f := newFixture()
		f.addReceipt("4000", testNow.Add(-24*time.Hour))
		f.repo.receipts = append(f.repo.receipts, Receipt{
			PaymentID:        id.New(),
			HospitalCenterID: id.New(),
			Amount:           money("9999"),
			PaidAt:           testNow,
		})

		balance, err := f.svc.CurrentBalance(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(money("4000")))
	})
}

func TestBalanceAsOf(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	handoverDate := testNow.Add(-96 * time.Hour)

	f.addReceipt("10000", handoverDate.Add(-24*time.Hour))
	f.addHandover("10000", "6000", handoverDate)
	f.addReceipt("1500", handoverDate.Add(24*time.Hour))
	f.addReceipt("2500", handoverDate.Add(48*time.Hour))

	t.Run("before any handover uses receipts only", func(t *testing.T) {
		balance, err := f.svc.BalanceAsOf(ctx, f.centerID, handoverDate)
		require.NoError(t, err)
		assert.True(t, balance.Equal(money("10000")), "got %s", balance)
	})

	t.Run("between handover and later receipts", func(t *testing.T) {
		balance, err := f.svc.BalanceAsOf(ctx, f.centerID, handoverDate.Add(30*time.Hour))
		require.NoError(t, err)
		assert.True(t, balance.Equal(money("5500")), "got %s", balance)
	})

	t.Run("as of now matches current balance", func(t *testing.T) {
		asOf, err := f.svc.BalanceAsOf(ctx, f.centerID, testNow)
		require.NoError(t, err)
		current, err := f.svc.CurrentBalance(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, asOf.Equal(current))
	})
}

func TestCreateHandover(t *testing.T) {
	ctx := context.Background()

	t.Run("remainder is recomputed silently", func(t *testing.T) {
		f := newFixture()

		// Declared remainder 1000 is inconsistent; 5000 - 3000 wins.
		h, err := f.svc.CreateHandover(ctx, CreateHandoverInput{
			HospitalCenterID:    f.centerID,
			FinancierID:         f.financier.ID,
			TotalCashAmount:     money("5000"),
			HandoverAmount:      money("3000"),
			RemainingCashAmount: money("1000"),
		}, "cashier-01")
		require.NoError(t, err)

		assert.True(t, h.RemainingCashAmount.Equal(money("2000")), "got %s", h.RemainingCashAmount)
		assert.Equal(t, "CH-2026-00001", h.Number)
		assert.Equal(t, "cashier-01", h.HandedOverBy)
	})

	t.Run("handover exceeding total is rejected", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.CreateHandover(ctx, CreateHandoverInput{
			HospitalCenterID: f.centerID,
			FinancierID:      f.financier.ID,
			TotalCashAmount:  money("1000"),
			HandoverAmount:   money("1500"),
		}, "cashier-01")
		require.Error(t, err)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
		assert.Empty(t, f.repo.handovers)
	})

	t.Run("handing over the whole total leaves zero remainder", func(t *testing.T) {
		f := newFixture()

		h, err := f.svc.CreateHandover(ctx, CreateHandoverInput{
			HospitalCenterID: f.centerID,
			FinancierID:      f.financier.ID,
			TotalCashAmount:  money("5000"),
			HandoverAmount:   money("5000"),
		}, "cashier-01")
		require.NoError(t, err)
		assert.True(t, h.RemainingCashAmount.IsZero())
	})

	t.Run("inactive financier is refused", func(t *testing.T) {
		f := newFixture()
		f.financier.Active = false

		_, err := f.svc.CreateHandover(ctx, CreateHandoverInput{
			HospitalCenterID: f.centerID,
			FinancierID:      f.financier.ID,
			TotalCashAmount:  money("5000"),
			HandoverAmount:   money("1000"),
		}, "cashier-01")
		require.Error(t, err)

		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeInactiveFinancier, appErr.Code)
	})

	t.Run("soft-deleted financier is refused", func(t *testing.T) {
		f := newFixture()
		f.financier.MarkDeleted()

		_, err := f.svc.CreateHandover(ctx, CreateHandoverInput{
			HospitalCenterID: f.centerID,
			FinancierID:      f.financier.ID,
			TotalCashAmount:  money("5000"),
			HandoverAmount:   money("1000"),
		}, "cashier-01")
		require.Error(t, err)
	})

	t.Run("unknown financier is not found", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.CreateHandover(ctx, CreateHandoverInput{
			HospitalCenterID: f.centerID,
			FinancierID:      id.New(),
			TotalCashAmount:  money("5000"),
			HandoverAmount:   money("1000"),
		}, "cashier-01")
		require.Error(t, err)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("non-positive handover amount is rejected", func(t *testing.T) {
		f := newFixture()

		for _, amount := range []string{"0", "-100"} {
			_, err := f.svc.CreateHandover(ctx, CreateHandoverInput{
				HospitalCenterID: f.centerID,
				FinancierID:      f.financier.ID,
				TotalCashAmount:  money("5000"),
				HandoverAmount:   money(amount),
			}, "cashier-01")
			require.Error(t, err, "amount %s", amount)
		}
	})

	t.Run("new handover becomes the balance anchor", func(t *testing.T) {
		f := newFixture()
		f.addReceipt("8000", testNow.Add(-24*time.Hour))

		_, err := f.svc.CreateHandover(ctx, CreateHandoverInput{
			HospitalCenterID: f.centerID,
			FinancierID:      f.financier.ID,
			TotalCashAmount:  money("8000"),
			HandoverAmount:   money("5000"),
		}, "cashier-01")
		require.NoError(t, err)

		balance, err := f.svc.CurrentBalance(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(money("3000")), "got %s", balance)
	})
}

func TestMovementHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("chronological fold with running balance", func(t *testing.T) {
		f := newFixture()
		f.addReceipt("4000", testNow.Add(-72*time.Hour))
		f.addReceipt("1500", testNow.Add(-48*time.Hour))
		f.addReceipt("2500", testNow.Add(-24*time.Hour))
		f.addHandover("8000", "5000", testNow.Add(-12*time.Hour))

		movements, err := f.svc.MovementHistory(ctx, f.centerID, HistoryFilter{})
		require.NoError(t, err)
		require.Len(t, movements, 4)

		assert.Equal(t, DirectionIn, movements[0].Direction)
		assert.True(t, movements[0].RunningBalance.Equal(money("4000")))
		assert.True(t, movements[1].RunningBalance.Equal(money("5500")))
		assert.True(t, movements[2].RunningBalance.Equal(money("8000")))
		assert.Equal(t, DirectionOut, movements[3].Direction)
		assert.True(t, movements[3].RunningBalance.Equal(money("3000")))
	})

	t.Run("receipt sorts before handover at the same instant", func(t *testing.T) {
		f := newFixture()
		at := testNow.Add(-24 * time.Hour)
		f.addReceipt("1000", at.Add(-time.Hour))
		f.addReceipt("500", at)
		f.addHandover("1500", "1500", at)

		movements, err := f.svc.MovementHistory(ctx, f.centerID, HistoryFilter{})
		require.NoError(t, err)
		require.Len(t, movements, 3)

		assert.Equal(t, DirectionIn, movements[1].Direction)
		assert.Equal(t, DirectionOut, movements[2].Direction)
		assert.True(t, movements[2].RunningBalance.IsZero())
	})

	t.Run("final running balance matches direct computation", func(t *testing.T) {
		f := newFixture()
		f.addReceipt("10000", testNow.Add(-120*time.Hour))
		f.addHandover("10000", "6000", testNow.Add(-96*time.Hour))
		f.addReceipt("1500", testNow.Add(-72*time.Hour))
		f.addReceipt("2500", testNow.Add(-48*time.Hour))

		movements, err := f.svc.MovementHistory(ctx, f.centerID, HistoryFilter{})
		require.NoError(t, err)
		require.NotEmpty(t, movements)

		final := movements[len(movements)-1].RunningBalance
		current, err := f.svc.CurrentBalance(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, final.Equal(current), "fold gave %s, direct gave %s", final, current)
	})

	t.Run("windowed view opens at the pre-window balance", func(t *testing.T) {
		f := newFixture()
		f.addReceipt("4000", testNow.Add(-72*time.Hour))
		f.addReceipt("1500", testNow.Add(-48*time.Hour))
		f.addReceipt("2500", testNow.Add(-24*time.Hour))

		from := testNow.Add(-36 * time.Hour)
		movements, err := f.svc.MovementHistory(ctx, f.centerID, HistoryFilter{FromDate: &from})
		require.NoError(t, err)
		require.Len(t, movements, 1)

		// 4000 + 1500 happened before the window; the fold continues from 5500.
		assert.True(t, movements[0].RunningBalance.Equal(money("8000")))
	})

	t.Run("pagination after the merge", func(t *testing.T) {
		f := newFixture()
		f.addReceipt("4000", testNow.Add(-72*time.Hour))
		f.addReceipt("1500", testNow.Add(-48*time.Hour))
		f.addReceipt("2500", testNow.Add(-24*time.Hour))

		movements, err := f.svc.MovementHistory(ctx, f.centerID, HistoryFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, movements, 2)
		assert.True(t, movements[0].RunningBalance.Equal(money("5500")))
	})
}

func TestCashPosition(t *testing.T) {
	ctx := context.Background()

	t.Run("no handover yet", func(t *testing.T) {
		f := newFixture()
		f.addReceipt("4000", testNow.Add(-24*time.Hour))

		pos, err := f.svc.CashPosition(ctx, f.centerID)
		require.NoError(t, err)
		assert.True(t, pos.CurrentBalance.Equal(money("4000")))
		assert.Nil(t, pos.LastHandoverDate)
		assert.Equal(t, 1, pos.DaysSinceLastHandover)
		assert.True(t, pos.AverageDailyReceipts.Equal(money("4000")))
	})

	t.Run("averages receipts over days since handover", func(t *testing.T) {
		f := newFixture()
		handoverDate := testNow.Add(-72 * time.Hour) // three days ago

		f.addHandover("10000", "6000", handoverDate)
		f.addReceipt("1500", handoverDate.Add(24*time.Hour))
		f.addReceipt("2500", handoverDate.Add(48*time.Hour))

		pos, err := f.svc.CashPosition(ctx, f.centerID)
		require.NoError(t, err)
		require.NotNil(t, pos.LastHandoverDate)
		assert.True(t, pos.LastHandoverAmount.Equal(money("6000")))
		assert.True(t, pos.ReceiptsSinceLastHandover.Equal(money("4000")))
		assert.True(t, pos.CurrentBalance.Equal(money("8000")))
		assert.Equal(t, 3, pos.DaysSinceLastHandover)

		// 4000 over 3 days.
		want := money("4000").Div(money("3"))
		assert.True(t, pos.AverageDailyReceipts.Equal(want))
	})

	t.Run("same-day handover counts as one day", func(t *testing.T) {
		f := newFixture()
		f.addHandover("5000", "5000", testNow.Add(-2*time.Hour))

		pos, err := f.svc.CashPosition(ctx, f.centerID)
		require.NoError(t, err)
		assert.Equal(t, 1, pos.DaysSinceLastHandover)
	})
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		want int
	}{
		{"same morning", time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), 1},
		{"late yesterday", time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC), 1},
		{"three days ago", time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, daysSince(tt.from, now))
		})
	}
}

func TestHandoverValidate(t *testing.T) {
	ctx := context.Background()
	centerID := id.New()

	valid := func() *Handover {
		h := &Handover{
			Document:            entity.NewDocument(centerID, testNow),
			FinancierID:         id.New(),
			TotalCashAmount:     money("5000"),
			HandoverAmount:      money("3000"),
			RemainingCashAmount: money("2000"),
			HandedOverBy:        "cashier-01",
		}
		return h
	}

	t.Run("valid handover passes", func(t *testing.T) {
		require.NoError(t, valid().Validate(ctx))
	})

	t.Run("missing financier", func(t *testing.T) {
		h := valid()
		h.FinancierID = id.Nil()
		require.Error(t, h.Validate(ctx))
	})

	t.Run("missing center", func(t *testing.T) {
		h := valid()
		h.HospitalCenterID = id.Nil()
		require.Error(t, h.Validate(ctx))
	})
}
