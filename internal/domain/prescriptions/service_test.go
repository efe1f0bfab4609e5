package prescriptions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
	"hospicore/internal/domain"
	"hospicore/internal/domain/audit"
	"hospicore/internal/domain/catalogs/product"
	"hospicore/internal/domain/episodes"
	"hospicore/internal/domain/registers/stock"
	"hospicore/pkg/numerator"
)

type fakeRepo struct {
	prescriptions map[id.ID]*Prescription
	lines         map[id.ID][]PrescriptionLine
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		prescriptions: make(map[id.ID]*Prescription),
		lines:         make(map[id.ID][]PrescriptionLine),
	}
}

func (r *fakeRepo) Create(_ context.Context, p *Prescription) error {
	cp := *p
	cp.Lines = nil
	r.prescriptions[p.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, prescriptionID id.ID) (*Prescription, error) {
	p, ok := r.prescriptions[prescriptionID]
	if !ok {
		return nil, apperror.NewNotFound("prescription", prescriptionID)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, prescriptionID id.ID) (*Prescription, error) {
	return r.GetByID(ctx, prescriptionID)
}

func (r *fakeRepo) Update(_ context.Context, p *Prescription) error {
	cp := *p
	cp.Lines = nil
	r.prescriptions[p.ID] = &cp
	return nil
}

func (r *fakeRepo) GetLines(_ context.Context, prescriptionID id.ID) ([]PrescriptionLine, error) {
	return r.lines[prescriptionID], nil
}

func (r *fakeRepo) SaveLines(_ context.Context, prescriptionID id.ID, lines []PrescriptionLine) error {
	r.lines[prescriptionID] = append([]PrescriptionLine(nil), lines...)
	return nil
}

func (r *fakeRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*Prescription], error) {
	var items []*Prescription
	for _, p := range r.prescriptions {
		items = append(items, p)
	}
	return domain.ListResult[*Prescription]{Items: items, TotalCount: int64(len(items))}, nil
}

type fakeStock struct {
	shortages []stock.ShortageItem
	consumed  [][]stock.Demand
	lastRef   stock.Reference
}

func (f *fakeStock) Consume(_ context.Context, _ id.ID, demands []stock.Demand, ref stock.Reference, _ string) ([]stock.MovementResult, stock.Availability, error) {
	f.lastRef = ref
	if len(f.shortages) > 0 {
		return nil, stock.Availability{IsAvailable: false, Shortages: f.shortages}, nil
	}
	f.consumed = append(f.consumed, demands)
	results := make([]stock.MovementResult, len(demands))
	for i, d := range demands {
		results[i] = stock.MovementResult{ProductID: d.ProductID, QuantityDelta: d.Quantity.Neg()}
	}
	return results, stock.Availability{IsAvailable: true, Shortages: []stock.ShortageItem{}}, nil
}

type fakeEpisodes struct {
	active  map[id.ID]bool
	accrued map[id.ID]types.Money
}

func newFakeEpisodes() *fakeEpisodes {
	return &fakeEpisodes{active: make(map[id.ID]bool), accrued: make(map[id.ID]types.Money)}
}

func (f *fakeEpisodes) RequireActive(_ context.Context, episodeID id.ID) (*episodes.CareEpisode, error) {
	active, ok := f.active[episodeID]
	if !ok {
		return nil, apperror.NewNotFound("care episode", episodeID)
	}
	if !active {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "care episode is not active")
	}
	return &episodes.CareEpisode{}, nil
}

func (f *fakeEpisodes) AccrueCost(_ context.Context, episodeID id.ID, amount types.Money, _ string) error {
	f.accrued[episodeID] = f.accrued[episodeID].Add(amount)
	return nil
}

type fakeProducts struct {
	byID map[id.ID]*product.Product
}

func (f *fakeProducts) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := f.byID[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
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

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	stock    *fakeStock
	episodes *fakeEpisodes
	products *fakeProducts
	centerID id.ID
}

func newFixture() *fixture {
	repo := newFakeRepo()
	st := &fakeStock{}
	eps := newFakeEpisodes()
	products := &fakeProducts{byID: make(map[id.ID]*product.Product)}

	svc := NewService(repo, st, eps, products, fakeTxManager{}, &fakeNumbers{}, audit.Nop{}, clock.Fixed{T: testNow})

	return &fixture{svc: svc, repo: repo, stock: st, episodes: eps, products: products, centerID: id.New()}
}

func (f *fixture) addProduct(code, price string) id.ID {
	p := product.NewProduct(code, "Product "+code, product.FormTablet, "box", types.MustMoney(price))
	p.ID = id.New()
	f.products.byID[p.ID] = p
	return p.ID
}

func (f *fixture) create(t *testing.T, lines ...PrescriptionLine) *Prescription {
	t.Helper()
	p := NewPrescription(f.centerID, "Ngo Bassong", "Dr. Etoga", testNow)
	for _, l := range lines {
		p.AddLine(l.ProductID, l.Quantity, l.Dosage)
	}
	require.NoError(t, f.svc.Create(context.Background(), p, "doctor-01"))
	return p
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusDispensed, true},
		{StatusPending, StatusCancelled, true},
		{StatusDispensed, StatusPending, false},
		{StatusDispensed, StatusCancelled, false},
		{StatusCancelled, StatusDispensed, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns number and saves lines", func(t *testing.T) {
		f := newFixture()
		productID := f.addProduct("P-001", "250")

		p := f.create(t, PrescriptionLine{ProductID: productID, Quantity: qty(10), Dosage: "2x daily"})
		assert.Equal(t, "RX-2026-00001", p.Number)

		stored, err := f.svc.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, stored.Status)
		require.Len(t, stored.Lines, 1)
		assert.Equal(t, "2x daily", stored.Lines[0].Dosage)
	})

	t.Run("rejects empty line set", func(t *testing.T) {
		f := newFixture()
		p := NewPrescription(f.centerID, "Ngo Bassong", "Dr. Etoga", testNow)
		require.Error(t, f.svc.Create(ctx, p, "doctor-01"))
	})

	t.Run("rejects non-positive line quantity", func(t *testing.T) {
		f := newFixture()
		productID := f.addProduct("P-001", "250")
		p := NewPrescription(f.centerID, "Ngo Bassong", "Dr. Etoga", testNow)
		p.AddLine(productID, 0, "")
		require.Error(t, f.svc.Create(ctx, p, "doctor-01"))
	})
}

func TestDispense(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes stock, flips status and totals the cost", func(t *testing.T) {
		f := newFixture()
		paracetamol := f.addProduct("P-001", "250")
		amoxicillin := f.addProduct("P-002", "1200")

		p := f.create(t,
			PrescriptionLine{ProductID: paracetamol, Quantity: qty(4)},
			PrescriptionLine{ProductID: amoxicillin, Quantity: qty(1)},
		)

		dispensed, err := f.svc.Dispense(ctx, p.ID, "pharmacist-01")
		require.NoError(t, err)

		assert.Equal(t, StatusDispensed, dispensed.Status)
		require.NotNil(t, dispensed.DispensedAt)
		assert.Equal(t, "pharmacist-01", dispensed.DispensedBy)
		// 4 x 250 + 1 x 1200
		assert.True(t, dispensed.TotalCost.Equal(types.MustMoney("2200")), "got %s", dispensed.TotalCost)

		require.Len(t, f.stock.consumed, 1)
		assert.Len(t, f.stock.consumed[0], 2)
		assert.Equal(t, "Prescription", f.stock.lastRef.Type)
		assert.Equal(t, p.ID, f.stock.lastRef.ID)
	})

	t.Run("already dispensed cannot be dispensed again", func(t *testing.T) {
		f := newFixture()
		productID := f.addProduct("P-001", "250")
		p := f.create(t, PrescriptionLine{ProductID: productID, Quantity: qty(1)})

		_, err := f.svc.Dispense(ctx, p.ID, "pharmacist-01")
		require.NoError(t, err)

		_, err = f.svc.Dispense(ctx, p.ID, "pharmacist-01")
		require.Error(t, err)

		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)

		// Stock was consumed exactly once.
		assert.Len(t, f.stock.consumed, 1)
	})

	t.Run("shortage leaves the prescription pending", func(t *testing.T) {
		f := newFixture()
		productID := f.addProduct("P-001", "250")
		f.stock.shortages = []stock.ShortageItem{
			{ProductID: productID, RequestedQuantity: qty(4), AvailableQuantity: qty(1)},
		}

		p := f.create(t, PrescriptionLine{ProductID: productID, Quantity: qty(4)})

		_, err := f.svc.Dispense(ctx, p.ID, "pharmacist-01")
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))

		stored, err := f.svc.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, stored.Status)
	})

	t.Run("linked episode must be active", func(t *testing.T) {
		f := newFixture()
		productID := f.addProduct("P-001", "250")
		episodeID := id.New()
		f.episodes.active[episodeID] = false

		p := NewPrescription(f.centerID, "Ngo Bassong", "Dr. Etoga", testNow)
		p.EpisodeID = &episodeID
		p.AddLine(productID, qty(1), "")
		require.NoError(t, f.svc.Create(ctx, p, "doctor-01"))

		_, err := f.svc.Dispense(ctx, p.ID, "pharmacist-01")
		require.Error(t, err)

		// Nothing was consumed.
		assert.Empty(t, f.stock.consumed)
	})

	t.Run("accrues dispensation cost on the linked episode", func(t *testing.T) {
		f := newFixture()
		productID := f.addProduct("P-001", "250")
		episodeID := id.New()
		f.episodes.active[episodeID] = true

		p := NewPrescription(f.centerID, "Ngo Bassong", "Dr. Etoga", testNow)
		p.EpisodeID = &episodeID
		p.AddLine(productID, qty(4), "")
		require.NoError(t, f.svc.Create(ctx, p, "doctor-01"))

		_, err := f.svc.Dispense(ctx, p.ID, "pharmacist-01")
		require.NoError(t, err)

		assert.True(t, f.episodes.accrued[episodeID].Equal(types.MustMoney("1000")))
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending can be cancelled", func(t *testing.T) {
		f := newFixture()
		productID := f.addProduct("P-001", "250")
		p := f.create(t, PrescriptionLine{ProductID: productID, Quantity: qty(1)})

		require.NoError(t, f.svc.Cancel(ctx, p.ID, "doctor-01"))

		stored, err := f.svc.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, stored.Status)
	})

	t.Run("dispensed cannot be cancelled", func(t *testing.T) {
		f := newFixture()
		productID := f.addProduct("P-001", "250")
		p := f.create(t, PrescriptionLine{ProductID: productID, Quantity: qty(1)})

		_, err := f.svc.Dispense(ctx, p.ID, "pharmacist-01")
		require.NoError(t, err)

		require.Error(t, f.svc.Cancel(ctx, p.ID, "doctor-01"))
	})
}
