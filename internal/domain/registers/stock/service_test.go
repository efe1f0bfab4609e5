package stock

import (
	"context"
	"errors"
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
)

type invKey struct {
	product id.ID
	center  id.ID
}

// fakeRepo is an in-memory Repository with the same conditional-decrement
// semantics as the SQL implementation.
type fakeRepo struct {
	inventories map[invKey]entity.StockInventory
	movements   []entity.StockMovement

	failLookups bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{inventories: make(map[invKey]entity.StockInventory)}
}

func (r *fakeRepo) seed(productID, centerID id.ID, qty, minThreshold types.Quantity) {
	r.inventories[invKey{productID, centerID}] = entity.StockInventory{
		ProductID:        productID,
		HospitalCenterID: centerID,
		CurrentQuantity:  qty,
		MinimumThreshold: minThreshold,
	}
}

func (r *fakeRepo) snapshot() map[invKey]entity.StockInventory {
	c := make(map[invKey]entity.StockInventory, len(r.inventories))
	for k, v := range r.inventories {
		c[k] = v
	}
	return c
}

func (r *fakeRepo) GetInventory(_ context.Context, productID, centerID id.ID) (entity.StockInventory, bool, error) {
	if r.failLookups {
		return entity.StockInventory{}, false, errors.New("connection refused")
	}
	inv, ok := r.inventories[invKey{productID, centerID}]
	return inv, ok, nil
}

func (r *fakeRepo) GetInventoryForUpdate(ctx context.Context, productID, centerID id.ID) (entity.StockInventory, bool, error) {
	return r.GetInventory(ctx, productID, centerID)
}

func (r *fakeRepo) GetInventoriesByCenter(_ context.Context, centerID id.ID) ([]entity.StockInventory, error) {
	if r.failLookups {
		return nil, errors.New("connection refused")
	}
	var out []entity.StockInventory
	for _, inv := range r.inventories {
		if inv.HospitalCenterID == centerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeRepo) DecrementQuantity(_ context.Context, productID, centerID id.ID, qty types.Quantity, updatedBy string, now time.Time) (DecrementOutcome, error) {
	key := invKey{productID, centerID}
	inv, ok := r.inventories[key]
	if !ok {
		return DecrementOutcome{Missing: true}, nil
	}
	if inv.CurrentQuantity < qty {
		return DecrementOutcome{Applied: false, Remaining: inv.CurrentQuantity}, nil
	}
	inv.CurrentQuantity -= qty
	inv.UpdatedBy = updatedBy
	inv.UpdatedAt = now
	r.inventories[key] = inv
	return DecrementOutcome{Applied: true, Remaining: inv.CurrentQuantity}, nil
}

func (r *fakeRepo) IncrementQuantity(_ context.Context, productID, centerID id.ID, qty types.Quantity, updatedBy string, now time.Time) (types.Quantity, error) {
	key := invKey{productID, centerID}
	inv, ok := r.inventories[key]
	if !ok {
		inv = entity.StockInventory{ProductID: productID, HospitalCenterID: centerID}
	}
	inv.CurrentQuantity += qty
	inv.UpdatedBy = updatedBy
	inv.UpdatedAt = now
	r.inventories[key] = inv
	return inv.CurrentQuantity, nil
}

func (r *fakeRepo) CreateMovements(_ context.Context, movements []entity.StockMovement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *fakeRepo) GetMovementHistory(_ context.Context, centerID id.ID, _ MovementFilter) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range r.movements {
		if m.HospitalCenterID == centerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpsertThresholds(_ context.Context, productID, centerID id.ID, minimum, maximum types.Quantity, updatedBy string, now time.Time) error {
	key := invKey{productID, centerID}
	inv, ok := r.inventories[key]
	if !ok {
		inv = entity.StockInventory{ProductID: productID, HospitalCenterID: centerID}
	}
	inv.MinimumThreshold = minimum
	inv.MaximumThreshold = maximum
	inv.UpdatedBy = updatedBy
	inv.UpdatedAt = now
	r.inventories[key] = inv
	return nil
}

// fakeTxManager mimics rollback semantics: on error the inventory map and
// movement ledger are restored to their pre-transaction state. Nested calls
// reuse the outer snapshot.
type fakeTxManager struct {
	repo  *fakeRepo
	depth int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.depth > 0 {
		m.depth++
		defer func() { m.depth-- }()
		return fn(ctx)
	}

	m.depth++
	defer func() { m.depth-- }()

	snapInv := m.repo.snapshot()
	snapMov := len(m.repo.movements)

	if err := fn(ctx); err != nil {
		m.repo.inventories = snapInv
		m.repo.movements = m.repo.movements[:snapMov]
		return err
	}
	return nil
}

var testNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestService(repo *fakeRepo, policy Policy) *Service {
	return NewService(repo, &fakeTxManager{repo: repo}, audit.Nop{}, clock.Fixed{T: testNow}, policy)
}

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	centerID := id.New()
	paracetamol := id.New()
	amoxicillin := id.New()
	unknown := id.New()

	repo := newFakeRepo()
	repo.seed(paracetamol, centerID, qty(100), 0)
	repo.seed(amoxicillin, centerID, qty(3), 0)

	svc := newTestService(repo, Policy{})

	t.Run("all demands satisfiable", func(t *testing.T) {
		av, err := svc.CheckAvailability(ctx, centerID, []Demand{
			{ProductID: paracetamol, Quantity: qty(10)},
			{ProductID: amoxicillin, Quantity: qty(3)},
		})
		require.NoError(t, err)
		assert.True(t, av.IsAvailable)
		assert.Empty(t, av.Shortages)
	})

	t.Run("shortage reports requested and available", func(t *testing.T) {
		av, err := svc.CheckAvailability(ctx, centerID, []Demand{
			{ProductID: amoxicillin, Quantity: qty(5)},
		})
		require.NoError(t, err)
		assert.False(t, av.IsAvailable)
		require.Len(t, av.Shortages, 1)
		assert.Equal(t, amoxicillin, av.Shortages[0].ProductID)
		assert.Equal(t, qty(5), av.Shortages[0].RequestedQuantity)
		assert.Equal(t, qty(3), av.Shortages[0].AvailableQuantity)
	})

	t.Run("missing inventory row is a shortage with zero available", func(t *testing.T) {
		av, err := svc.CheckAvailability(ctx, centerID, []Demand{
			{ProductID: unknown, Quantity: qty(1)},
		})
		require.NoError(t, err)
		assert.False(t, av.IsAvailable)
		require.Len(t, av.Shortages, 1)
		assert.True(t, av.Shortages[0].AvailableQuantity.IsZero())
	})

	t.Run("non-positive and nil-product demands are ignored", func(t *testing.T) {
		av, err := svc.CheckAvailability(ctx, centerID, []Demand{
			{ProductID: paracetamol, Quantity: 0},
			{ProductID: paracetamol, Quantity: qty(-2)},
			{ProductID: id.Nil(), Quantity: qty(5)},
		})
		require.NoError(t, err)
		assert.True(t, av.IsAvailable)
		assert.Empty(t, av.Shortages)
	})

	t.Run("lookup failure fails closed", func(t *testing.T) {
		failing := newFakeRepo()
		failing.failLookups = true
		failingSvc := newTestService(failing, Policy{})

		av, err := failingSvc.CheckAvailability(ctx, centerID, []Demand{
			{ProductID: paracetamol, Quantity: qty(1)},
		})
		require.Error(t, err)
		assert.False(t, av.IsAvailable)
		assert.Empty(t, av.Shortages)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeDatabase, appErr.Code)
	})
}

func TestDecrement(t *testing.T) {
	ctx := context.Background()
	centerID := id.New()
	paracetamol := id.New()
	gauze := id.New()
	unknown := id.New()

	ref := Reference{Type: "Prescription", ID: id.New(), Movement: entity.MovementPrescription}

	t.Run("applies all lines and records negative movements", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(100), 0)
		repo.seed(gauze, centerID, qty(50), 0)
		svc := newTestService(repo, Policy{})

		results, err := svc.Decrement(ctx, centerID, []Demand{
			{ProductID: paracetamol, Quantity: qty(10)},
			{ProductID: gauze, Quantity: qty(2.5)},
		}, ref, "nurse-01")
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, qty(-10), results[0].QuantityDelta)
		assert.Equal(t, qty(90), results[0].ResultingQuantity)
		assert.Equal(t, qty(47.5), results[1].ResultingQuantity)

		inv, _, _ := repo.GetInventory(ctx, paracetamol, centerID)
		assert.Equal(t, qty(90), inv.CurrentQuantity)

		require.Len(t, repo.movements, 2)
		for _, m := range repo.movements {
			assert.True(t, m.IsConsumption())
			assert.Equal(t, ref.Type, m.ReferenceType)
			assert.Equal(t, ref.ID, m.ReferenceID)
			assert.Equal(t, entity.MovementPrescription, m.MovementType)
			assert.Equal(t, "nurse-01", m.CreatedBy)
			assert.Equal(t, testNow, m.MovementDate)
		}
	})

	t.Run("insufficient stock rolls back the whole demand set", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(100), 0)
		repo.seed(gauze, centerID, qty(1), 0)
		svc := newTestService(repo, Policy{})

		_, err := svc.Decrement(ctx, centerID, []Demand{
			{ProductID: paracetamol, Quantity: qty(10)},
			{ProductID: gauze, Quantity: qty(5)},
		}, ref, "nurse-01")
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))

		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, "5.0000", appErr.Details["requested"])
		assert.Equal(t, "1.0000", appErr.Details["available"])

		// First line must have been rolled back.
		inv, _, _ := repo.GetInventory(ctx, paracetamol, centerID)
		assert.Equal(t, qty(100), inv.CurrentQuantity)
		assert.Empty(t, repo.movements)
	})

	t.Run("missing product fails without skip policy", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(100), 0)
		svc := newTestService(repo, Policy{SkipMissingProducts: false})

		_, err := svc.Decrement(ctx, centerID, []Demand{
			{ProductID: unknown, Quantity: qty(1)},
		}, ref, "nurse-01")
		require.Error(t, err)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("missing product is skipped with skip policy", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(100), 0)
		svc := newTestService(repo, Policy{SkipMissingProducts: true})

		results, err := svc.Decrement(ctx, centerID, []Demand{
			{ProductID: unknown, Quantity: qty(1)},
			{ProductID: paracetamol, Quantity: qty(10)},
		}, ref, "nurse-01")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, paracetamol, results[0].ProductID)
		require.Len(t, repo.movements, 1)
	})

	t.Run("exact quantity drains the row to zero", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(10), 0)
		svc := newTestService(repo, Policy{})

		results, err := svc.Decrement(ctx, centerID, []Demand{
			{ProductID: paracetamol, Quantity: qty(10)},
		}, ref, "nurse-01")
		require.NoError(t, err)
		assert.True(t, results[0].ResultingQuantity.IsZero())
	})
}

func TestConsume(t *testing.T) {
	ctx := context.Background()
	centerID := id.New()
	paracetamol := id.New()
	ref := Reference{Type: "CareEpisode", ID: id.New(), Movement: entity.MovementCare}

	t.Run("shortage writes nothing and returns the report", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(3), 0)
		svc := newTestService(repo, Policy{})

		results, av, err := svc.Consume(ctx, centerID, []Demand{
			{ProductID: paracetamol, Quantity: qty(5)},
		}, ref, "nurse-01")
		require.NoError(t, err)
		assert.Nil(t, results)
		assert.False(t, av.IsAvailable)
		require.Len(t, av.Shortages, 1)

		inv, _, _ := repo.GetInventory(ctx, paracetamol, centerID)
		assert.Equal(t, qty(3), inv.CurrentQuantity)
		assert.Empty(t, repo.movements)
	})

	t.Run("available demand set is decremented atomically", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(10), 0)
		svc := newTestService(repo, Policy{})

		results, av, err := svc.Consume(ctx, centerID, []Demand{
			{ProductID: paracetamol, Quantity: qty(4)},
		}, ref, "nurse-01")
		require.NoError(t, err)
		assert.True(t, av.IsAvailable)
		require.Len(t, results, 1)
		assert.Equal(t, qty(6), results[0].ResultingQuantity)
	})
}

func TestReceive(t *testing.T) {
	ctx := context.Background()
	centerID := id.New()
	paracetamol := id.New()
	newProduct := id.New()
	ref := Reference{Type: "StockReceipt", ID: id.New(), Movement: entity.MovementReceipt}

	repo := newFakeRepo()
	repo.seed(paracetamol, centerID, qty(10), 0)
	svc := newTestService(repo, Policy{})

	results, err := svc.Receive(ctx, centerID, []Demand{
		{ProductID: paracetamol, Quantity: qty(25)},
		{ProductID: newProduct, Quantity: qty(100)},
	}, ref, "pharmacist-01")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, qty(35), results[0].ResultingQuantity)

	// Row created on the fly for a previously unstocked product.
	inv, found, _ := repo.GetInventory(ctx, newProduct, centerID)
	require.True(t, found)
	assert.Equal(t, qty(100), inv.CurrentQuantity)

	require.Len(t, repo.movements, 2)
	for _, m := range repo.movements {
		assert.False(t, m.IsConsumption())
		assert.Equal(t, entity.MovementReceipt, m.MovementType)
	}
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	centerID := id.New()
	paracetamol := id.New()

	t.Run("zero delta is rejected", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, Policy{})

		_, err := svc.Adjust(ctx, centerID, paracetamol, 0, "inventory count", "manager-01")
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("negative adjustment cannot go below zero", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(5), 0)
		svc := newTestService(repo, Policy{})

		_, err := svc.Adjust(ctx, centerID, paracetamol, qty(-8), "damaged box", "manager-01")
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))

		inv, _, _ := repo.GetInventory(ctx, paracetamol, centerID)
		assert.Equal(t, qty(5), inv.CurrentQuantity)
	})

	t.Run("signed adjustments record adjustment movements", func(t *testing.T) {
		repo := newFakeRepo()
		repo.seed(paracetamol, centerID, qty(5), 0)
		svc := newTestService(repo, Policy{})

		res, err := svc.Adjust(ctx, centerID, paracetamol, qty(-2), "expired units", "manager-01")
		require.NoError(t, err)
		assert.Equal(t, qty(3), res.ResultingQuantity)

		res, err = svc.Adjust(ctx, centerID, paracetamol, qty(7), "found in storage", "manager-01")
		require.NoError(t, err)
		assert.Equal(t, qty(10), res.ResultingQuantity)

		require.Len(t, repo.movements, 2)
		assert.Equal(t, entity.MovementAdjustment, repo.movements[0].MovementType)
		assert.Equal(t, qty(-2), repo.movements[0].Quantity)
		assert.Equal(t, qty(7), repo.movements[1].Quantity)
	})
}

func TestSetThresholds(t *testing.T) {
	ctx := context.Background()
	centerID := id.New()
	productID := id.New()

	repo := newFakeRepo()
	svc := newTestService(repo, Policy{})

	t.Run("negative thresholds rejected", func(t *testing.T) {
		err := svc.SetThresholds(ctx, productID, centerID, qty(-1), qty(10), "manager-01")
		require.Error(t, err)
	})

	t.Run("maximum below minimum rejected", func(t *testing.T) {
		err := svc.SetThresholds(ctx, productID, centerID, qty(20), qty(10), "manager-01")
		require.Error(t, err)
	})

	t.Run("valid thresholds upserted", func(t *testing.T) {
		err := svc.SetThresholds(ctx, productID, centerID, qty(10), qty(100), "manager-01")
		require.NoError(t, err)

		inv, found, _ := repo.GetInventory(ctx, productID, centerID)
		require.True(t, found)
		assert.Equal(t, qty(10), inv.MinimumThreshold)
		assert.Equal(t, qty(100), inv.MaximumThreshold)
	})
}
