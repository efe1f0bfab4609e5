package examinations

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
	"hospicore/internal/domain"
	"hospicore/internal/domain/audit"
	"hospicore/pkg/numerator"
)

type fakeRepo struct {
	examinations map[id.ID]*Examination
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{examinations: make(map[id.ID]*Examination)}
}

func (r *fakeRepo) Create(_ context.Context, ex *Examination) error {
	cp := *ex
	r.examinations[ex.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, examinationID id.ID) (*Examination, error) {
	ex, ok := r.examinations[examinationID]
	if !ok {
		return nil, apperror.NewNotFound("examination", examinationID)
	}
	cp := *ex
	return &cp, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, examinationID id.ID) (*Examination, error) {
	return r.GetByID(ctx, examinationID)
}

func (r *fakeRepo) Update(_ context.Context, ex *Examination) error {
	cp := *ex
	r.examinations[ex.ID] = &cp
	return nil
}

func (r *fakeRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*Examination], error) {
	var items []*Examination
	for _, ex := range r.examinations {
		items = append(items, ex)
	}
	return domain.ListResult[*Examination]{Items: items, TotalCount: int64(len(items))}, nil
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

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, fakeTxManager{}, &fakeNumbers{}, audit.Nop{}, clock.Fixed{T: testNow})
}

func schedule(t *testing.T, svc *Service) *Examination {
	t.Helper()
	ex := NewExamination(id.New(), "Ngo Bassong", "radiography", testNow.Add(24*time.Hour), testNow)
	require.NoError(t, svc.Schedule(context.Background(), ex, "clerk-01"))
	return ex
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusScheduled, StatusInProgress, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusScheduled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusCancelled, StatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo)

	ex := schedule(t, svc)
	assert.Equal(t, "EX-2026-00001", ex.Number)

	stored, err := svc.GetByID(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, stored.Status)
	assert.Equal(t, "radiography", stored.ExaminationType)
}

func TestScheduleValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo())

	t.Run("missing patient", func(t *testing.T) {
		ex := NewExamination(id.New(), "", "radiography", testNow, testNow)
		require.Error(t, svc.Schedule(ctx, ex, "clerk-01"))
	})

	t.Run("missing type", func(t *testing.T) {
		ex := NewExamination(id.New(), "Ngo Bassong", "", testNow, testNow)
		require.Error(t, svc.Schedule(ctx, ex, "clerk-01"))
	})
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("full path scheduled to completed", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo)
		ex := schedule(t, svc)

		require.NoError(t, svc.Start(ctx, ex.ID, "doctor-01"))

		stored, err := svc.GetByID(ctx, ex.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, stored.Status)
		require.NotNil(t, stored.StartedAt)
		assert.Equal(t, "doctor-01", stored.PerformedBy)

		require.NoError(t, svc.Complete(ctx, ex.ID, "no fracture visible", "doctor-01"))

		stored, err = svc.GetByID(ctx, ex.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, stored.Status)
		require.NotNil(t, stored.CompletedAt)
		assert.Equal(t, "no fracture visible", stored.Result)
	})

	t.Run("complete requires start", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo)
		ex := schedule(t, svc)

		err := svc.Complete(ctx, ex.ID, "result", "doctor-01")
		require.Error(t, err)

		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	})

	t.Run("cancel before completion", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo)
		ex := schedule(t, svc)

		require.NoError(t, svc.Start(ctx, ex.ID, "doctor-01"))
		require.NoError(t, svc.Cancel(ctx, ex.ID, "doctor-01"))

		stored, err := svc.GetByID(ctx, ex.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, stored.Status)
	})

	t.Run("completed cannot be cancelled", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo)
		ex := schedule(t, svc)

		require.NoError(t, svc.Start(ctx, ex.ID, "doctor-01"))
		require.NoError(t, svc.Complete(ctx, ex.ID, "done", "doctor-01"))

		require.Error(t, svc.Cancel(ctx, ex.ID, "doctor-01"))
	})
}
