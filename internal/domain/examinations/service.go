package examinations

import (
	"context"
	"fmt"
	"time"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/id"
	"hospicore/internal/core/tx"
	"hospicore/internal/domain"
	"hospicore/internal/domain/audit"
	"hospicore/pkg/logger"
	"hospicore/pkg/numerator"
)

// NumberAllocator allocates document numbers. Satisfied by numerator.Service.
type NumberAllocator interface {
	Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error)
}

// Service provides business operations for examinations.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numbers   NumberAllocator
	auditLog  audit.Logger
	clock     clock.Clock

	numberCfg numerator.Config
}

// NewService creates a new examination service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numbers NumberAllocator,
	auditLog audit.Logger,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numbers:   numbers,
		auditLog:  auditLog,
		clock:     clk,
		numberCfg: numerator.DefaultConfig("EX"),
	}
}

// Schedule creates a new scheduled examination.
func (s *Service) Schedule(ctx context.Context, ex *Examination, actorID string) error {
	if err := ex.Validate(ctx); err != nil {
		return err
	}

	now := s.clock.Now()
	ex.CreatedBy = actorID
	ex.UpdatedBy = actorID

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if ex.Number == "" {
			number, err := s.numbers.Next(ctx, s.numberCfg, now)
			if err != nil {
				return apperror.NewDatabase(fmt.Errorf("allocate examination number: %w", err))
			}
			ex.Number = number
		}
		if err := s.repo.Create(ctx, ex); err != nil {
			return apperror.NewDatabase(fmt.Errorf("create examination: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionCreate,
		EntityType: "Examination",
		EntityID:   ex.ID,
		NewValues: map[string]any{
			"number":  ex.Number,
			"type":    ex.ExaminationType,
			"patient": ex.PatientName,
		},
	})

	logger.Info(ctx, "examination scheduled", "examination_id", ex.ID, "number", ex.Number)
	return nil
}

// GetByID retrieves an examination.
func (s *Service) GetByID(ctx context.Context, examinationID id.ID) (*Examination, error) {
	return s.repo.GetByID(ctx, examinationID)
}

// List retrieves examinations with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Examination], error) {
	return s.repo.List(ctx, filter)
}

// Start moves a scheduled examination to in progress.
func (s *Service) Start(ctx context.Context, examinationID id.ID, performedBy string) error {
	return s.transition(ctx, examinationID, StatusInProgress, performedBy, func(ex *Examination, now time.Time) {
		ex.StartedAt = &now
		ex.PerformedBy = performedBy
	})
}

// Complete finishes an in-progress examination with the practitioner's
// findings.
func (s *Service) Complete(ctx context.Context, examinationID id.ID, result, actorID string) error {
	return s.transition(ctx, examinationID, StatusCompleted, actorID, func(ex *Examination, now time.Time) {
		ex.CompletedAt = &now
		ex.Result = result
	})
}

// Cancel voids an examination at any point before completion.
func (s *Service) Cancel(ctx context.Context, examinationID id.ID, actorID string) error {
	return s.transition(ctx, examinationID, StatusCancelled, actorID, nil)
}

func (s *Service) transition(ctx context.Context, examinationID id.ID, next Status, actorID string, apply func(*Examination, time.Time)) error {
	var from Status

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ex, err := s.repo.GetForUpdate(ctx, examinationID)
		if err != nil {
			return err
		}
		from = ex.Status

		if !ex.Status.CanTransitionTo(next) {
			return apperror.NewInvalidTransition("examination", string(ex.Status), string(next))
		}

		now := s.clock.Now()
		ex.Status = next
		if apply != nil {
			apply(ex, now)
		}
		ex.UpdatedBy = actorID
		ex.Touch(now)

		if err := s.repo.Update(ctx, ex); err != nil {
			return apperror.NewDatabase(fmt.Errorf("update examination: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionStatusChange,
		EntityType: "Examination",
		EntityID:   examinationID,
		OldValues:  map[string]any{"status": string(from)},
		NewValues:  map[string]any{"status": string(next)},
	})

	logger.Info(ctx, "examination status changed",
		"examination_id", examinationID,
		"from", from,
		"to", next,
	)

	return nil
}
