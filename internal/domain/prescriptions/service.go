package prescriptions

import (
	"context"
	"fmt"
	"time"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/tx"
	"hospicore/internal/core/types"
	"hospicore/internal/domain"
	"hospicore/internal/domain/audit"
	"hospicore/internal/domain/catalogs/product"
	"hospicore/internal/domain/episodes"
	"hospicore/internal/domain/registers/stock"
	"hospicore/pkg/logger"
	"hospicore/pkg/numerator"
)

// StockEngine is the slice of the stock register the dispense flow needs.
// Satisfied by stock.Service.
type StockEngine interface {
	Consume(ctx context.Context, centerID id.ID, demands []stock.Demand, ref stock.Reference, actorID string) ([]stock.MovementResult, stock.Availability, error)
}

// EpisodeLink gates dispensation on the owning episode and accrues the
// dispensation cost on it. Satisfied by episodes.Service.
type EpisodeLink interface {
	RequireActive(ctx context.Context, episodeID id.ID) (*episodes.CareEpisode, error)
	AccrueCost(ctx context.Context, episodeID id.ID, amount types.Money, actorID string) error
}

// ProductDirectory prices dispensed lines. Satisfied by the product catalog
// service.
type ProductDirectory interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
}

// NumberAllocator allocates document numbers. Satisfied by numerator.Service.
type NumberAllocator interface {
	Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error)
}

// Service provides business operations for prescriptions.
type Service struct {
	repo      Repository
	stock     StockEngine
	episodes  EpisodeLink
	products  ProductDirectory
	txManager tx.Manager
	numbers   NumberAllocator
	auditLog  audit.Logger
	clock     clock.Clock

	numberCfg numerator.Config
}

// NewService creates a new prescription service.
func NewService(
	repo Repository,
	stockEngine StockEngine,
	episodeLink EpisodeLink,
	products ProductDirectory,
	txManager tx.Manager,
	numbers NumberAllocator,
	auditLog audit.Logger,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:      repo,
		stock:     stockEngine,
		episodes:  episodeLink,
		products:  products,
		txManager: txManager,
		numbers:   numbers,
		auditLog:  auditLog,
		clock:     clk,
		numberCfg: numerator.DefaultConfig("RX"),
	}
}

// Create stores a new pending prescription with its lines.
func (s *Service) Create(ctx context.Context, p *Prescription, actorID string) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	now := s.clock.Now()
	p.CreatedBy = actorID
	p.UpdatedBy = actorID

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if p.Number == "" {
			number, err := s.numbers.Next(ctx, s.numberCfg, now)
			if err != nil {
				return apperror.NewDatabase(fmt.Errorf("allocate prescription number: %w", err))
			}
			p.Number = number
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return apperror.NewDatabase(fmt.Errorf("create prescription: %w", err))
		}
		if err := s.repo.SaveLines(ctx, p.ID, p.Lines); err != nil {
			return apperror.NewDatabase(fmt.Errorf("save lines: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionCreate,
		EntityType: "Prescription",
		EntityID:   p.ID,
		NewValues: map[string]any{
			"number":  p.Number,
			"patient": p.PatientName,
			"lines":   len(p.Lines),
		},
	})

	logger.Info(ctx, "prescription created", "prescription_id", p.ID, "number", p.Number)
	return nil
}

// GetByID retrieves a prescription with its lines.
func (s *Service) GetByID(ctx context.Context, prescriptionID id.ID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, prescriptionID)
	if err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("get lines: %w", err))
	}
	p.Lines = lines

	return p, nil
}

// List retrieves prescriptions with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Prescription], error) {
	return s.repo.List(ctx, filter)
}

// Dispense hands the ordered products to the patient.
//
// The prescription must be pending and its linked episode, when one exists,
// active. The availability check, stock decrements, status flip and episode
// cost accrual run in one transaction: a shortage on any line leaves
// everything untouched and returns the per-product shortage detail.
func (s *Service) Dispense(ctx context.Context, prescriptionID id.ID, actorID string) (*Prescription, error) {
	now := s.clock.Now()
	var dispensed *Prescription

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, prescriptionID)
		if err != nil {
			return err
		}

		if !p.Status.CanTransitionTo(StatusDispensed) {
			return apperror.NewInvalidTransition("prescription", string(p.Status), string(StatusDispensed))
		}

		lines, err := s.repo.GetLines(ctx, prescriptionID)
		if err != nil {
			return apperror.NewDatabase(fmt.Errorf("get lines: %w", err))
		}
		p.Lines = lines
		if len(p.Lines) == 0 {
			return apperror.NewValidation("prescription has no lines").
				WithDetail("prescription_id", prescriptionID.String())
		}

		if p.EpisodeID != nil {
			if _, err := s.episodes.RequireActive(ctx, *p.EpisodeID); err != nil {
				return err
			}
		}

		demands := make([]stock.Demand, 0, len(p.Lines))
		for _, line := range p.Lines {
			demands = append(demands, stock.Demand{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		ref := stock.Reference{
			Type:     "Prescription",
			ID:       p.ID,
			Movement: entity.MovementPrescription,
		}

		_, availability, err := s.stock.Consume(ctx, p.HospitalCenterID, demands, ref, actorID)
		if err != nil {
			return err
		}
		if !availability.IsAvailable {
			return apperror.NewBusinessRule(
				apperror.CodeInsufficientStock,
				"insufficient stock for dispensation",
			).WithDetail("shortages", availability.Shortages)
		}

		total := types.ZeroMoney()
		for _, line := range p.Lines {
			prod, err := s.products.GetByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			total = total.Add(prod.UnitPrice.Mul(line.Quantity.Decimal()))
		}

		p.Status = StatusDispensed
		p.DispensedAt = &now
		p.DispensedBy = actorID
		p.TotalCost = total
		p.UpdatedBy = actorID
		p.Touch(now)

		if err := s.repo.Update(ctx, p); err != nil {
			return apperror.NewDatabase(fmt.Errorf("update prescription: %w", err))
		}

		if p.EpisodeID != nil {
			if err := s.episodes.AccrueCost(ctx, *p.EpisodeID, total, actorID); err != nil {
				return err
			}
		}

		dispensed = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionDispense,
		EntityType: "Prescription",
		EntityID:   dispensed.ID,
		OldValues:  map[string]any{"status": string(StatusPending)},
		NewValues: map[string]any{
			"status":     string(StatusDispensed),
			"total_cost": dispensed.TotalCost.String(),
		},
	})

	logger.Info(ctx, "prescription dispensed",
		"prescription_id", dispensed.ID,
		"number", dispensed.Number,
		"total_cost", dispensed.TotalCost,
	)

	return dispensed, nil
}

// Cancel voids a pending prescription.
func (s *Service) Cancel(ctx context.Context, prescriptionID id.ID, actorID string) error {
	var from Status

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, prescriptionID)
		if err != nil {
			return err
		}
		from = p.Status

		if !p.Status.CanTransitionTo(StatusCancelled) {
			return apperror.NewInvalidTransition("prescription", string(p.Status), string(StatusCancelled))
		}

		p.Status = StatusCancelled
		p.UpdatedBy = actorID
		p.Touch(s.clock.Now())

		if err := s.repo.Update(ctx, p); err != nil {
			return apperror.NewDatabase(fmt.Errorf("update prescription: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionStatusChange,
		EntityType: "Prescription",
		EntityID:   prescriptionID,
		OldValues:  map[string]any{"status": string(from)},
		NewValues:  map[string]any{"status": string(StatusCancelled)},
	})

	logger.Info(ctx, "prescription cancelled", "prescription_id", prescriptionID)
	return nil
}
