package episodes

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
	"hospicore/internal/domain/registers/stock"
	"hospicore/pkg/logger"
	"hospicore/pkg/numerator"
)

// StockEngine is the slice of the stock register the episode flow needs.
// Satisfied by stock.Service.
type StockEngine interface {
	Consume(ctx context.Context, centerID id.ID, demands []stock.Demand, ref stock.Reference, actorID string) ([]stock.MovementResult, stock.Availability, error)
}

// ProductDirectory prices usage lines. Satisfied by the product catalog
// service.
type ProductDirectory interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
}

// NumberAllocator allocates document numbers. Satisfied by numerator.Service.
type NumberAllocator interface {
	Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error)
}

// Service provides business operations for care episodes.
type Service struct {
	repo      Repository
	stock     StockEngine
	products  ProductDirectory
	txManager tx.Manager
	numbers   NumberAllocator
	auditLog  audit.Logger
	clock     clock.Clock

	numberCfg numerator.Config
}

// NewService creates a new care episode service.
func NewService(
	repo Repository,
	stockEngine StockEngine,
	products ProductDirectory,
	txManager tx.Manager,
	numbers NumberAllocator,
	auditLog audit.Logger,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:      repo,
		stock:     stockEngine,
		products:  products,
		txManager: txManager,
		numbers:   numbers,
		auditLog:  auditLog,
		clock:     clk,
		numberCfg: numerator.DefaultConfig("EP"),
	}
}

// Admit opens a new active episode for a patient.
func (s *Service) Admit(ctx context.Context, ep *CareEpisode, actorID string) error {
	if err := ep.Validate(ctx); err != nil {
		return err
	}

	now := s.clock.Now()
	ep.CreatedBy = actorID
	ep.UpdatedBy = actorID

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if ep.Number == "" {
			number, err := s.numbers.Next(ctx, s.numberCfg, now)
			if err != nil {
				return apperror.NewDatabase(fmt.Errorf("allocate episode number: %w", err))
			}
			ep.Number = number
		}
		if err := s.repo.Create(ctx, ep); err != nil {
			return apperror.NewDatabase(fmt.Errorf("create episode: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionCreate,
		EntityType: "CareEpisode",
		EntityID:   ep.ID,
		NewValues: map[string]any{
			"number":  ep.Number,
			"patient": ep.PatientName,
		},
	})

	logger.Info(ctx, "care episode admitted", "episode_id", ep.ID, "number", ep.Number)
	return nil
}

// GetByID retrieves an episode with its usage lines.
func (s *Service) GetByID(ctx context.Context, episodeID id.ID) (*CareEpisode, error) {
	ep, err := s.repo.GetByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	usages, err := s.repo.GetUsages(ctx, episodeID)
	if err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("get usages: %w", err))
	}
	ep.Usages = usages

	return ep, nil
}

// List retrieves episodes with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*CareEpisode], error) {
	return s.repo.List(ctx, filter)
}

// RequireActive returns the episode when it accepts stock consumption.
func (s *Service) RequireActive(ctx context.Context, episodeID id.ID) (*CareEpisode, error) {
	ep, err := s.repo.GetByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if !ep.IsActive() {
		return nil, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"care episode is not active",
		).
			WithDetail("episode_id", episodeID.String()).
			WithDetail("status", string(ep.Status))
	}
	return ep, nil
}

// AccrueCost adds a dispensation cost to the episode's running total.
// Runs inside the caller's transaction.
func (s *Service) AccrueCost(ctx context.Context, episodeID id.ID, amount types.Money, actorID string) error {
	ep, err := s.repo.GetForUpdate(ctx, episodeID)
	if err != nil {
		return err
	}

	ep.AccumulatedCost = ep.AccumulatedCost.Add(amount)
	ep.UpdatedBy = actorID
	ep.Touch(s.clock.Now())

	if err := s.repo.Update(ctx, ep); err != nil {
		return apperror.NewDatabase(fmt.Errorf("accrue cost: %w", err))
	}
	return nil
}

// UsageItem is one product consumed during care.
type UsageItem struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
}

// RecordProductUsage consumes stock for products used during care and
// accrues their cost on the episode.
//
// The episode must be active. The availability check, decrements, usage
// lines and cost accrual run in one transaction: a shortage on any line
// leaves everything untouched and returns the per-product shortage detail.
func (s *Service) RecordProductUsage(ctx context.Context, episodeID id.ID, items []UsageItem, actorID string) ([]ProductUsage, error) {
	if len(items) == 0 {
		return nil, apperror.NewValidation("at least one usage item is required").
			WithDetail("field", "items")
	}

	now := s.clock.Now()
	var recorded []ProductUsage

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ep, err := s.repo.GetForUpdate(ctx, episodeID)
		if err != nil {
			return err
		}
		if !ep.IsActive() {
			return apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"care episode is not active",
			).
				WithDetail("episode_id", episodeID.String()).
				WithDetail("status", string(ep.Status))
		}

		demands := make([]stock.Demand, 0, len(items))
		for _, item := range items {
			demands = append(demands, stock.Demand{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		ref := stock.Reference{
			Type:     "CareEpisode",
			ID:       ep.ID,
			Movement: entity.MovementCare,
		}

		_, availability, err := s.stock.Consume(ctx, ep.HospitalCenterID, demands, ref, actorID)
		if err != nil {
			return err
		}
		if !availability.IsAvailable {
			return apperror.NewBusinessRule(
				apperror.CodeInsufficientStock,
				"insufficient stock for product usage",
			).WithDetail("shortages", availability.Shortages)
		}

		usages := make([]ProductUsage, 0, len(items))
		total := types.ZeroMoney()
		for _, item := range items {
			p, err := s.products.GetByID(ctx, item.ProductID)
			if err != nil {
				return err
			}

			cost := p.UnitPrice.Mul(item.Quantity.Decimal())
			usages = append(usages, ProductUsage{
				LineID:     id.New(),
				EpisodeID:  ep.ID,
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				UnitPrice:  p.UnitPrice,
				TotalCost:  cost,
				UsedAt:     now,
				RecordedBy: actorID,
			})
			total = total.Add(cost)
		}

		if err := s.repo.CreateUsages(ctx, usages); err != nil {
			return apperror.NewDatabase(fmt.Errorf("create usages: %w", err))
		}

		ep.AccumulatedCost = ep.AccumulatedCost.Add(total)
		ep.UpdatedBy = actorID
		ep.Touch(now)
		if err := s.repo.Update(ctx, ep); err != nil {
			return apperror.NewDatabase(fmt.Errorf("update episode: %w", err))
		}

		recorded = usages
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionUsage,
		EntityType: "CareEpisode",
		EntityID:   episodeID,
		NewValues:  map[string]any{"lines": len(recorded)},
	})

	logger.Info(ctx, "product usage recorded",
		"episode_id", episodeID,
		"lines", len(recorded),
	)

	return recorded, nil
}

// Complete closes an active episode.
func (s *Service) Complete(ctx context.Context, episodeID id.ID, actorID string) error {
	return s.transition(ctx, episodeID, StatusCompleted, actorID)
}

// Cancel voids an active episode.
func (s *Service) Cancel(ctx context.Context, episodeID id.ID, actorID string) error {
	return s.transition(ctx, episodeID, StatusCancelled, actorID)
}

func (s *Service) transition(ctx context.Context, episodeID id.ID, next Status, actorID string) error {
	var from Status

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ep, err := s.repo.GetForUpdate(ctx, episodeID)
		if err != nil {
			return err
		}
		from = ep.Status

		if !ep.Status.CanTransitionTo(next) {
			return apperror.NewInvalidTransition("care episode", string(ep.Status), string(next))
		}

		now := s.clock.Now()
		ep.Status = next
		ep.ClosedAt = &now
		ep.UpdatedBy = actorID
		ep.Touch(now)

		if err := s.repo.Update(ctx, ep); err != nil {
			return apperror.NewDatabase(fmt.Errorf("update episode: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionStatusChange,
		EntityType: "CareEpisode",
		EntityID:   episodeID,
		OldValues:  map[string]any{"status": string(from)},
		NewValues:  map[string]any{"status": string(next)},
	})

	logger.Info(ctx, "care episode status changed",
		"episode_id", episodeID,
		"from", from,
		"to", next,
	)

	return nil
}
