package resident

import (
	"context"

	"rwpay/internal/core/apperror"
	appctx "rwpay/internal/core/context"
	"rwpay/internal/core/id"
	"rwpay/internal/core/tx"
	"rwpay/internal/domain"
	"rwpay/internal/domain/audit"
)

const tableName = "residents"

// Service provides business logic for the resident catalog.
type Service struct {
	*domain.CatalogService[*Resident]
	repo     Repository
	activity audit.Recorder
}

func NewService(repo Repository, txManager tx.Manager, activity audit.Recorder) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Resident]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "resident",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		activity:       activity,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)
	base.Hooks().OnAfterCreate(func(ctx context.Context, r *Resident) error {
		audit.Log(ctx, svc.activity, audit.ActionCreate, tableName, r.ID.String(), nil, r)
		return nil
	})
	base.Hooks().OnAfterDelete(func(ctx context.Context, r *Resident) error {
		audit.Log(ctx, svc.activity, audit.ActionDelete, tableName, r.ID.String(), r, nil)
		return nil
	})

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, r *Resident) error {
	if uid, err := id.Parse(appctx.GetUserID(ctx)); err == nil {
		r.StampCreated(uid)
	}
	return s.ensureHouseNumberFree(ctx, r)
}

func (s *Service) prepareForUpdate(ctx context.Context, r *Resident) error {
	if uid, err := id.Parse(appctx.GetUserID(ctx)); err == nil {
		r.StampUpdated(uid)
	}
	return s.ensureHouseNumberFree(ctx, r)
}

func (s *Service) ensureHouseNumberFree(ctx context.Context, r *Resident) error {
	available, err := s.IsHouseNumberAvailable(ctx, r.HouseNumber, r.ID)
	if err != nil {
		return err
	}
	if !available {
		return apperror.NewDuplicate("resident", "house number", r.HouseNumber)
	}
	return nil
}

// Create normalizes the resident before the generic create pipeline.
func (s *Service) Create(ctx context.Context, r *Resident) error {
	r.Normalize()
	return s.CatalogService.Create(ctx, r)
}

// Update applies changes with optimistic locking and records the field diff.
func (s *Service) Update(ctx context.Context, r *Resident) error {
	r.Normalize()
	before, err := s.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	if err := s.CatalogService.Update(ctx, r); err != nil {
		return err
	}
	audit.Log(ctx, s.activity, audit.ActionUpdate, tableName, r.ID.String(), before, r)
	return nil
}

// IsHouseNumberAvailable reports whether houseNumber is free, ignoring the
// resident excludeID (pass the resident's own ID when editing).
func (s *Service) IsHouseNumberAvailable(ctx context.Context, houseNumber string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByHouseNumber(ctx, NormalizeHouseNumber(houseNumber))
	if err != nil {
		if apperror.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	return existing.ID == excludeID, nil
}

// ListActive returns the billing roster.
func (s *Service) ListActive(ctx context.Context) ([]*Resident, error) {
	return s.repo.ListActive(ctx)
}

// StatusDistribution counts residents per status; both statuses are always present.
func (s *Service) StatusDistribution(ctx context.Context) (map[Status]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := map[Status]int64{StatusActive: 0, StatusInactive: 0}
	for k, v := range counts {
		out[k] = v
	}
	return out, nil
}
