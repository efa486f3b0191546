package meter

import (
	"context"

	"rwpay/internal/core/apperror"
	appctx "rwpay/internal/core/context"
	"rwpay/internal/core/id"
	"rwpay/internal/core/tx"
	"rwpay/internal/domain/audit"
	"rwpay/internal/domain/reconciliation"
)

// ResidentChecker confirms the resident exists before a reading is stored.
type ResidentChecker interface {
	Exists(ctx context.Context, id id.ID) (bool, error)
}

type Service struct {
	repo      Repository
	residents ResidentChecker
	txManager tx.Manager
	activity  audit.Recorder
}

func NewService(repo Repository, residents ResidentChecker, txManager tx.Manager, activity audit.Recorder) *Service {
	return &Service{repo: repo, residents: residents, txManager: txManager, activity: activity}
}

// Record stores the reading, replacing an earlier one for the same month.
func (s *Service) Record(ctx context.Context, in Input) (*Reading, error) {
	r, err := in.Build()
	if err != nil {
		return nil, err
	}
	if uid, err := id.Parse(appctx.GetUserID(ctx)); err == nil {
		r.RecordedBy = &uid
	}

	exists, err := s.residents.Exists(ctx, in.ResidentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NewNotFound("resident", in.ResidentID.String())
	}

	var before *Reading
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if prev, err := s.repo.Get(ctx, r.ResidentID, r.Period); err == nil {
			before = prev
		}
		return s.repo.Upsert(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, s.activity, audit.ActionUpdate, "meter_readings",
		r.ResidentID.String()+"/"+r.Period, before, r)
	return r, nil
}

func (s *Service) Get(ctx context.Context, residentID id.ID, month reconciliation.Month) (*Reading, error) {
	return s.repo.Get(ctx, residentID, month.String())
}

func (s *Service) ListByMonth(ctx context.Context, month reconciliation.Month) ([]*Reading, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListByPeriod(ctx, month.String())
}
