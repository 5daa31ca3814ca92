package income

import (
	"context"

	"github.com/STTM-NSU/invest-ledger/internal/model"
)

// DealSource lists deals with their member operations.
type DealSource interface {
	WithOperations(ctx context.Context, accountID int64) ([]model.DealOperations, error)
}

type Service struct {
	deals DealSource
}

func NewService(deals DealSource) *Service {
	return &Service{deals: deals}
}

func (s *Service) Report(ctx context.Context, accountID int64) (Report, error) {
	deals, err := s.deals.WithOperations(ctx, accountID)
	if err != nil {
		return Report{}, err
	}
	return Calculate(deals), nil
}

func (s *Service) LiveEstimates(ctx context.Context, accountID int64, source PortfolioSource) ([]Estimate, error) {
	deals, err := s.deals.WithOperations(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return Estimates(ctx, source, deals)
}
