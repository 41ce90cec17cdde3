package service

import (
	"context"

	"storefront/internal/entity"
)

type Counter interface {
	Count(ctx context.Context) (users, products, orders int, err error)
	RecentOrders(ctx context.Context, limit int) ([]*entity.Order, error)
}

// Dashboard is the summary shown to administrators.
type Dashboard struct {
	Users        int             `json:"users"`
	Products     int             `json:"products"`
	Orders       int             `json:"orders"`
	RecentOrders []*entity.Order `json:"recent_orders"`
}

type DashboardService struct {
	counter Counter
}

func NewDashboardService(counter Counter) *DashboardService {
	return &DashboardService{counter: counter}
}

func (s *DashboardService) Summary(ctx context.Context) (*Dashboard, error) {
	users, products, orders, err := s.counter.Count(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error counting dashboard totals")
		return nil, err
	}

	recent, err := s.counter.RecentOrders(ctx, 5)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting recent orders")
		return nil, err
	}

	return &Dashboard{Users: users, Products: products, Orders: orders, RecentOrders: recent}, nil
}
