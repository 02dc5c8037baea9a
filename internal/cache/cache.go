package cache

import (
	"context"
	"time"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/domain"
)

// ReportCache shields the sales summary aggregate from repeated dashboard
// polling. Misses are not errors.
type ReportCache interface {
	GetSummary(ctx context.Context, key string) (*domain.SalesSummary, bool, error)
	SetSummary(ctx context.Context, key string, value *domain.SalesSummary, ttl time.Duration) error
	Invalidate(ctx context.Context, prefix string) error
}

type NoopReportCache struct{}

func (NoopReportCache) GetSummary(_ context.Context, _ string) (*domain.SalesSummary, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) SetSummary(_ context.Context, _ string, _ *domain.SalesSummary, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
