package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/goldvault/backend/internal/models"
	"github.com/goldvault/backend/internal/store"
)

// PoolService manages gold inventory pools.
type PoolService struct {
	st store.Store
}

func NewPoolService(st store.Store) *PoolService {
	return &PoolService{st: st}
}

func (s *PoolService) Create(ctx context.Context, name, purity string, totalGrams decimal.Decimal) (models.Pool, error) {
	if name == "" {
		return models.Pool{}, invalid("name is required")
	}
	if purity == "" {
		purity = "999.9"
	}
	if totalGrams.IsNegative() {
		return models.Pool{}, invalid("total_grams must not be negative")
	}
	return s.st.CreatePool(ctx, name, purity, totalGrams)
}

// TopUp adds physical inventory to a pool, raising both total and available.
func (s *PoolService) TopUp(ctx context.Context, poolID string, grams decimal.Decimal) (models.Pool, error) {
	if !grams.IsPositive() {
		return models.Pool{}, invalid("grams must be positive")
	}
	return s.st.TopUpPool(ctx, poolID, grams)
}

func (s *PoolService) Get(ctx context.Context, id string) (models.Pool, error) {
	return s.st.GetPool(ctx, id)
}

func (s *PoolService) List(ctx context.Context) ([]models.Pool, error) {
	return s.st.ListPools(ctx)
}

// PoolStats is the aggregate inventory picture across all pools.
type PoolStats struct {
	PoolCount      int             `json:"pool_count"`
	TotalGrams     decimal.Decimal `json:"total_grams"`
	AvailableGrams decimal.Decimal `json:"available_grams"`
	AllocatedGrams decimal.Decimal `json:"allocated_grams"`
	UtilizationPct decimal.Decimal `json:"utilization_pct"`
}

// Stats sums inventory across pools. Utilization is allocated / total as a
// percentage, zero when no inventory exists.
func (s *PoolService) Stats(ctx context.Context) (PoolStats, error) {
	pools, err := s.st.ListPools(ctx)
	if err != nil {
		return PoolStats{}, err
	}
	stats := PoolStats{PoolCount: len(pools)}
	for _, p := range pools {
		stats.TotalGrams = stats.TotalGrams.Add(p.TotalGrams)
		stats.AvailableGrams = stats.AvailableGrams.Add(p.AvailableGrams)
	}
	stats.AllocatedGrams = stats.TotalGrams.Sub(stats.AvailableGrams)
	if stats.TotalGrams.IsPositive() {
		stats.UtilizationPct = stats.AllocatedGrams.Div(stats.TotalGrams).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return stats, nil
}
