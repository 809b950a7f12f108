package orders

import (
	"context"
	"fmt"

	"github.com/01moynul/modelshop/internal/models"
	"github.com/01moynul/modelshop/internal/store"
	"github.com/shopspring/decimal"
)

// Summary aggregates every stored order for the admin dashboard.
type Summary struct {
	TotalOrders int                        `json:"total_orders"`
	ByStatus    map[models.OrderStatus]int `json:"by_status"`
	// Revenue sums total_amount over orders that were not cancelled.
	Revenue decimal.Decimal `json:"revenue"`
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	docs, err := s.store.List(ctx, store.Orders)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	sum := &Summary{ByStatus: make(map[models.OrderStatus]int, len(models.OrderStatuses))}
	for _, st := range models.OrderStatuses {
		sum.ByStatus[st] = 0
	}
	for _, doc := range docs {
		o, err := decodeOrder(doc)
		if err != nil {
			return nil, err
		}
		sum.TotalOrders++
		sum.ByStatus[o.Status]++
		if o.Status != models.StatusCancelled {
			sum.Revenue = sum.Revenue.Add(o.TotalAmount)
		}
	}
	return sum, nil
}
