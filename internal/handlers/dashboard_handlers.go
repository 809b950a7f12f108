package handlers

import (
	"net/http"

	"github.com/01moynul/modelshop/internal/orders"
	"github.com/gin-gonic/gin"
)

// lowStockThreshold marks products worth restocking on the dashboard.
const lowStockThreshold = 5

//
// --- Admin Dashboard Stats ---
//

type AdminStats struct {
	Orders        *orders.Summary `json:"orders"`
	TotalProducts int             `json:"total_products"`
	LowStockCount int             `json:"low_stock_count"`
	OutOfStock    int             `json:"out_of_stock"`
}

// GetAdminStats returns KPI data for the admin dashboard
// GET /v1/admin/dashboard-stats
func (h *Handlers) GetAdminStats(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. Order counts and revenue
	summary, err := h.Orders.Summary(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 2. Stock levels
	products, err := h.Catalog.List(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats := AdminStats{Orders: summary, TotalProducts: len(products)}
	for _, p := range products {
		switch {
		case p.Quantity == 0:
			stats.OutOfStock++
		case p.Quantity < lowStockThreshold:
			stats.LowStockCount++
		}
	}

	c.JSON(http.StatusOK, stats)
}
