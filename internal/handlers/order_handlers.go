package handlers

import (
	"net/http"
	"strings"

	"github.com/01moynul/modelshop/internal/middleware"
	"github.com/01moynul/modelshop/internal/orders"
	"github.com/gin-gonic/gin"
)

//
// --- Order Handlers (Customer) ---
//

// CreateOrder is the handler for POST /v1/orders.
func (h *Handlers) CreateOrder(c *gin.Context) {
	// 1. --- Get User ID ---
	claims, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// 2. --- Bind JSON ---
	var req orders.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	// The token decides who is ordering, never the body.
	req.UserID = claims.UserID

	// 3. --- Run the pipeline ---
	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	order, replayed, err := h.Orders.Create(c.Request.Context(), req, key)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if replayed {
		c.JSON(http.StatusOK, gin.H{
			"message":  "Order already created",
			"order":    order,
			"replayed": true,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"order":   order,
	})
}

// GetMyOrders is the handler for GET /v1/orders.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	claims, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.Orders.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetOrder is the handler for GET /v1/orders/:id. Orders of other users
// are reported as missing.
func (h *Handlers) GetOrder(c *gin.Context) {
	claims, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if order.UserID != claims.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": orders.ErrOrderNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

//
// --- Order Handlers (Admin) ---
//

type statusInput struct {
	Status string `json:"status"`
}

// ListAllOrders is the handler for GET /v1/admin/orders.
func (h *Handlers) ListAllOrders(c *gin.Context) {
	list, err := h.Orders.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetOrderByID is the handler for GET /v1/admin/orders/:id.
func (h *Handlers) GetOrderByID(c *gin.Context) {
	order, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus is the handler for PUT /v1/admin/orders/:id/status.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input statusInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required in the request body"})
		return
	}

	// 2. --- Update ---
	order, err := h.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"order":   order,
	})
}

// GetOrderStatus is the handler for GET /v1/admin/orders/:id/status.
func (h *Handlers) GetOrderStatus(c *gin.Context) {
	id := c.Param("id")
	status, err := h.Orders.Status(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "status": status})
}

// DeleteOrder is the handler for DELETE /v1/admin/orders/:id.
func (h *Handlers) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Orders.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order " + id + " deleted successfully"})
}
