package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/01moynul/modelshop/internal/catalog"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- Inputs ---

// CreateProductInput accepts the price as a JSON number or a string; both
// are parsed exactly.
type CreateProductInput struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Quantity    int              `json:"quantity" binding:"gte=0"`
	Category    string           `json:"category"`

	// Optional model file, base64 encoded.
	ModelFile string `json:"model_file"`
	FileName  string `json:"file_name"`
}

type UpdateProductInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity" binding:"omitempty,gte=0"`
	Category    *string          `json:"category"`
}

type StockInput struct {
	QuantityChange *int `json:"quantity_change" binding:"required"`
}

// CreateProduct handles POST /v1/admin/products.
func (h *Handlers) CreateProduct(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	np := catalog.NewProduct{
		Name:        input.Name,
		Description: input.Description,
		Price:       *input.Price,
		Quantity:    input.Quantity,
		Category:    input.Category,
	}

	// 2. --- Decode the model file, if any ---
	if input.ModelFile != "" {
		if input.FileName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file_name is required with model_file"})
			return
		}
		body, err := base64.StdEncoding.DecodeString(input.ModelFile)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "model_file must be base64 encoded"})
			return
		}
		np.Model = &catalog.ModelFile{FileName: input.FileName, Body: body}
	}

	// 3. --- Save ---
	product, err := h.Catalog.Create(c.Request.Context(), np)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// GetAllProducts handles GET /v1/products.
func (h *Handlers) GetAllProducts(c *gin.Context) {
	products, err := h.Catalog.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct handles GET /v1/products/:id. The identifier is an id or a
// name, chosen by ?type=id|name|auto.
func (h *Handlers) GetProduct(c *gin.Context) {
	ident := c.Param("id")
	mode := strings.ToLower(c.DefaultQuery("type", "auto"))
	if mode != "auto" && mode != "id" && mode != "name" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of: auto, id, name"})
		return
	}

	found, err := h.Catalog.Lookup(c.Request.Context(), ident, mode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if len(found) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Product with name '%s' not found", ident)})
		return
	}
	c.JSON(http.StatusOK, found[0])
}

// UpdateProduct handles PUT /v1/admin/products/:id.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.Catalog.Update(c.Request.Context(), c.Param("id"), catalog.ProductPatch{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Quantity:    input.Quantity,
		Category:    input.Category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /v1/admin/products/:id.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Catalog.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Product %s deleted successfully", id)})
}

// UpdateStock handles PATCH /v1/admin/products/:id/stock.
func (h *Handlers) UpdateStock(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input StockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity_change is required in the request body"})
		return
	}

	// 2. --- Apply ---
	id := c.Param("id")
	change, err := h.Catalog.AdjustStock(c.Request.Context(), id, *input.QuantityChange)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           fmt.Sprintf("Stock updated successfully for product %s", id),
		"previous_quantity": change.Previous,
		"quantity_added":    *input.QuantityChange,
		"new_quantity":      change.Product.Quantity,
		"product":           change.Product,
	})
}

// GetModelURL handles GET /v1/products/:id/model-url.
func (h *Handlers) GetModelURL(c *gin.Context) {
	ttl := h.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	url, err := h.Catalog.ModelDownloadURL(c.Request.Context(), c.Param("id"), ttl)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(ttl.Seconds()),
	})
}
