package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/01moynul/modelshop/internal/catalog"
	"github.com/gin-gonic/gin"
)

const maxModelBytes = 50 << 20

// UploadProductModel handles POST /v1/admin/products/:id/model.
// It takes a multipart "file" and stores it as the product's model.
func (h *Handlers) UploadProductModel(c *gin.Context) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > maxModelBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Model file is too large"})
		return
	}

	// 2. Only binary glTF is accepted
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".glb" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Model file must be a .glb"})
		return
	}

	// 3. Read it
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, maxModelBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	// 4. Store it and point the product at it
	product, err := h.Catalog.AttachModel(c.Request.Context(), c.Param("id"), catalog.ModelFile{
		FileName: file.Filename,
		Body:     body,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":     product.ModelURL,
		"product": product,
	})
}
