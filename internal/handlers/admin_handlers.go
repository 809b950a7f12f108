package handlers

import (
	"net/http"

	"github.com/01moynul/modelshop/internal/models"
	"github.com/gin-gonic/gin"
)

type AdminLoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin handles POST /v1/admin/login. Besides confirming the
// credentials it issues an admin bearer token, so clients need not resend
// the password on every call.
func (h *Handlers) AdminLogin(c *gin.Context) {
	var input AdminLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	if !h.Admin.Check(input.Username, input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Issuer.GenerateToken(h.Admin.ID, "", "admin", true)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"admin_id": h.Admin.ID,
		"token":    token,
	})
}

// ListUsers handles GET /v1/admin/users.
func (h *Handlers) ListUsers(c *gin.Context) {
	list, err := h.Users.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]models.PublicUser, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	c.JSON(http.StatusOK, out)
}
