package handlers

import (
	"net/http"

	"github.com/01moynul/modelshop/internal/middleware"
	"github.com/01moynul/modelshop/internal/models"
	"github.com/01moynul/modelshop/internal/users"
	"github.com/gin-gonic/gin"
)

// --- User Registration ---

// RegisterUserInput is separate from models.User because we never accept
// an id or a hash from the client. Format rules live in the directory so
// every problem is reported at once.
type RegisterUserInput struct {
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Password    string          `json:"password"`
	PhoneNumber string          `json:"phone_number"`
	Address     *models.Address `json:"address"`
}

// Register handles POST /v1/register.
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Create User ---
	user, err := h.Users.Register(c.Request.Context(), users.Registration{
		Email:       input.Email,
		Name:        input.Name,
		Password:    input.Password,
		PhoneNumber: input.PhoneNumber,
		Address:     input.Address,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user.Public(),
	})
}

// --- User Login ---

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/login.
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	// 2. --- Check Credentials ---
	user, err := h.Users.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Issue Token ---
	token, err := h.Issuer.GenerateToken(user.UserID, user.Email, user.Name, false)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user.Public(),
	})
}

// GetMe handles GET /v1/users/me.
func (h *Handlers) GetMe(c *gin.Context) {
	claims, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	user, err := h.Users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// UpdateMyAddress handles PUT /v1/users/me/address.
func (h *Handlers) UpdateMyAddress(c *gin.Context) {
	claims, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// 1. --- Bind & Validate JSON ---
	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Save ---
	user, err := h.Users.SetAddress(c.Request.Context(), claims.UserID, addr)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Address updated",
		"user":    user.Public(),
	})
}
