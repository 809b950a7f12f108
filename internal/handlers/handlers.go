package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/01moynul/modelshop/internal/auth"
	"github.com/01moynul/modelshop/internal/catalog"
	"github.com/01moynul/modelshop/internal/logging"
	"github.com/01moynul/modelshop/internal/orders"
	"github.com/01moynul/modelshop/internal/store"
	"github.com/01moynul/modelshop/internal/users"
	"github.com/gin-gonic/gin"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Catalog    *catalog.Catalog
	Users      *users.Directory
	Orders     *orders.Service
	Issuer     *auth.Issuer
	Admin      auth.AdminCredentials
	PresignTTL time.Duration
	Log        *logging.Logger
}

// messages is implemented by errors that carry a list of user-facing
// validation messages.
type messages interface {
	Messages() []string
}

// respondError is the single place errors become HTTP responses.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var list messages
	switch {
	case errors.As(err, &list):
		c.JSON(http.StatusBadRequest, gin.H{"errors": list.Messages()})
	case errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		if h.Log != nil {
			h.Log.Error(logging.Fields{Step: c.FullPath(), Message: "request failed"}, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
