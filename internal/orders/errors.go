package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/modelshop/internal/store"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", store.ErrNotFound)
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrStockConflict means optimistic stock writes kept losing races
	// until the retry budget ran out.
	ErrStockConflict = errors.New("stock changed concurrently, retries exhausted")
)

// Stage names a pipeline stage in errors, logs and metrics.
type Stage string

const (
	StageValidation Stage = "validation"
	StageAddress    Stage = "address"
	StagePricing    Stage = "pricing"
	StageInventory  Stage = "inventory"
	StageAssets     Stage = "assets"
	StageCommit     Stage = "commit"
)

// ValidationError carries every user-correctable problem a stage found.
// Nothing was written when a stage returns it, with one exception: an
// optimistic stock retry that finds the product sold out, which happens
// after earlier items may already have been decremented.
type ValidationError struct {
	Stage  Stage
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order %s failed: %s", e.Stage, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Messages() []string { return e.Errors }

func failed(stage Stage, msgs ...string) *ValidationError {
	return &ValidationError{Stage: stage, Errors: msgs}
}

const addressMissing = "User address not found. Please update your profile or provide a shipping address."

func productNotFound(id string) string {
	return fmt.Sprintf("Product with ID %s not found", id)
}

func notEnoughStock(name string) string {
	return fmt.Sprintf("Not enough stock for product %s", name)
}
