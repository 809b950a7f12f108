// Package orders creates orders and manages them afterwards.
//
// Creation is a pipeline of stages. The first four only read, so any
// failure there leaves no trace. The rest (stock decrements, asset
// uploads and the order write) run as a saga: by default without
// compensations, so a failure after the first decrement leaves the
// decrements in place.
package orders

import (
	"context"
	"time"

	"github.com/01moynul/modelshop/internal/blob"
	"github.com/01moynul/modelshop/internal/catalog"
	"github.com/01moynul/modelshop/internal/events"
	"github.com/01moynul/modelshop/internal/logging"
	"github.com/01moynul/modelshop/internal/metrics"
	"github.com/01moynul/modelshop/internal/models"
	"github.com/01moynul/modelshop/internal/store"
	"github.com/shopspring/decimal"
)

// Products is the slice of the catalog the pipeline uses.
type Products interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) (*catalog.StockChange, error)
	AdjustStockIf(ctx context.Context, id string, delta, expected int) (*catalog.StockChange, error)
}

// Users resolves the owner of an order.
type Users interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// StatusCache holds the latest status of recent orders.
type StatusCache interface {
	Set(ctx context.Context, orderID string, status models.OrderStatus) error
	Get(ctx context.Context, orderID string) (models.OrderStatus, bool, error)
	Delete(ctx context.Context, orderID string) error
}

// Idempotency remembers which order a client key created.
type Idempotency interface {
	Lookup(ctx context.Context, userID, key string) (string, bool, error)
	Remember(ctx context.Context, userID, key, orderID string) error
}

// StockMode selects how stage 4 decrements stock.
type StockMode string

const (
	// StockUnsafe reads then writes with no guard. Concurrent orders can
	// oversell.
	StockUnsafe StockMode = "unsafe"
	// StockOptimistic writes only if the quantity is still the one read,
	// re-reading and retrying on conflict.
	StockOptimistic StockMode = "optimistic"
)

// Options is the explicit configuration of the pipeline.
type Options struct {
	// TaxRate defaults to DefaultTaxRate when not positive.
	TaxRate      decimal.Decimal
	StockMode    StockMode
	StockRetries int
	// Compensate re-credits stock and deletes uploaded assets when a later
	// saga step fails.
	Compensate bool
}

// DefaultTaxRate is 8.5%.
var DefaultTaxRate = decimal.RequireFromString("0.085")

// Deps are the collaborators of a Service. Blobs, Events, Status,
// Idempotency and Metrics are optional.
type Deps struct {
	Store       store.Store
	Products    Products
	Users       Users
	Blobs       blob.Store
	Events      events.Publisher
	Status      StatusCache
	Idempotency Idempotency
	Metrics     *metrics.Metrics
	Log         *logging.Logger
}

type Service struct {
	store       store.Store
	products    Products
	users       Users
	blobs       blob.Store
	events      events.Publisher
	status      StatusCache
	idempotency Idempotency
	metrics     *metrics.Metrics
	log         *logging.Logger
	opts        Options
	now         func() time.Time
	newID       func() string
}

func NewService(d Deps, opts Options) *Service {
	if !opts.TaxRate.IsPositive() {
		opts.TaxRate = DefaultTaxRate
	}
	if opts.StockMode == "" {
		opts.StockMode = StockUnsafe
	}
	if opts.StockRetries < 0 {
		opts.StockRetries = 0
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return &Service{
		store:       d.Store,
		products:    d.Products,
		users:       d.Users,
		blobs:       d.Blobs,
		events:      d.Events,
		status:      d.Status,
		idempotency: d.Idempotency,
		metrics:     d.Metrics,
		log:         d.Log,
		opts:        opts,
		now:         time.Now,
		newID:       newOrderID,
	}
}
