package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/modelshop/internal/blob"
	"github.com/01moynul/modelshop/internal/catalog"
	"github.com/01moynul/modelshop/internal/events"
	"github.com/01moynul/modelshop/internal/logging"
	"github.com/01moynul/modelshop/internal/models"
	"github.com/01moynul/modelshop/internal/saga"
	"github.com/01moynul/modelshop/internal/store"
	"github.com/01moynul/modelshop/internal/users"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newOrderID() string { return uuid.NewString() }

// Create runs the order pipeline. With a non-empty idempotencyKey a replay
// returns the order created the first time and replayed is true.
func (s *Service) Create(ctx context.Context, req CreateRequest, idempotencyKey string) (order *models.Order, replayed bool, err error) {
	if idempotencyKey != "" && s.idempotency != nil {
		id, ok, err := s.idempotency.Lookup(ctx, req.UserID, idempotencyKey)
		if err != nil {
			s.log.Error(logging.Fields{UserID: req.UserID, Step: "idempotency", Message: "lookup failed, creating anyway"}, err)
		} else if ok {
			o, err := s.Get(ctx, id)
			if err == nil {
				return o, true, nil
			}
			if !errors.Is(err, ErrOrderNotFound) {
				return nil, false, err
			}
		}
	}

	order, err = s.create(ctx, req)
	if err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Remember(ctx, req.UserID, idempotencyKey, order.OrderID); err != nil {
			s.log.Error(logging.Fields{OrderID: order.OrderID, Step: "idempotency"}, err)
		}
	}
	return order, false, nil
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	start := time.Now()
	orderID := s.newID()
	f := logging.Fields{OrderID: orderID, UserID: req.UserID}

	// 1. --- Structural validation ---
	items, verr := req.validate()
	if verr != nil {
		return nil, s.reject(f, verr)
	}

	// 2. --- Address resolution ---
	address, err := s.resolveAddress(ctx, req)
	if err != nil {
		return nil, s.reject(f, err)
	}

	// 3. --- Pricing ---
	priced, err := s.price(ctx, items, req.IncludeTax)
	if err != nil {
		return nil, s.reject(f, err)
	}

	// 4. --- Inventory check ---
	seen, err := s.checkStock(ctx, items)
	if err != nil {
		return nil, s.reject(f, err)
	}

	order := &models.Order{
		OrderID:             orderID,
		UserID:              req.UserID,
		Items:               priced.lines,
		ShippingAddress:     address,
		TotalAmount:         priced.total,
		CustomizationAmount: priced.customization,
		TaxAmount:           priced.tax,
		Status:              models.StatusPending,
		CreatedAt:           s.now().UTC(),
	}

	// 4. (cont.) --- Decrement, then 5. assets and 6. commit, as one saga ---
	run := &saga.Saga{Name: "create-order", OrderID: orderID, Log: s.log}
	for i, item := range items {
		run.Steps = append(run.Steps, s.decrementStep(item, seen[i]))
	}
	run.Steps = append(run.Steps, s.assetStep(order, req.assets()), s.commitStep(order))

	if err := run.Run(ctx); err != nil {
		return nil, s.reject(f, err)
	}

	s.metrics.OrderCreated()
	f.DurationMS = logging.Since(start)
	f.Message = "order created"
	s.log.Info(f)
	s.afterWrite(ctx, order.OrderID, events.OrderCreated, order, func() error {
		return s.cacheStatus(ctx, order.OrderID, order.Status)
	})
	return order, nil
}

// reject logs and counts a failed creation, then hands err back.
func (s *Service) reject(f logging.Fields, err error) error {
	stage := stageOf(err)
	s.metrics.OrderRejected(string(stage))
	f.Step = string(stage)
	s.log.Error(f, err)
	return err
}

func stageOf(err error) Stage {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Stage
	}
	var serr *saga.StepError
	if errors.As(err, &serr) {
		switch serr.Step {
		case stepAssets:
			return StageAssets
		case stepCommit:
			return StageCommit
		default:
			return StageInventory
		}
	}
	return "infrastructure"
}

func (s *Service) resolveAddress(ctx context.Context, req CreateRequest) (models.Address, error) {
	if req.ShippingAddress != nil {
		return *req.ShippingAddress, nil
	}
	u, err := s.users.GetByID(ctx, req.UserID)
	if errors.Is(err, users.ErrUserNotFound) || errors.Is(err, store.ErrNotFound) {
		return models.Address{}, failed(StageAddress, addressMissing)
	}
	if err != nil {
		return models.Address{}, fmt.Errorf("resolve address: %w", err)
	}
	if u.Address == nil {
		return models.Address{}, failed(StageAddress, addressMissing)
	}
	// Copy, the order must not follow later profile edits.
	return *u.Address, nil
}

type pricing struct {
	lines         []models.LineItem
	total         decimal.Decimal
	customization *decimal.Decimal
	tax           *decimal.Decimal
}

// price is stage 3. Every item is priced even after an error so the caller
// sees all problems; any error fails the stage and no totals are kept.
func (s *Service) price(ctx context.Context, items []requestedItem, includeTax bool) (*pricing, error) {
	var errs []string
	lines := make([]models.LineItem, 0, len(items))
	subtotal := decimal.Zero
	customization := decimal.Zero

	for _, item := range items {
		p, err := s.products.GetProduct(ctx, item.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, store.ErrNotFound) {
			errs = append(errs, productNotFound(item.ProductID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("price item %s: %w", item.ProductID, err)
		}
		if p.Price == nil {
			errs = append(errs, fmt.Sprintf("Price not found for product %s", p.DisplayName()))
			continue
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		line := models.LineItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: *p.Price}

		// An unparsable adjustment is reported and counts as zero.
		if item.adjustmentInvalid {
			errs = append(errs, fmt.Sprintf("Invalid customization price for product %s", p.DisplayName()))
		} else if item.Adjustment != "" {
			adj, err := models.ParseMoney(item.Adjustment)
			if err != nil {
				errs = append(errs, fmt.Sprintf("Invalid customization price for product %s", p.DisplayName()))
			} else {
				line.PriceAdjustment = models.MoneyPtr(adj)
				customization = customization.Add(adj.Mul(qty))
			}
		}

		line.Subtotal = line.UnitPrice().Mul(qty)
		subtotal = subtotal.Add(line.Subtotal)
		lines = append(lines, line)
	}

	if len(errs) > 0 {
		return nil, failed(StagePricing, errs...)
	}

	out := &pricing{lines: lines, total: subtotal}
	if customization.IsPositive() {
		out.customization = models.MoneyPtr(customization)
	}
	if includeTax {
		tax := subtotal.Mul(s.opts.TaxRate)
		out.tax = models.MoneyPtr(tax)
		out.total = subtotal.Add(tax)
	}
	if !out.total.IsPositive() {
		return nil, failed(StagePricing, "Order total must be greater than zero")
	}
	return out, nil
}

// checkStock is the verify pass of stage 4. Lines naming the same product
// draw on one stock figure, so their quantities add up. It returns, per
// line, the quantity expected right before that line's decrement, which
// optimistic decrements use as the condition.
func (s *Service) checkStock(ctx context.Context, items []requestedItem) ([]int, error) {
	var errs []string
	seen := make([]int, len(items))
	left := make(map[string]int, len(items))
	names := make(map[string]string, len(items))
	failedIDs := make(map[string]bool)

	for i, item := range items {
		id := item.ProductID
		if failedIDs[id] {
			continue
		}
		if _, ok := left[id]; !ok {
			p, err := s.products.GetProduct(ctx, id)
			if errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, store.ErrNotFound) {
				errs = append(errs, productNotFound(id))
				failedIDs[id] = true
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("check stock %s: %w", id, err)
			}
			left[id] = p.Quantity
			names[id] = p.DisplayName()
		}
		if left[id] < item.Quantity {
			errs = append(errs, notEnoughStock(names[id]))
			failedIDs[id] = true
			continue
		}
		seen[i] = left[id]
		left[id] -= item.Quantity
	}
	if len(errs) > 0 {
		return nil, failed(StageInventory, errs...)
	}
	return seen, nil
}

const (
	stepAssets = "attach-assets"
	stepCommit = "commit-order"
)

// decrementStep is the mutate pass of stage 4 for one item.
func (s *Service) decrementStep(item requestedItem, seen int) saga.Step {
	step := saga.Step{
		Name: "decrement:" + item.ProductID,
		Do: func(ctx context.Context) error {
			if s.opts.StockMode == StockOptimistic {
				return s.decrementIf(ctx, item, seen)
			}
			_, err := s.products.AdjustStock(ctx, item.ProductID, -item.Quantity)
			return err
		},
	}
	if s.opts.Compensate {
		step.Compensate = func(ctx context.Context) error {
			_, err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity)
			return err
		}
	}
	return step
}

func (s *Service) decrementIf(ctx context.Context, item requestedItem, expected int) error {
	for attempt := 0; ; attempt++ {
		_, err := s.products.AdjustStockIf(ctx, item.ProductID, -item.Quantity, expected)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConditionFailed) {
			return err
		}
		s.metrics.StockConflict()
		if attempt >= s.opts.StockRetries {
			return fmt.Errorf("%w: product %s", ErrStockConflict, item.ProductID)
		}

		p, err := s.products.GetProduct(ctx, item.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			return failed(StageInventory, productNotFound(item.ProductID))
		}
		if err != nil {
			return err
		}
		if p.Quantity < item.Quantity {
			return failed(StageInventory, notEnoughStock(p.DisplayName()))
		}
		expected = p.Quantity
	}
}

// assetStep is stage 5. Uploads go under a key scoped by the order id;
// URLs are attached as given. A failed upload fails the order at once.
func (s *Service) assetStep(order *models.Order, inputs []AssetInput) saga.Step {
	var uploaded []string
	cleanup := func(ctx context.Context) error {
		var errs []error
		for _, ref := range uploaded {
			if err := s.blobs.Delete(ctx, ref); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	step := saga.Step{
		Name: stepAssets,
		Do: func(ctx context.Context) error {
			refs := make([]string, 0, len(inputs))
			for _, in := range inputs {
				if len(in.Data) == 0 {
					refs = append(refs, in.URL)
					continue
				}
				if s.blobs == nil {
					return errors.New("custom model uploads are not configured")
				}
				ref, err := s.blobs.Put(ctx, blob.OrderModelKey(order.OrderID, in.FileName), in.Data, blob.ModelContentType)
				if err != nil {
					// The saga only compensates completed steps, so this
					// step cleans up its own earlier uploads.
					if s.opts.Compensate {
						if cerr := cleanup(ctx); cerr != nil {
							s.log.Error(logging.Fields{OrderID: order.OrderID, Step: stepAssets, Message: "partial uploads not removed"}, cerr)
						}
					}
					return fmt.Errorf("upload custom model: %w", err)
				}
				uploaded = append(uploaded, ref)
				refs = append(refs, ref)
			}
			order.Assets = models.NewAssets(refs...)
			return nil
		},
	}
	if s.opts.Compensate {
		step.Compensate = cleanup
	}
	return step
}

// commitStep is stage 6, the only write of the order record.
func (s *Service) commitStep(order *models.Order) saga.Step {
	return saga.Step{
		Name: stepCommit,
		Do: func(ctx context.Context) error {
			doc, err := store.Encode(order)
			if err != nil {
				return err
			}
			if _, err := s.store.Create(ctx, store.Orders, doc); err != nil {
				return fmt.Errorf("commit order: %w", err)
			}
			return nil
		},
	}
}
