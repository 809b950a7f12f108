// Package catalog reads and mutates product records.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/modelshop/internal/blob"
	"github.com/01moynul/modelshop/internal/logging"
	"github.com/01moynul/modelshop/internal/models"
	"github.com/01moynul/modelshop/internal/store"
	"github.com/shopspring/decimal"
)

// ErrProductNotFound wraps store.ErrNotFound for product lookups.
var ErrProductNotFound = fmt.Errorf("product %w", store.ErrNotFound)

// ErrInvalidProduct is returned for create/update input that breaks a
// product invariant.
var ErrInvalidProduct = errors.New("invalid product")

// Options are the explicit defaults the catalog applies.
type Options struct {
	DefaultCategory string
}

// Catalog is the product accessor. It never caches: every call consults
// the entity store.
type Catalog struct {
	store store.Store
	blobs blob.Store
	opts  Options
	log   *logging.Logger
	now   func() time.Time
}

// New builds a Catalog. blobs may be nil when model uploads are disabled.
func New(st store.Store, blobs blob.Store, opts Options, log *logging.Logger) *Catalog {
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = "general"
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Catalog{store: st, blobs: blobs, opts: opts, log: log, now: time.Now}
}

// GetProduct is a single lookup by id.
func (c *Catalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	doc, err := c.store.Get(ctx, store.Products, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return decodeProduct(doc)
}

// FindByName returns every product whose name matches exactly.
func (c *Catalog) FindByName(ctx context.Context, name string) ([]models.Product, error) {
	docs, err := c.store.FindByAttribute(ctx, store.Products, "name", name)
	if err != nil {
		return nil, fmt.Errorf("find products by name: %w", err)
	}
	return decodeProducts(docs)
}

// Lookup resolves an identifier as an id or a name. mode is "id", "name"
// or "auto"; auto treats anything that is not purely alphanumeric (with
// dashes) as a name.
func (c *Catalog) Lookup(ctx context.Context, ident, mode string) ([]models.Product, error) {
	if mode == "" || mode == "auto" {
		mode = "id"
		if !looksLikeID(ident) {
			mode = "name"
		}
	}
	if mode == "name" {
		return c.FindByName(ctx, ident)
	}
	p, err := c.GetProduct(ctx, ident)
	if err != nil {
		return nil, err
	}
	return []models.Product{*p}, nil
}

func looksLikeID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '-' {
			return false
		}
	}
	return true
}

func (c *Catalog) List(ctx context.Context) ([]models.Product, error) {
	docs, err := c.store.List(ctx, store.Products)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return decodeProducts(docs)
}

// StockChange reports an applied adjustment.
type StockChange struct {
	Previous int
	Product  *models.Product
}

// AdjustStock reads the current quantity, clamps current+delta at zero and
// writes it back. The read and the write are separate store calls, so
// concurrent adjustments of one product race.
func (c *Catalog) AdjustStock(ctx context.Context, id string, delta int) (*StockChange, error) {
	p, err := c.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	next := max(0, p.Quantity+delta)
	doc, err := c.store.Update(ctx, store.Products, id, c.stockFields(next))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("adjust stock %s: %w", id, err)
	}
	updated, err := decodeProduct(doc)
	if err != nil {
		return nil, err
	}
	return &StockChange{Previous: p.Quantity, Product: updated}, nil
}

// AdjustStockIf applies delta only while the stored quantity still equals
// expected. A concurrent writer makes it fail with store.ErrConditionFailed.
func (c *Catalog) AdjustStockIf(ctx context.Context, id string, delta, expected int) (*StockChange, error) {
	next := max(0, expected+delta)
	doc, err := c.store.UpdateIf(ctx, store.Products, id, c.stockFields(next),
		store.Condition{Attr: "quantity", Equals: expected})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrProductNotFound
	case errors.Is(err, store.ErrConditionFailed):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("adjust stock %s: %w", id, err)
	}
	updated, err := decodeProduct(doc)
	if err != nil {
		return nil, err
	}
	return &StockChange{Previous: expected, Product: updated}, nil
}

func (c *Catalog) stockFields(quantity int) store.Document {
	return store.Document{"quantity": quantity, "updated_at": c.now().UTC()}
}

// ModelFile is a model upload attached to a product.
type ModelFile struct {
	FileName string
	Body     []byte
}

// NewProduct is the create input.
type NewProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
	ModelURL    string
	Model       *ModelFile
}

// Create stores a product, uploading its model file first when present.
func (c *Catalog) Create(ctx context.Context, in NewProduct) (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}

	now := c.now().UTC()
	p := models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       models.MoneyPtr(in.Price),
		Quantity:    in.Quantity,
		ModelURL:    in.ModelURL,
		Category:    in.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Category == "" {
		p.Category = c.opts.DefaultCategory
	}

	if in.Model != nil && len(in.Model.Body) > 0 {
		if c.blobs == nil {
			return nil, errors.New("model uploads are not configured")
		}
		ref, err := c.blobs.Put(ctx, blob.ProductModelKey(in.Model.FileName), in.Model.Body, blob.ModelContentType)
		if err != nil {
			return nil, fmt.Errorf("upload product model: %w", err)
		}
		p.ModelURL = ref
	}

	doc, err := store.Encode(p)
	if err != nil {
		return nil, err
	}
	delete(doc, "product_id")
	saved, err := c.store.Create(ctx, store.Products, doc)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return decodeProduct(saved)
}

// ProductPatch holds the fields an update may set. Nil means unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
	Category    *string
}

func (c *Catalog) Update(ctx context.Context, id string, patch ProductPatch) (*models.Product, error) {
	fields := store.Document{"updated_at": c.now().UTC()}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
		}
		fields["name"] = *patch.Name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
		}
		fields["price"] = *patch.Price
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
		}
		fields["quantity"] = *patch.Quantity
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}

	doc, err := c.store.Update(ctx, store.Products, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	return decodeProduct(doc)
}

// Delete removes a product. Its model file is removed best-effort.
func (c *Catalog) Delete(ctx context.Context, id string) (*models.Product, error) {
	doc, err := c.store.Delete(ctx, store.Products, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete product %s: %w", id, err)
	}
	p, err := decodeProduct(doc)
	if err != nil {
		return nil, err
	}
	if p.ModelURL != "" && c.blobs != nil {
		if err := c.blobs.Delete(ctx, p.ModelURL); err != nil {
			c.log.Error(logging.Fields{ProductID: id, Step: "delete-model", Message: "model file not removed"}, err)
		}
	}
	return p, nil
}

// AttachModel uploads a model file and points the product at it. The
// previous file, if any, is removed best-effort.
func (c *Catalog) AttachModel(ctx context.Context, id string, file ModelFile) (*models.Product, error) {
	if c.blobs == nil {
		return nil, errors.New("model uploads are not configured")
	}
	p, err := c.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	ref, err := c.blobs.Put(ctx, blob.ProductModelKey(file.FileName), file.Body, blob.ModelContentType)
	if err != nil {
		return nil, fmt.Errorf("upload product model: %w", err)
	}
	doc, err := c.store.Update(ctx, store.Products, id, store.Document{"model_url": ref, "updated_at": c.now().UTC()})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attach model to %s: %w", id, err)
	}
	if p.ModelURL != "" && p.ModelURL != ref {
		if err := c.blobs.Delete(ctx, p.ModelURL); err != nil {
			c.log.Error(logging.Fields{ProductID: id, Step: "replace-model", Message: "old model file not removed"}, err)
		}
	}
	return decodeProduct(doc)
}

// ModelDownloadURL presigns the product's model file.
func (c *Catalog) ModelDownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	p, err := c.GetProduct(ctx, id)
	if err != nil {
		return "", err
	}
	if p.ModelURL == "" {
		return "", fmt.Errorf("product %s has no model: %w", id, store.ErrNotFound)
	}
	if c.blobs == nil {
		return p.ModelURL, nil
	}
	return c.blobs.Presign(ctx, p.ModelURL, ttl)
}

func decodeProduct(doc store.Document) (*models.Product, error) {
	var p models.Product
	if err := store.Decode(doc, &p); err != nil {
		return nil, fmt.Errorf("product record: %w", err)
	}
	return &p, nil
}

func decodeProducts(docs []store.Document) ([]models.Product, error) {
	out := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		p, err := decodeProduct(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
