package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/01moynul/modelshop/internal/blob"
	"github.com/01moynul/modelshop/internal/blob/mock_blob"
	"github.com/01moynul/modelshop/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newCatalog(t *testing.T) (*Catalog, *store.Memory, *blob.Memory) {
	t.Helper()
	st := store.NewMemory()
	blobs := blob.NewMemory()
	return New(st, blobs, Options{DefaultCategory: "figures"}, nil), st, blobs
}

func seed(t *testing.T, c *Catalog, name, price string, qty int) string {
	t.Helper()
	p, err := c.Create(context.Background(), NewProduct{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	})
	require.NoError(t, err)
	return p.ProductID
}

func TestCreateAppliesDefaultCategory(t *testing.T) {
	c, _, _ := newCatalog(t)
	p, err := c.Create(context.Background(), NewProduct{Name: "Dragon", Price: decimal.RequireFromString("19.99"), Quantity: 4})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ProductID)
	assert.Equal(t, "figures", p.Category)
	require.NotNil(t, p.Price)
	assert.Equal(t, "19.99", p.Price.String())
}

func TestCreateRejectsNegativeValues(t *testing.T) {
	c, _, _ := newCatalog(t)
	_, err := c.Create(context.Background(), NewProduct{Name: "x", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = c.Create(context.Background(), NewProduct{Name: "x", Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestCreateUploadsModel(t *testing.T) {
	c, _, blobs := newCatalog(t)
	p, err := c.Create(context.Background(), NewProduct{
		Name:  "Ship",
		Price: decimal.NewFromInt(5),
		Model: &ModelFile{FileName: "Space Ship.glb", Body: []byte("glTF")},
	})
	require.NoError(t, err)
	assert.Contains(t, p.ModelURL, "mem://models/")
	assert.Contains(t, p.ModelURL, "space-ship.glb")
	assert.Equal(t, 1, blobs.Len())
}

func TestCreateFailsWhenUploadFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	blobs := mock_blob.NewMockStore(ctrl)
	blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), blob.ModelContentType).Return("", errors.New("s3 down"))

	st := store.NewMemory()
	c := New(st, blobs, Options{}, nil)
	_, err := c.Create(context.Background(), NewProduct{Name: "Ship", Model: &ModelFile{FileName: "a.glb", Body: []byte{1}}})
	require.Error(t, err)

	all, err := st.List(context.Background(), store.Products)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetProductNotFound(t *testing.T) {
	c, _, _ := newCatalog(t)
	_, err := c.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdjustStockClampsAtZero(t *testing.T) {
	c, _, _ := newCatalog(t)
	id := seed(t, c, "Robot", "10.00", 3)

	change, err := c.AdjustStock(context.Background(), id, -2)
	require.NoError(t, err)
	assert.Equal(t, 3, change.Previous)
	assert.Equal(t, 1, change.Product.Quantity)

	change, err = c.AdjustStock(context.Background(), id, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, change.Product.Quantity)

	change, err = c.AdjustStock(context.Background(), id, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, change.Product.Quantity)
}

func TestAdjustStockIf(t *testing.T) {
	c, _, _ := newCatalog(t)
	id := seed(t, c, "Robot", "10.00", 3)

	_, err := c.AdjustStockIf(context.Background(), id, -1, 2)
	assert.ErrorIs(t, err, store.ErrConditionFailed)

	change, err := c.AdjustStockIf(context.Background(), id, -1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, change.Product.Quantity)

	_, err = c.AdjustStockIf(context.Background(), "missing", -1, 3)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestLookup(t *testing.T) {
	c, _, _ := newCatalog(t)
	id := seed(t, c, "Red Dragon", "10.00", 3)
	seed(t, c, "Blue Dragon", "12.00", 3)

	got, err := c.Lookup(context.Background(), "Red Dragon", "auto")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ProductID)

	got, err = c.Lookup(context.Background(), id, "auto")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Red Dragon", got[0].Name)

	got, err = c.Lookup(context.Background(), "nothing", "name")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateAndDelete(t *testing.T) {
	c, _, blobs := newCatalog(t)
	p, err := c.Create(context.Background(), NewProduct{
		Name:  "Ship",
		Price: decimal.NewFromInt(5),
		Model: &ModelFile{FileName: "ship.glb", Body: []byte("glTF")},
	})
	require.NoError(t, err)

	price := decimal.RequireFromString("7.25")
	updated, err := c.Update(context.Background(), p.ProductID, ProductPatch{Price: &price})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, "Ship", updated.Name)

	_, err = c.Update(context.Background(), "missing", ProductPatch{Price: &price})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = c.Delete(context.Background(), p.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 0, blobs.Len())

	_, err = c.Delete(context.Background(), p.ProductID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestModelDownloadURL(t *testing.T) {
	c, _, _ := newCatalog(t)
	p, err := c.Create(context.Background(), NewProduct{
		Name:  "Ship",
		Model: &ModelFile{FileName: "ship.glb", Body: []byte("glTF")},
	})
	require.NoError(t, err)

	url, err := c.ModelDownloadURL(context.Background(), p.ProductID, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "expires=60")

	bare := seed(t, c, "Plain", "1", 1)
	_, err = c.ModelDownloadURL(context.Background(), bare, time.Minute)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAttachModelReplacesOldFile(t *testing.T) {
	c, _, blobs := newCatalog(t)
	p, err := c.Create(context.Background(), NewProduct{
		Name:  "Ship",
		Model: &ModelFile{FileName: "v1.glb", Body: []byte("one")},
	})
	require.NoError(t, err)

	updated, err := c.AttachModel(context.Background(), p.ProductID, ModelFile{FileName: "v2.glb", Body: []byte("two")})
	require.NoError(t, err)
	assert.NotEqual(t, p.ModelURL, updated.ModelURL)
	assert.Contains(t, updated.ModelURL, "v2.glb")
	assert.Equal(t, 1, blobs.Len())

	_, err = c.AttachModel(context.Background(), "missing", ModelFile{FileName: "x.glb", Body: []byte("x")})
	assert.ErrorIs(t, err, ErrProductNotFound)
}
