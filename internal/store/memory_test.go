package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateAssignsID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	doc, err := m.Create(ctx, Products, Document{"name": "Teapot", "quantity": 3})
	require.NoError(t, err)

	id := doc.ID(Products)
	require.NotEmpty(t, id)

	got, err := m.Get(ctx, Products, id)
	require.NoError(t, err)
	assert.Equal(t, "Teapot", got["name"])
	assert.Equal(t, json.Number("3"), got["quantity"])
}

func TestMemoryCreateKeepsGivenID(t *testing.T) {
	m := NewMemory()
	doc, err := m.Create(context.Background(), Orders, Document{"order_id": "o-1"})
	require.NoError(t, err)
	assert.Equal(t, "o-1", doc.ID(Orders))
}

func TestMemoryGetMissing(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), Users, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, Users, Document{"user_id": "u1", "address": map[string]any{"city": "Leeds"}})
	require.NoError(t, err)

	got, err := m.Get(ctx, Users, "u1")
	require.NoError(t, err)
	got["address"].(map[string]any)["city"] = "York"

	again, err := m.Get(ctx, Users, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Leeds", again["address"].(map[string]any)["city"])
}

func TestMemoryFindByAttribute(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, d := range []Document{
		{"order_id": "a", "user_id": "u1"},
		{"order_id": "b", "user_id": "u2"},
		{"order_id": "c", "user_id": "u1"},
	} {
		_, err := m.Create(ctx, Orders, d)
		require.NoError(t, err)
	}

	found, err := m.FindByAttribute(ctx, Orders, "user_id", "u1")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].ID(Orders))
	assert.Equal(t, "c", found[1].ID(Orders))
}

func TestMemoryFindByNumericAttributeComparesExactly(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, Products, Document{"product_id": "p", "price": json.Number("10.50")})
	require.NoError(t, err)

	found, err := m.FindByAttribute(ctx, Products, "price", 10.5)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestMemoryUpdateNeverRewritesKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, Orders, Document{"order_id": "o1", "status": "pending"})
	require.NoError(t, err)

	got, err := m.Update(ctx, Orders, "o1", Document{"order_id": "other", "status": "shipped"})
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID(Orders))
	assert.Equal(t, "shipped", got["status"])

	_, err = m.Update(ctx, Orders, "missing", Document{"status": "shipped"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateIf(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, Products, Document{"product_id": "p", "quantity": 5})
	require.NoError(t, err)

	_, err = m.UpdateIf(ctx, Products, "p", Document{"quantity": 3}, Condition{Attr: "quantity", Equals: 4})
	assert.ErrorIs(t, err, ErrConditionFailed)

	got, err := m.UpdateIf(ctx, Products, "p", Document{"quantity": 3}, Condition{Attr: "quantity", Equals: 5})
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), got["quantity"])
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, Orders, Document{"order_id": "o1"})
	require.NoError(t, err)

	old, err := m.Delete(ctx, Orders, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", old.ID(Orders))

	_, err = m.Delete(ctx, Orders, "o1")
	assert.ErrorIs(t, err, ErrNotFound)
}
