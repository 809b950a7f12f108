// Package store is the entity persistence layer: schemaless documents kept in
// one collection per entity type, addressed by a string id.
//
// No call spans collections and no backend offers a transaction across calls;
// each write is visible to every reader as soon as it returns.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("store: item not found")

	// ErrConditionFailed is returned by UpdateIf when the stored value of the
	// condition attribute differs from the expected one.
	ErrConditionFailed = errors.New("store: condition failed")
)

// Collection names an entity collection.
type Collection string

const (
	Users    Collection = "users"
	Products Collection = "products"
	Orders   Collection = "orders"
)

// IDField is the attribute holding the document key.
func (c Collection) IDField() string {
	switch c {
	case Users:
		return "user_id"
	case Products:
		return "product_id"
	case Orders:
		return "order_id"
	default:
		return "id"
	}
}

// Document is a JSON-shaped record. Numbers are json.Number, nested objects
// are map[string]any and lists are []any. Binary values are []byte.
type Document map[string]any

// ID returns the key of doc within coll, or "" when absent.
func (d Document) ID(coll Collection) string {
	id, _ := d[coll.IDField()].(string)
	return id
}

// Condition guards a write: Attr must currently equal Equals.
type Condition struct {
	Attr   string
	Equals any
}

// Store is the capability every backend provides.
type Store interface {
	// Create writes doc, assigning a generated id when the key is missing,
	// and returns the stored document.
	Create(ctx context.Context, coll Collection, doc Document) (Document, error)
	Get(ctx context.Context, coll Collection, id string) (Document, error)
	List(ctx context.Context, coll Collection) ([]Document, error)
	FindByAttribute(ctx context.Context, coll Collection, attr string, value any) ([]Document, error)
	// Update sets the given top-level fields and returns the new document.
	// The key field is never rewritten.
	Update(ctx context.Context, coll Collection, id string, fields Document) (Document, error)
	UpdateIf(ctx context.Context, coll Collection, id string, fields Document, cond Condition) (Document, error)
	// Delete removes the document and returns what was stored.
	Delete(ctx context.Context, coll Collection, id string) (Document, error)
}
