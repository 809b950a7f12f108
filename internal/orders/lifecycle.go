package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/modelshop/internal/blob"
	"github.com/01moynul/modelshop/internal/events"
	"github.com/01moynul/modelshop/internal/logging"
	"github.com/01moynul/modelshop/internal/models"
	"github.com/01moynul/modelshop/internal/store"
)

// Get returns one order as it was committed. Prices are never recomputed.
func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	doc, err := s.store.Get(ctx, store.Orders, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return decodeOrder(doc)
}

// ListByUser returns the raw records of a user's orders, without binary
// values.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]store.Document, error) {
	docs, err := s.store.FindByAttribute(ctx, store.Orders, "user_id", userID)
	if err != nil {
		return nil, fmt.Errorf("list orders of %s: %w", userID, err)
	}
	return stripAll(docs), nil
}

// ListAll returns every order record, without binary values.
func (s *Service) ListAll(ctx context.Context) ([]store.Document, error) {
	docs, err := s.store.List(ctx, store.Orders)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return stripAll(docs), nil
}

func stripAll(docs []store.Document) []store.Document {
	out := make([]store.Document, len(docs))
	for i, d := range docs {
		out[i] = store.StripBinary(d)
	}
	return out
}

// ParseStatus accepts only the closed set of lifecycle statuses.
func ParseStatus(raw string) (models.OrderStatus, error) {
	st := models.OrderStatus(raw)
	if st.Valid() {
		return st, nil
	}
	names := make([]string, len(models.OrderStatuses))
	for i, s := range models.OrderStatuses {
		names[i] = string(s)
	}
	return "", fmt.Errorf("%w. Must be one of: %s", ErrInvalidStatus, strings.Join(names, ", "))
}

// UpdateStatus validates the status before touching the store, then
// rewrites that single field.
func (s *Service) UpdateStatus(ctx context.Context, orderID, raw string) (*models.Order, error) {
	// 1. --- Validate ---
	status, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}

	// 2. --- Existence ---
	current, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// 3. --- Write ---
	doc, err := s.store.Update(ctx, store.Orders, orderID, store.Document{"status": string(status)})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update status of %s: %w", orderID, err)
	}
	updated, err := decodeOrder(doc)
	if err != nil {
		return nil, err
	}

	s.log.Info(logging.Fields{OrderID: orderID, Step: "update-status", Message: string(current.Status) + " -> " + string(status)})
	s.afterWrite(ctx, orderID, events.OrderStatusChanged,
		events.StatusChangedPayload{OrderID: orderID, From: string(current.Status), To: string(status)},
		func() error { return s.cacheStatus(ctx, orderID, status) })
	return updated, nil
}

// Delete removes an order. Assets the pipeline uploaded for it are removed
// best-effort: a failure there is logged and the deletion still succeeds.
// References the customer supplied are left alone.
func (s *Service) Delete(ctx context.Context, orderID string) (*models.Order, error) {
	doc, err := s.store.Delete(ctx, store.Orders, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete order %s: %w", orderID, err)
	}
	order, err := decodeOrder(doc)
	if err != nil {
		return nil, err
	}

	refs := order.Assets.Refs()
	if s.blobs != nil {
		for _, ref := range refs {
			if !blob.OwnedByOrder(s.blobs, ref, orderID) {
				continue
			}
			if err := s.blobs.Delete(ctx, ref); err != nil {
				s.log.Error(logging.Fields{OrderID: orderID, Step: "delete-asset", Message: "custom model not removed"}, err)
			}
		}
	}

	s.afterWrite(ctx, orderID, events.OrderDeleted,
		events.DeletedPayload{OrderID: orderID, UserID: order.UserID, Assets: refs},
		func() error {
			if s.status == nil {
				return nil
			}
			return s.status.Delete(ctx, orderID)
		})
	return order, nil
}

// Status reads through the status cache.
func (s *Service) Status(ctx context.Context, orderID string) (models.OrderStatus, error) {
	if s.status != nil {
		st, ok, err := s.status.Get(ctx, orderID)
		if err != nil {
			s.log.Error(logging.Fields{OrderID: orderID, Step: "status-cache"}, err)
		} else if ok {
			return st, nil
		}
	}
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if err := s.cacheStatus(ctx, orderID, o.Status); err != nil {
		s.log.Error(logging.Fields{OrderID: orderID, Step: "status-cache"}, err)
	}
	return o.Status, nil
}

func (s *Service) cacheStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	if s.status == nil {
		return nil
	}
	return s.status.Set(ctx, orderID, status)
}

// afterWrite runs the side effects of a committed write. They never fail
// the operation.
func (s *Service) afterWrite(ctx context.Context, orderID, eventType string, payload any, cache func() error) {
	if err := cache(); err != nil {
		s.log.Error(logging.Fields{OrderID: orderID, Step: "status-cache"}, err)
	}
	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.events.Publish(pubCtx, eventType, orderID, payload); err != nil {
		s.log.Error(logging.Fields{OrderID: orderID, Step: "publish", Message: eventType}, err)
	}
}

func decodeOrder(doc store.Document) (*models.Order, error) {
	var o models.Order
	if err := store.Decode(doc, &o); err != nil {
		return nil, fmt.Errorf("order record: %w", err)
	}
	return &o, nil
}
