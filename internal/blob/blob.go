// Package blob stores binary assets (3D model files) outside the entity
// store. Records only ever hold the reference returned by Put.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

//go:generate mockgen -destination=mock_blob/mock_blob.go -package=mock_blob . Store

// ModelContentType is the MIME type of uploaded GLB model files.
const ModelContentType = "model/gltf-binary"

// ErrForeignRef is returned when a reference was not issued by the store.
var ErrForeignRef = errors.New("blob: reference not owned by this store")

// Store puts and removes objects addressed by key and hands out references.
type Store interface {
	// Put stores body under key and returns the public reference (URL).
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	// Delete removes the object behind a reference returned by Put.
	Delete(ctx context.Context, ref string) error
	// Presign returns a time-limited download URL for a reference.
	Presign(ctx context.Context, ref string, ttl time.Duration) (string, error)
	// KeyOf returns the object key behind a reference issued by this
	// store, or ErrForeignRef.
	KeyOf(ref string) (string, error)
}

// ProductModelKey is the key of a product's model file.
func ProductModelKey(fileName string) string {
	return fmt.Sprintf("models/%s-%s", uuid.NewString(), safeName(fileName))
}

// OrderModelKey is the key of a custom model attached to an order. The
// random part keeps several uploads for one order apart.
func OrderModelKey(orderID, fileName string) string {
	return fmt.Sprintf("%s%s-%s", OrderAssetPrefix(orderID), uuid.NewString(), safeName(fileName))
}

// OrderAssetPrefix is the key prefix of every upload made for one order.
func OrderAssetPrefix(orderID string) string {
	return "orders/" + orderID + "/custom-models/"
}

// OwnedByOrder reports whether ref points at an object uploaded for
// orderID in s. External URLs and keys of other objects are never owned.
func OwnedByOrder(s Store, ref, orderID string) bool {
	if s == nil || orderID == "" {
		return false
	}
	key, err := s.KeyOf(ref)
	if err != nil || strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, OrderAssetPrefix(orderID))
}

// safeName slugs the base name and keeps the extension.
func safeName(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	base := slug.Make(strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))
	if base == "" {
		base = "model"
	}
	if ext == "" {
		ext = ".glb"
	}
	return base + ext
}
