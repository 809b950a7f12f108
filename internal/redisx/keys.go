package redisx

import (
	"fmt"
	"time"
)

const (
	// Idempotent order creation: idem:order:create:{user_id}:{key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Order status cache: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
)

func idemKey(userID, key string) string { return fmt.Sprintf(KeyIdemOrderCreate, userID, key) }

func statusKey(orderID string) string { return fmt.Sprintf(KeyOrderStatus, orderID) }
