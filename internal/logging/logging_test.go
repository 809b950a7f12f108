package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWith("orders", log.New(&buf, "", 0))

	l.Error(Fields{OrderID: "o1", Step: "commit-order"}, errors.New("boom"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "orders", got["service"])
	assert.Equal(t, "o1", got["order_id"])
	assert.Equal(t, "commit-order", got["step"])
	assert.Equal(t, "error", got["status"])
	assert.Equal(t, "boom", got["error"])
	assert.NotContains(t, got, "user_id")
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Info(Fields{Message: "x"}) })
}
