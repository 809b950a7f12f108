package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenDBRequiresDSN(t *testing.T) {
	_, err := OpenDB(context.Background(), "")
	require.ErrorContains(t, err, "DB_DSN_PRIMARY")
}

func TestOpenDBUnreachable(t *testing.T) {
	_, err := OpenDB(context.Background(), "user:pw@tcp(127.0.0.1:1)/shop?parseTime=true&timeout=200ms")
	require.ErrorContains(t, err, "database: ping")
}
