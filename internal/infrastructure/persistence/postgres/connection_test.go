package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_ClosedRejectsCalls(t *testing.T) {
	conn := &Connection{closed: true}
	ctx := context.Background()

	assert.ErrorIs(t, conn.Ping(ctx), ErrConnectionClosed)

	_, err := conn.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrConnectionClosed)

	_, err = conn.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrConnectionClosed)

	var n int
	assert.ErrorIs(t, conn.QueryRow(ctx, "SELECT 1").Scan(&n), ErrConnectionClosed)

	called := false
	err = conn.WithTx(ctx, func(pgx.Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.False(t, called)

	// Closing twice must not touch the nil pool.
	require.NotPanics(t, conn.Close)
}

func TestErrorHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))

	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(nil))
}
