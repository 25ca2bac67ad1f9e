package registrations

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapDuplicateError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "registrations_active_uniq"}
	require.ErrorIs(t, mapDuplicateError(dup), ErrDuplicate)

	// Wrapped errors must still be recognised.
	require.ErrorIs(t, mapDuplicateError(fmt.Errorf("insert: %w", dup)), ErrDuplicate)

	// Other violation codes pass through untouched.
	fk := &pgconn.PgError{Code: "23503"}
	require.NotErrorIs(t, mapDuplicateError(fk), ErrDuplicate)
}
