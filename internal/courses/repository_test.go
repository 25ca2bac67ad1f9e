package courses

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapFKError(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "courses_teacher_id_fkey"}
	require.ErrorIs(t, mapFKError(fk), ErrBadReference)
	require.ErrorIs(t, mapFKError(fmt.Errorf("insert: %w", fk)), ErrBadReference)

	other := errors.New("connection reset")
	require.Equal(t, other, mapFKError(other))
}
