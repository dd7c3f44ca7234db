package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	orig := NewForbidden("staff role required")
	mapped := ToDomainError(fmt.Errorf("handler: %w", orig))
	require.Equal(t, "FORBIDDEN", mapped.Code)
	require.Equal(t, http.StatusForbidden, mapped.HTTPStatus)
}

func TestToDomainErrorMapsRowMissToNotFound(t *testing.T) {
	mapped := ToDomainError(fmt.Errorf("load schedule: %w", pgx.ErrNoRows))
	require.Equal(t, "NOT_FOUND", mapped.Code)
	require.Equal(t, http.StatusNotFound, mapped.HTTPStatus)
	require.True(t, errors.Is(mapped, pgx.ErrNoRows))
}

func TestToDomainErrorWrapsUnknownAsInternal(t *testing.T) {
	cause := errors.New("connection refused")
	mapped := ToDomainError(cause)
	require.Equal(t, "INTERNAL_ERROR", mapped.Code)
	require.Equal(t, http.StatusInternalServerError, mapped.HTTPStatus)
	require.True(t, errors.Is(mapped, cause))
}

func TestToDomainErrorNil(t *testing.T) {
	require.Nil(t, ToDomainError(nil))
}
