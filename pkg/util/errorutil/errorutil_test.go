package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing thing")

func TestMapperAppliesRules(t *testing.T) {
	mapper := NewMapper(Rule{Target: errMissing, Code: CodeNotFound, Status: http.StatusNotFound})

	de := mapper.ToDomainError(fmt.Errorf("%w: u42", errMissing))
	require.Equal(t, CodeNotFound, de.Code)
	require.Equal(t, http.StatusNotFound, de.HTTPStatus)
	require.Equal(t, "missing thing: u42", de.Message)
	require.ErrorIs(t, de, errMissing)
}

func TestMapperPassesDomainErrors(t *testing.T) {
	mapper := NewMapper()
	original := NewConflict("email taken", map[string]any{"field": "email"})

	de := mapper.ToDomainError(fmt.Errorf("signup: %w", original))
	require.Equal(t, CodeConflict, de.Code)
	require.Equal(t, "email", de.Details["field"])
}

func TestUnknownErrorsAreInternal(t *testing.T) {
	de := ToDomainError(errors.New("disk on fire"))
	require.Equal(t, CodeInternal, de.Code)
	require.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	require.Equal(t, "internal server error", de.Message)

	require.Nil(t, ToDomainError(nil))
	require.NoError(t, MapError(nil))
}
