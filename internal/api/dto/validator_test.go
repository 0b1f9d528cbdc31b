package dto

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

func TestValidate_AggregatesFieldErrors(t *testing.T) {
	err := NewValidator().Validate(&RegisterRequest{Username: "al", Email: "not-an-email"})
	require.Error(t, err)

	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t,
		"username: size must be at least 3, email: must be a well-formed email address, password: must not be blank",
		de.Message,
	)
	assert.Equal(t, "must not be blank", de.Details["password"])
}

func TestValidate_RoleEntries(t *testing.T) {
	err := NewValidator().Validate(&RegisterRequest{
		Username: "alice",
		Email:    "a@x.com",
		Password: "long-enough",
		Roles:    []string{"ADMIN", ""},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roles[1]: must not be blank")
}

func TestValidate_Valid(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(&LoginRequest{Username: "alice", Password: "x"}))
	assert.NoError(t, v.Validate(&RegisterRequest{Username: "alice", Email: "a@x.com", Password: "long-enough"}))
}

func TestValidate_PasswordLimitCountsBytes(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&RegisterRequest{Username: "alice", Email: "a@x.com", Password: strings.Repeat("é", 40)})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "size must be at most 72 bytes", de.Details["password"])

	assert.Error(t, v.Validate(&LoginRequest{Username: "alice", Password: strings.Repeat("é", 37)}))
	assert.NoError(t, v.Validate(&LoginRequest{Username: "alice", Password: strings.Repeat("é", 36)}))
}
