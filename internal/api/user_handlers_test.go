package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tubescout/internal/auth"
	"github.com/JakeFAU/tubescout/internal/crawler"
)

func TestListUsers(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, env.admin, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody(t, rec)["users"].([]any)
	require.Len(t, users, 2)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, env.admin, http.MethodPost, "/api/users", createUserRequest{Username: "kim"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing required fields")

	rec = env.do(t, env.admin, http.MethodPost, "/api/users",
		createUserRequest{Username: "kim", Email: "kim@x", Password: "longenough", Role: "owner"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid role")

	rec = env.do(t, env.admin, http.MethodPost, "/api/users",
		createUserRequest{Username: "kim", Email: "kim@x", Password: "longenough"})
	require.Equal(t, http.StatusOK, rec.Code)
	id := int64(decodeBody(t, rec)["user_id"].(float64))

	u, err := env.store.UserByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, crawler.RoleUser, u.Role)
	assert.True(t, auth.VerifyPassword("longenough", u.PasswordHash))

	rec = env.do(t, env.admin, http.MethodPost, "/api/users",
		createUserRequest{Username: "kim", Email: "other@x", Password: "longenough"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, env.admin, http.MethodDelete, "/api/users/"+itoa(env.admin.ID), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cannot delete yourself")

	rec = env.do(t, env.admin, http.MethodDelete, "/api/users/9999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, env.admin, http.MethodDelete, "/api/users/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, env.admin, http.MethodDelete, "/api/users/"+itoa(env.user.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := env.store.UserByID(context.Background(), env.user.ID)
	assert.True(t, errors.Is(err, crawler.ErrNotFound))

	rec = env.do(t, env.user, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "deactivated sessions stop working")
}

func TestResetPassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	target := "/api/users/" + itoa(env.user.ID) + "/password"

	rec := env.do(t, env.admin, http.MethodPost, target, resetPasswordRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password required")

	rec = env.do(t, env.admin, http.MethodPost, target, resetPasswordRequest{Password: "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, env.admin, http.MethodPost, "/api/users/9999/password", resetPasswordRequest{Password: "another-one"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, env.admin, http.MethodPost, target, resetPasswordRequest{Password: "another-one"})
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := env.store.UserByID(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword("another-one", u.PasswordHash))
}
