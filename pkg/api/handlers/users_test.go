package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubetide/console/pkg/models"
)

func TestUserCRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "POST", "/api/admin/users", token, fiber.Map{
		"username": "carol",
		"password": "carol-pw",
		"permissions": fiber.Map{
			"read":     true,
			"clusters": fiber.Map{"prod": true},
		},
	})
	require.Equal(t, 200, resp.StatusCode)

	resp = env.request(t, "GET", "/api/admin/users/carol", token, nil)
	require.Equal(t, 200, resp.StatusCode)
	account := decodeBody[models.Account](t, resp)
	assert.True(t, account.Permissions.Read)
	assert.False(t, account.Permissions.Write)
	assert.Empty(t, account.PasswordHash)

	resp = env.request(t, "PUT", "/api/admin/users/carol", token, fiber.Map{
		"permissions": fiber.Map{"write": true},
	})
	require.Equal(t, 200, resp.StatusCode)

	resp = env.request(t, "GET", "/api/admin/users/carol", token, nil)
	account = decodeBody[models.Account](t, resp)
	assert.True(t, account.Permissions.Read, "merge keeps untouched flags")
	assert.True(t, account.Permissions.Write)
	assert.Equal(t, map[string]bool{"prod": true}, account.Permissions.Clusters)

	resp = env.request(t, "DELETE", "/api/admin/users/carol", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	resp = env.request(t, "GET", "/api/admin/users/carol", token, nil)
	assert.Equal(t, 404, resp.StatusCode)

	// Every mutation left an audit entry naming the acting admin.
	for _, action := range []string{"add_user", "update_user", "delete_user"} {
		entries, err := env.recorder.List(action)
		require.NoError(t, err)
		require.Len(t, entries, 1, action)
		assert.Equal(t, "admin", entries[0].Username)
		assert.Equal(t, "user/carol", entries[0].Resource)
	}
}

func TestCreateUser_Conflict(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "POST", "/api/admin/users", token, fiber.Map{
		"username": "user",
		"password": "other-pw",
	})
	assert.Equal(t, 409, resp.StatusCode)

	body := decodeBody[map[string]interface{}](t, resp)
	assert.Equal(t, false, body["success"])
}

func TestCreateUser_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "POST", "/api/admin/users", token, fiber.Map{"username": "nopw"})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestUpdateUser_NotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "PUT", "/api/admin/users/ghost", token, fiber.Map{
		"permissions": fiber.Map{"read": true},
	})
	assert.Equal(t, 404, resp.StatusCode)
}

func TestUserEndpoints_RejectNonAdmins(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user", "user123")

	resp := env.request(t, "GET", "/api/admin/users", token, nil)
	assert.Equal(t, 403, resp.StatusCode)

	resp = env.request(t, "POST", "/api/admin/users", token, fiber.Map{
		"username": "evil",
		"password": "pw",
	})
	assert.Equal(t, 403, resp.StatusCode)
}
