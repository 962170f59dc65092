package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubetide/console/pkg/models"
)

func seedClusters(t *testing.T, env *testEnv, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, env.creds.Create(models.ClusterCredential{
			Name:              name,
			DisplayName:       "Cluster " + name,
			KubeconfigContent: "blob-" + name,
		}))
	}
}

func TestListVisible_AdminSeesAll(t *testing.T) {
	env := newTestEnv(t)
	seedClusters(t, env, "east", "west")
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "GET", "/api/clusters", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	clusters := decodeBody[[]models.ClusterSummary](t, resp)
	require.Len(t, clusters, 2)
	assert.Equal(t, "east", clusters[0].Name)
	assert.Equal(t, "Cluster east", clusters[0].DisplayName)
}

func TestListVisible_EmptyMembershipSeesAll(t *testing.T) {
	env := newTestEnv(t)
	seedClusters(t, env, "east", "west")

	// The seeded read-only account has no cluster restriction.
	token := env.login(t, "user", "user123")
	resp := env.request(t, "GET", "/api/clusters", token, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Len(t, decodeBody[[]models.ClusterSummary](t, resp), 2)
}

func TestListVisible_ScopedUserIsFiltered(t *testing.T) {
	env := newTestEnv(t)
	seedClusters(t, env, "east", "west")
	require.NoError(t, env.accounts.Create("scoped", "pw", models.Permissions{
		Read:     true,
		Clusters: map[string]bool{"west": true},
	}))

	token := env.login(t, "scoped", "pw")
	resp := env.request(t, "GET", "/api/clusters", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	clusters := decodeBody[[]models.ClusterSummary](t, resp)
	require.Len(t, clusters, 1)
	assert.Equal(t, "west", clusters[0].Name)
}

func TestClusterCRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "POST", "/api/admin/clusters", token, fiber.Map{
		"name":               "prod",
		"display_name":       "Production",
		"kubeconfig_content": "blob",
	})
	require.Equal(t, 200, resp.StatusCode)

	resp = env.request(t, "GET", "/api/admin/clusters/prod", token, nil)
	require.Equal(t, 200, resp.StatusCode)
	cred := decodeBody[models.ClusterCredential](t, resp)
	assert.Equal(t, "Production", cred.DisplayName)
	assert.Equal(t, "blob", cred.KubeconfigContent)

	resp = env.request(t, "PUT", "/api/admin/clusters/prod", token, fiber.Map{
		"display_name": "Production EU",
	})
	require.Equal(t, 200, resp.StatusCode)

	resp = env.request(t, "GET", "/api/admin/clusters/prod", token, nil)
	cred = decodeBody[models.ClusterCredential](t, resp)
	assert.Equal(t, "Production EU", cred.DisplayName)
	assert.Equal(t, "blob", cred.KubeconfigContent, "partial update keeps the blob")

	resp = env.request(t, "DELETE", "/api/admin/clusters/prod", token, nil)
	require.Equal(t, 200, resp.StatusCode)
	resp = env.request(t, "GET", "/api/admin/clusters/prod", token, nil)
	assert.Equal(t, 404, resp.StatusCode)

	for _, action := range []string{"add_cluster", "update_cluster", "delete_cluster"} {
		entries, err := env.recorder.List(action)
		require.NoError(t, err)
		require.Len(t, entries, 1, action)
		assert.Equal(t, "cluster/prod", entries[0].Resource)
	}
}

func TestCreateCluster_Conflict(t *testing.T) {
	env := newTestEnv(t)
	seedClusters(t, env, "prod")
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "POST", "/api/admin/clusters", token, fiber.Map{
		"name":               "prod",
		"display_name":       "Dup",
		"kubeconfig_content": "blob",
	})
	assert.Equal(t, 409, resp.StatusCode)
}

func TestUpdateCluster_RequiresAField(t *testing.T) {
	env := newTestEnv(t)
	seedClusters(t, env, "prod")
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "PUT", "/api/admin/clusters/prod", token, fiber.Map{})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestClusterAdminEndpoints_RejectNonAdmins(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user", "user123")

	resp := env.request(t, "GET", "/api/admin/clusters", token, nil)
	assert.Equal(t, 403, resp.StatusCode)
}
