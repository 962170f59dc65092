package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/kubetide/console/pkg/api/middleware"
	"github.com/kubetide/console/pkg/audit"
	"github.com/kubetide/console/pkg/auth"
	"github.com/kubetide/console/pkg/kube"
	"github.com/kubetide/console/pkg/store"
)

const testSecret = "test-secret"

// staticResolver serves one fake clientset for every cluster name.
type staticResolver struct {
	client kubernetes.Interface
	err    error
}

func (r *staticResolver) Resolve(cluster string) (kubernetes.Interface, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.client, nil
}

// capturingHub records broadcast events instead of pushing them anywhere.
type capturingHub struct {
	events   []string
	payloads []interface{}
}

func (h *capturingHub) Broadcast(event string, payload interface{}) {
	h.events = append(h.events, event)
	h.payloads = append(h.payloads, payload)
}

// testEnv wires the handler stack against temp-dir stores and a fake
// clientset, mirroring the server's route layout.
type testEnv struct {
	app      *fiber.App
	accounts store.AccountStore
	creds    store.CredentialStore
	recorder *audit.Recorder
	hub      *capturingHub
	client   *fake.Clientset
}

func newTestEnv(t *testing.T, objects ...runtime.Object) *testEnv {
	t.Helper()
	dir := t.TempDir()

	auditStore := store.NewAuditFile(filepath.Join(dir, "audit.json"))
	recorder := audit.NewRecorder(auditStore, nil)
	accounts := store.NewAccountsFile(filepath.Join(dir, "accounts.json"), recorder)
	require.NoError(t, accounts.Initialize())
	creds := store.NewCredentialsFile(filepath.Join(dir, "clusters.json"), "")

	client := fake.NewSimpleClientset(objects...)
	resources := kube.NewService(&staticResolver{client: client}, kube.LabelConfig{
		Key: "load", OnlineValue: "online", DoneValue: "done",
	})
	evaluator := auth.NewEvaluator(accounts)
	hub := &capturingHub{}

	app := fiber.New()

	authHandler := NewAuthHandler(accounts, recorder, testSecret)
	app.Post("/api/login", authHandler.Login)

	api := app.Group("/api", middleware.JWTAuth(testSecret))
	api.Post("/logout", authHandler.Logout)
	api.Get("/current-user", authHandler.CurrentUser)

	clusterHandlers := NewClusterHandlers(creds, accounts, resources, recorder)
	api.Get("/clusters", clusterHandlers.ListVisible)

	admin := api.Group("/admin", middleware.RequirePermission(evaluator, "admin"))
	userHandlers := NewUserHandlers(accounts, recorder)
	admin.Get("/users", userHandlers.ListUsers)
	admin.Post("/users", userHandlers.CreateUser)
	admin.Get("/users/:username", userHandlers.GetUser)
	admin.Put("/users/:username", userHandlers.UpdateUser)
	admin.Delete("/users/:username", userHandlers.DeleteUser)
	admin.Get("/clusters", clusterHandlers.ListClusters)
	admin.Post("/clusters", clusterHandlers.CreateCluster)
	admin.Get("/clusters/:name", clusterHandlers.GetCluster)
	admin.Put("/clusters/:name", clusterHandlers.UpdateCluster)
	admin.Delete("/clusters/:name", clusterHandlers.DeleteCluster)
	auditHandlers := NewAuditHandlers(recorder)
	admin.Get("/logs", auditHandlers.ListLogs)

	readGuard := middleware.RequirePermission(evaluator, "read")
	writeGuard := middleware.RequirePermission(evaluator, "write")
	resourceHandlers := NewResourceHandlers(resources)
	api.Get("/:cluster/namespaces", readGuard, resourceHandlers.ListNamespaces)
	api.Get("/:cluster/:namespace/workloads", readGuard, resourceHandlers.ListWorkloads)
	api.Get("/:cluster/:namespace/workloads/:type/:name/yaml", readGuard, resourceHandlers.GetWorkloadYAML)
	api.Get("/:cluster/:namespace/pods", readGuard, resourceHandlers.ListPods)

	trafficHandlers := NewTrafficHandlers(resources, recorder, hub)
	api.Post("/:cluster/:namespace/pods/:pod/remove-load", writeGuard, trafficHandlers.RemoveLoad)
	api.Post("/:cluster/:namespace/pods/:pod/restore-traffic", writeGuard, trafficHandlers.RestoreTraffic)

	return &testEnv{
		app:      app,
		accounts: accounts,
		creds:    creds,
		recorder: recorder,
		hub:      hub,
		client:   client,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.request(t, "POST", "/api/login", "", fiber.Map{
		"username": username,
		"password": password,
	})
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
