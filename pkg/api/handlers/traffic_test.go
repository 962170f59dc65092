package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubetide/console/pkg/models"
)

func testPod(namespace, name string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: labels},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func TestRemoveLoad(t *testing.T) {
	env := newTestEnv(t, testPod("default", "web-abc", map[string]string{"load": "online"}))
	seedClusters(t, env, "prod")
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "POST", "/api/prod/default/pods/web-abc/remove-load", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	got, err := env.client.CoreV1().Pods("default").Get(context.Background(), "web-abc", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "done", got.Labels["load"])

	entries, err := env.recorder.List(models.AuditRemoveLoad)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin", entries[0].Username)
	assert.Equal(t, "pod/default/web-abc", entries[0].Resource)
	assert.Equal(t, "cluster=prod", entries[0].Details)

	require.Len(t, env.hub.events, 1)
	assert.Equal(t, models.AuditRemoveLoad, env.hub.events[0])
}

func TestRestoreTraffic(t *testing.T) {
	env := newTestEnv(t, testPod("default", "web-abc", map[string]string{"load": "done"}))
	seedClusters(t, env, "prod")
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "POST", "/api/prod/default/pods/web-abc/restore-traffic", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	got, err := env.client.CoreV1().Pods("default").Get(context.Background(), "web-abc", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "online", got.Labels["load"])

	entries, err := env.recorder.List(models.AuditRestoreTraffic)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTrafficEndpoints_RequireWrite(t *testing.T) {
	env := newTestEnv(t, testPod("default", "web-abc", nil))
	seedClusters(t, env, "prod")

	// The seeded viewer account holds read but not write.
	token := env.login(t, "user", "user123")
	resp := env.request(t, "POST", "/api/prod/default/pods/web-abc/remove-load", token, nil)
	assert.Equal(t, 403, resp.StatusCode)

	entries, err := env.recorder.List(models.AuditRemoveLoad)
	require.NoError(t, err)
	assert.Empty(t, entries, "denied operations leave no operation entry")
	assert.Empty(t, env.hub.events)
}

func TestTrafficEndpoints_UnknownPodDoesNotAudit(t *testing.T) {
	env := newTestEnv(t)
	seedClusters(t, env, "prod")
	token := env.login(t, "admin", "admin123")

	resp := env.request(t, "POST", "/api/prod/default/pods/ghost/remove-load", token, nil)
	assert.Equal(t, 500, resp.StatusCode)

	entries, err := env.recorder.List(models.AuditRemoveLoad)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, env.hub.events)
}
