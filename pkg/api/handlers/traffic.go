package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/kubetide/console/pkg/audit"
	"github.com/kubetide/console/pkg/api/middleware"
	"github.com/kubetide/console/pkg/kube"
	"github.com/kubetide/console/pkg/models"
)

// Broadcaster pushes a notification to all connected websocket clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// TrafficHandlers implements the pod load-label toggle endpoints.
type TrafficHandlers struct {
	resources *kube.Service
	audit     *audit.Recorder
	hub       Broadcaster
}

// NewTrafficHandlers creates a new traffic handlers instance.
func NewTrafficHandlers(resources *kube.Service, recorder *audit.Recorder, hub Broadcaster) *TrafficHandlers {
	return &TrafficHandlers{resources: resources, audit: recorder, hub: hub}
}

// RemoveLoad marks a pod as drained so load balancers skip it.
// POST /api/:cluster/:namespace/pods/:pod/remove-load
func (h *TrafficHandlers) RemoveLoad(c *fiber.Ctx) error {
	return h.toggle(c, models.AuditRemoveLoad, h.resources.RemoveLoad, "Load removed from pod")
}

// RestoreTraffic marks a pod as serving again.
// POST /api/:cluster/:namespace/pods/:pod/restore-traffic
func (h *TrafficHandlers) RestoreTraffic(c *fiber.Ctx) error {
	return h.toggle(c, models.AuditRestoreTraffic, h.resources.RestoreTraffic, "Traffic restored to pod")
}

type patchFunc func(ctx context.Context, cluster, namespace, pod string) error

func (h *TrafficHandlers) toggle(c *fiber.Ctx, action string, patch patchFunc, message string) error {
	cluster := c.Params("cluster")
	namespace := c.Params("namespace")
	pod := c.Params("pod")

	if err := patch(c.Context(), cluster, namespace, pod); err != nil {
		return respondError(c, err)
	}

	username := middleware.GetUsername(c)
	resource := fmt.Sprintf("pod/%s/%s", namespace, pod)
	if err := h.audit.Operation(username, action, resource, "cluster="+cluster); err != nil {
		return respondError(c, err)
	}

	if h.hub != nil {
		h.hub.Broadcast(action, fiber.Map{
			"cluster":   cluster,
			"namespace": namespace,
			"pod":       pod,
			"user":      username,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}
