package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kubetide/console/pkg/kube"
)

// ResourceHandlers implements the per-cluster resource browsing endpoints.
// Every handler resolves its own cluster client through the resource
// service; failures from the remote cluster propagate as-is.
type ResourceHandlers struct {
	resources *kube.Service
}

// NewResourceHandlers creates a new resource handlers instance.
func NewResourceHandlers(resources *kube.Service) *ResourceHandlers {
	return &ResourceHandlers{resources: resources}
}

// ListNamespaces returns the namespace names of one cluster.
// GET /api/:cluster/namespaces
func (h *ResourceHandlers) ListNamespaces(c *fiber.Ctx) error {
	namespaces, err := h.resources.Namespaces(c.Context(), c.Params("cluster"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(namespaces)
}

// ListNodes returns the node rows of one cluster.
// GET /api/:cluster/nodes
func (h *ResourceHandlers) ListNodes(c *fiber.Ctx) error {
	nodes, err := h.resources.Nodes(c.Context(), c.Params("cluster"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(nodes)
}

// ListWorkloads returns workload rows, optionally filtered by ?type=.
// GET /api/:cluster/:namespace/workloads
func (h *ResourceHandlers) ListWorkloads(c *fiber.Ctx) error {
	workloads, err := h.resources.Workloads(c.Context(), c.Params("cluster"), c.Params("namespace"), c.Query("type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(workloads)
}

// ListPods returns all pod rows of one namespace.
// GET /api/:cluster/:namespace/pods
func (h *ResourceHandlers) ListPods(c *fiber.Ctx) error {
	pods, err := h.resources.Pods(c.Context(), c.Params("cluster"), c.Params("namespace"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pods)
}

// ListWorkloadPods returns the pod rows selected by one workload.
// GET /api/:cluster/:namespace/:workloadType/:name/pods
func (h *ResourceHandlers) ListWorkloadPods(c *fiber.Ctx) error {
	pods, err := h.resources.PodsForWorkload(
		c.Context(),
		c.Params("cluster"),
		c.Params("namespace"),
		c.Params("workloadType"),
		c.Params("name"),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pods)
}

// GetWorkloadYAML returns one workload as YAML.
// GET /api/:cluster/:namespace/workloads/:type/:name/yaml
func (h *ResourceHandlers) GetWorkloadYAML(c *fiber.Ctx) error {
	content, err := h.resources.WorkloadYAML(c.Context(), c.Params("cluster"), c.Params("namespace"), c.Params("type"), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return sendYAML(c, content)
}

// ListServices returns service and ingress rows, optionally filtered by ?type=.
// GET /api/:cluster/:namespace/services
func (h *ResourceHandlers) ListServices(c *fiber.Ctx) error {
	services, err := h.resources.Services(c.Context(), c.Params("cluster"), c.Params("namespace"), c.Query("type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services)
}

// GetServiceYAML returns one service or ingress as YAML.
// GET /api/:cluster/:namespace/services/:type/:name/yaml
func (h *ResourceHandlers) GetServiceYAML(c *fiber.Ctx) error {
	content, err := h.resources.ServiceYAML(c.Context(), c.Params("cluster"), c.Params("namespace"), c.Params("type"), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return sendYAML(c, content)
}

// ListConfigs returns configmap and secret rows, optionally filtered by ?type=.
// GET /api/:cluster/:namespace/configs
func (h *ResourceHandlers) ListConfigs(c *fiber.Ctx) error {
	configs, err := h.resources.Configs(c.Context(), c.Params("cluster"), c.Params("namespace"), c.Query("type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(configs)
}

// GetConfigYAML returns one configmap or secret as YAML.
// GET /api/:cluster/:namespace/configs/:type/:name/yaml
func (h *ResourceHandlers) GetConfigYAML(c *fiber.Ctx) error {
	content, err := h.resources.ConfigYAML(c.Context(), c.Params("cluster"), c.Params("namespace"), c.Params("type"), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return sendYAML(c, content)
}

// ListStorage returns PVC and PV rows, optionally filtered by ?type=.
// GET /api/:cluster/:namespace/storage
func (h *ResourceHandlers) ListStorage(c *fiber.Ctx) error {
	storage, err := h.resources.Storage(c.Context(), c.Params("cluster"), c.Params("namespace"), c.Query("type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(storage)
}

// GetStorageYAML returns one PVC or PV as YAML.
// GET /api/:cluster/:namespace/storage/:type/:name/yaml
func (h *ResourceHandlers) GetStorageYAML(c *fiber.Ctx) error {
	content, err := h.resources.StorageYAML(c.Context(), c.Params("cluster"), c.Params("namespace"), c.Params("type"), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return sendYAML(c, content)
}

func sendYAML(c *fiber.Ctx, content string) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(content)
}
