package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kubetide/console/pkg/api/middleware"
	"github.com/kubetide/console/pkg/audit"
	"github.com/kubetide/console/pkg/auth"
	"github.com/kubetide/console/pkg/kube"
	"github.com/kubetide/console/pkg/models"
	"github.com/kubetide/console/pkg/store"
)

// ClusterHandlers implements the cluster listing and the admin credential
// CRUD endpoints.
type ClusterHandlers struct {
	credentials store.CredentialStore
	accounts    store.AccountStore
	resources   *kube.Service
	audit       *audit.Recorder
}

// NewClusterHandlers creates a new cluster handlers instance.
func NewClusterHandlers(credentials store.CredentialStore, accounts store.AccountStore, resources *kube.Service, recorder *audit.Recorder) *ClusterHandlers {
	return &ClusterHandlers{
		credentials: credentials,
		accounts:    accounts,
		resources:   resources,
		audit:       recorder,
	}
}

// ListVisible returns the clusters the caller may see, annotated with the
// server version. Admins and accounts with no cluster restriction see all;
// everyone else is filtered by membership. This listing is intentionally
// looser than scoped permission checks, which never treat an empty
// membership list as all-access.
// GET /api/clusters
func (h *ClusterHandlers) ListVisible(c *fiber.Ctx) error {
	account, err := h.accounts.Get(middleware.GetUsername(c))
	if err != nil {
		return respondError(c, err)
	}
	creds, err := h.credentials.List()
	if err != nil {
		return respondError(c, err)
	}

	seesAll := auth.SeesAllClusters(*account)
	visible := []models.ClusterSummary{}
	for _, cred := range creds {
		if !seesAll && !account.Permissions.HasCluster(cred.Name) {
			continue
		}
		version, err := h.resources.ServerVersion(cred.Name)
		if err != nil {
			// An unreachable cluster still shows up in the listing.
			log.Printf("[api] failed to read version of cluster %s: %v", cred.Name, err)
		}
		visible = append(visible, models.ClusterSummary{
			Name:        cred.Name,
			DisplayName: cred.DisplayName,
			Version:     version,
		})
	}
	return c.JSON(visible)
}

// ListClusters returns all credential records, blobs included.
// GET /api/admin/clusters
func (h *ClusterHandlers) ListClusters(c *fiber.Ctx) error {
	creds, err := h.credentials.List()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(creds)
}

// GetCluster returns one credential record.
// GET /api/admin/clusters/:name
func (h *ClusterHandlers) GetCluster(c *fiber.Ctx) error {
	cred, err := h.credentials.Get(c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cred)
}

// CreateCluster adds a credential record.
// POST /api/admin/clusters
func (h *ClusterHandlers) CreateCluster(c *fiber.Ctx) error {
	var req models.ClusterCredential
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}
	if req.Name == "" || req.DisplayName == "" || req.KubeconfigContent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing required fields"})
	}

	if err := h.credentials.Create(req); err != nil {
		return respondError(c, err)
	}
	if err := h.audit.Operation(
		middleware.GetUsername(c),
		"add_cluster",
		"cluster/"+req.Name,
		"display_name="+req.DisplayName,
	); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Cluster created"})
}

// UpdateCluster applies a partial credential update.
// PUT /api/admin/clusters/:name
func (h *ClusterHandlers) UpdateCluster(c *fiber.Ctx) error {
	name := c.Params("name")

	var req struct {
		DisplayName       *string `json:"display_name"`
		KubeconfigContent *string `json:"kubeconfig_content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}
	if req.DisplayName == nil && req.KubeconfigContent == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "At least one field is required"})
	}

	if err := h.credentials.Update(name, req.DisplayName, req.KubeconfigContent); err != nil {
		return respondError(c, err)
	}

	details := []string{}
	if req.DisplayName != nil {
		details = append(details, "display_name="+*req.DisplayName)
	}
	if req.KubeconfigContent != nil {
		details = append(details, "kubeconfig_updated")
	}
	if err := h.audit.Operation(
		middleware.GetUsername(c),
		"update_cluster",
		"cluster/"+name,
		strings.Join(details, ", "),
	); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Cluster updated"})
}

// DeleteCluster removes a credential record.
// DELETE /api/admin/clusters/:name
func (h *ClusterHandlers) DeleteCluster(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := h.credentials.Delete(name); err != nil {
		return respondError(c, err)
	}
	if err := h.audit.Operation(middleware.GetUsername(c), "delete_cluster", "cluster/"+name, ""); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Cluster deleted"})
}
