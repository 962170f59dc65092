package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kubetide/console/pkg/api/middleware"
	"github.com/kubetide/console/pkg/audit"
	"github.com/kubetide/console/pkg/models"
	"github.com/kubetide/console/pkg/store"
)

// UserHandlers implements the admin user management endpoints.
type UserHandlers struct {
	accounts store.AccountStore
	audit    *audit.Recorder
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(accounts store.AccountStore, recorder *audit.Recorder) *UserHandlers {
	return &UserHandlers{accounts: accounts, audit: recorder}
}

// ListUsers returns all accounts, hashes stripped.
// GET /api/admin/users
func (h *UserHandlers) ListUsers(c *fiber.Ctx) error {
	accounts, err := h.accounts.List()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(accounts)
}

// GetUser returns one account, hash stripped.
// GET /api/admin/users/:username
func (h *UserHandlers) GetUser(c *fiber.Ctx) error {
	account, err := h.accounts.Get(c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(account.Sanitized())
}

// CreateUser adds an account.
// POST /api/admin/users
func (h *UserHandlers) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Username    string             `json:"username"`
		Password    string             `json:"password"`
		Permissions models.Permissions `json:"permissions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing required fields"})
	}

	if err := h.accounts.Create(req.Username, req.Password, req.Permissions); err != nil {
		return respondError(c, err)
	}
	if err := h.audit.Operation(
		middleware.GetUsername(c),
		"add_user",
		"user/"+req.Username,
		fmt.Sprintf("permissions=%+v", req.Permissions),
	); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User created"})
}

// UpdateUser applies a password and/or permission update.
// PUT /api/admin/users/:username
func (h *UserHandlers) UpdateUser(c *fiber.Ctx) error {
	username := c.Params("username")

	var req struct {
		Password    *string                  `json:"password"`
		Permissions *models.PermissionsPatch `json:"permissions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}

	if err := h.accounts.Update(username, req.Password, req.Permissions); err != nil {
		return respondError(c, err)
	}

	details := []string{}
	if req.Password != nil {
		details = append(details, "password_updated")
	}
	if req.Permissions != nil {
		details = append(details, fmt.Sprintf("permissions=%+v", *req.Permissions))
	}
	if err := h.audit.Operation(
		middleware.GetUsername(c),
		"update_user",
		"user/"+username,
		strings.Join(details, ", "),
	); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User updated"})
}

// DeleteUser removes an account.
// DELETE /api/admin/users/:username
func (h *UserHandlers) DeleteUser(c *fiber.Ctx) error {
	username := c.Params("username")

	if err := h.accounts.Delete(username); err != nil {
		return respondError(c, err)
	}
	if err := h.audit.Operation(middleware.GetUsername(c), "delete_user", "user/"+username, ""); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User deleted"})
}
