package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kubetide/console/pkg/api/middleware"
	"github.com/kubetide/console/pkg/audit"
	"github.com/kubetide/console/pkg/store"
)

const sessionTokenTTL = 24 * time.Hour

// AuthHandler handles login, logout and the current-user lookup.
type AuthHandler struct {
	accounts  store.AccountStore
	audit     *audit.Recorder
	jwtSecret string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts store.AccountStore, recorder *audit.Recorder, jwtSecret string) *AuthHandler {
	return &AuthHandler{accounts: accounts, audit: recorder, jwtSecret: jwtSecret}
}

// Login verifies the password and issues a session token. The verification
// itself records the login_success/login_failed audit entry.
// POST /api/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing required fields"})
	}

	ok, err := h.accounts.VerifyPassword(req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Invalid username or password",
		})
	}

	token, err := h.generateToken(req.Username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"token":   token,
	})
}

// Logout records the logout; the stateless session token simply expires.
// POST /api/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	username := middleware.GetUsername(c)
	if err := h.audit.Logout(username); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Logout successful"})
}

// CurrentUser returns the authenticated account with the hash stripped.
// GET /api/current-user
func (h *AuthHandler) CurrentUser(c *fiber.Ctx) error {
	username := middleware.GetUsername(c)
	account, err := h.accounts.Get(username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(account.Sanitized())
}

func (h *AuthHandler) generateToken(username string) (string, error) {
	claims := middleware.UserClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
