// Package middleware holds the auth and permission guards composed in
// front of the API handlers.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims are the JWT claims carried by a console session token.
type UserClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTAuth validates the bearer token and stores the username in the request
// locals. WebSocket connections cannot set headers from the browser, so /ws
// paths may pass the token as the _token query parameter instead.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""

		authHeader := c.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if strings.Contains(c.Path(), "/ws") {
			tokenString = c.Query("_token")
		}

		if tokenString == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing authorization")
		}

		claims, err := ValidateJWT(secret, tokenString)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals("username", claims.Username)
		return c.Next()
	}
}

// ValidateJWT parses and validates a session token.
func ValidateJWT(secret, tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// GetUsername returns the authenticated username from the request locals.
func GetUsername(c *fiber.Ctx) string {
	if username, ok := c.Locals("username").(string); ok {
		return username
	}
	return ""
}

// PermissionEvaluator decides whether a user holds a permission, optionally
// scoped to one cluster.
type PermissionEvaluator interface {
	Evaluate(username, permission, cluster string) bool
}

// RequirePermission guards a route with a permission check. When the route
// carries a :cluster parameter the check is scoped to that cluster and the
// denial message says so.
func RequirePermission(eval PermissionEvaluator, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := GetUsername(c)
		cluster := c.Params("cluster")

		if !eval.Evaluate(username, permission, cluster) {
			message := "Insufficient permissions"
			if cluster != "" {
				message = "No access to this cluster, contact an administrator"
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": message,
			})
		}
		return c.Next()
	}
}
