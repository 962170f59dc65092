package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestToken(secret, username string, expiresAt time.Time) (string, error) {
	claims := UserClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func TestJWTAuth(t *testing.T) {
	app := fiber.New()
	handler := JWTAuth("test-secret")

	app.Get("/protected", handler, func(c *fiber.Ctx) error {
		return c.SendString(GetUsername(c))
	})

	t.Run("Valid Token", func(t *testing.T) {
		token, _ := generateTestToken("test-secret", "admin", time.Now().Add(time.Hour))
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req, 5000)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("Missing Header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		resp, _ := app.Test(req, 5000)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("Invalid Format", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "InvalidFormat")
		resp, _ := app.Test(req, 5000)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("Invalid Signature", func(t *testing.T) {
		token, _ := generateTestToken("WRONG-SECRET", "admin", time.Now().Add(time.Hour))
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token, _ := generateTestToken("test-secret", "admin", time.Now().Add(-1*time.Hour))
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		assert.Equal(t, 401, resp.StatusCode)
	})
}

func TestJWTAuth_QueryTokenOnlyForWebSocket(t *testing.T) {
	app := fiber.New()
	handler := JWTAuth("test-secret")
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }

	app.Get("/ws", handler, ok)
	app.Get("/api/data", handler, ok)

	token, err := generateTestToken("test-secret", "admin", time.Now().Add(time.Hour))
	require.NoError(t, err)

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws?_token="+token, nil), 5000)
	assert.Equal(t, 200, resp.StatusCode)

	// Query tokens are rejected outside /ws paths.
	resp, _ = app.Test(httptest.NewRequest("GET", "/api/data?_token="+token, nil), 5000)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestValidateJWT(t *testing.T) {
	token, err := generateTestToken("secret", "carol", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := ValidateJWT("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "carol", claims.Username)
	assert.NotEmpty(t, claims.ID)

	_, err = ValidateJWT("other-secret", token)
	assert.Error(t, err)
}

func TestValidateJWT_RejectsUnsignedTokens(t *testing.T) {
	claims := UserClaims{Username: "mallory"}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateJWT("secret", raw)
	assert.Error(t, err)
}

type staticEvaluator struct {
	allowed map[string]bool
}

func (s staticEvaluator) Evaluate(username, permission, cluster string) bool {
	return s.allowed[username+"/"+permission+"/"+cluster]
}

func TestRequirePermission(t *testing.T) {
	eval := staticEvaluator{allowed: map[string]bool{
		"admin/read/":      true,
		"admin/read/prod":  true,
		"scoped/read/prod": true,
	}}

	app := fiber.New()
	token, err := generateTestToken("secret", "scoped", time.Now().Add(time.Hour))
	require.NoError(t, err)
	app.Get("/api/:cluster/pods", JWTAuth("secret"), RequirePermission(eval, "read"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/api/prod/pods", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req, 5000)
	assert.Equal(t, 200, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/staging/pods", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = app.Test(req, 5000)
	assert.Equal(t, 403, resp.StatusCode)
}
