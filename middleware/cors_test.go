package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netasampark/config"
)

func newCORSApp() *fiber.App {
	app := fiber.New()
	app.Use(CORS())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func TestCORS(t *testing.T) {
	config.AppConfig.BaseDomain = "netasampark.test"
	app := newCORSApp()

	t.Run("preflight reports a numeric max age", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "http://localhost:3000")

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "3600", resp.Header.Get("Access-Control-Max-Age"))
		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-Tenant-ID")
	})

	t.Run("tenant dashboard origins are allowed", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://testparty.netasampark.test")

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, "https://testparty.netasampark.test", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("foreign origins are not allowed", func(t *testing.T) {
		for _, origin := range []string{
			"https://evil.example.com",
			"http://testparty.netasampark.test", // dashboards are https only
			"https://netasampark.test",          // apex is not a tenant
		} {
			req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
			req.Header.Set("Origin", origin)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"), origin)
		}
	})
}
