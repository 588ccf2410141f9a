package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig controls the cross-origin policy for the API.
type CORSConfig struct {
	// AllowedOrigins are exact origins always allowed, e.g. the operator console.
	AllowedOrigins []string

	// AllowTenantDashboards permits https origins on subdomains of the base
	// domain, where tenant dashboards are served.
	AllowTenantDashboards bool

	// AllowCredentials indicates whether the request can include user credentials
	AllowCredentials bool

	// AllowedMethods is a list of methods the client is allowed to use
	AllowedMethods []string

	// AllowedHeaders is a list of non-simple headers the client is allowed to use
	AllowedHeaders []string

	// ExposedHeaders indicates which headers are safe to expose to clients
	ExposedHeaders []string

	// MaxAge indicates how long (in seconds) the results of a preflight request can be cached
	MaxAge int
}

// DefaultCORSConfig returns a default CORS config
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins:        []string{"http://localhost:3000"},
		AllowTenantDashboards: true,
		AllowCredentials:      true,
		AllowedMethods:        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:        []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Tenant-ID"},
		ExposedHeaders:        []string{"Content-Length"},
		MaxAge:                3600,
	}
}

// CORS allows the operator console and tenant dashboard origins to call the
// API cross-origin.
func CORS(config ...CORSConfig) fiber.Handler {
	cfg := DefaultCORSConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	exact := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		exact[origin] = struct{}{}
	}

	allowedMethods := strings.Join(cfg.AllowedMethods, ",")
	allowedHeaders := strings.Join(cfg.AllowedHeaders, ",")
	exposedHeaders := strings.Join(cfg.ExposedHeaders, ",")
	maxAge := strconv.Itoa(cfg.MaxAge)

	allowed := func(origin string) bool {
		if _, ok := exact[origin]; ok {
			return true
		}
		if !cfg.AllowTenantDashboards {
			return false
		}
		host, ok := strings.CutPrefix(origin, "https://")
		if !ok {
			return false
		}
		return subdomainFromHost(host) != ""
	}

	return func(c *fiber.Ctx) error {
		if origin := c.Get("Origin"); origin != "" && allowed(origin) {
			c.Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				c.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		// Handle OPTIONS method for preflight requests
		if c.Method() == fiber.MethodOptions {
			c.Set("Access-Control-Allow-Methods", allowedMethods)
			c.Set("Access-Control-Allow-Headers", allowedHeaders)
			c.Set("Access-Control-Expose-Headers", exposedHeaders)
			c.Set("Access-Control-Max-Age", maxAge)
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
