package app

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"dumpster-booking/internal/config"
	"dumpster-booking/internal/routes"
)

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "no-referrer")

	// Approval links carry tokens, keep them out of caches
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Next()
}

func HTTPServer(cfg *config.Config, deps *routes.Deps) (*gin.Engine, error) {
	r := gin.New()

	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	if len(cfg.TrustedProxies) > 0 {
		slog.Debug("Trusting proxies", "proxies", cfg.TrustedProxies)
	}

	render, err := routes.Renderer()
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	r.HTMLRender = render

	r.Use(
		gin.Recovery(),
		routes.RequestLogger(),
		securityHeaders,
		routes.SiteURL(cfg.SiteURL),
		routes.ErrorHandler(),
	)

	routes.RegisterRoutes(r, deps)
	return r, nil
}
