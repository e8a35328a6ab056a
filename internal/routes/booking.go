package routes

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"dumpster-booking/internal/availability"
	"dumpster-booking/internal/booking"
	"dumpster-booking/internal/ratelimit"
)

// Deps are the services behind the booking API.
type Deps struct {
	Validator   *booking.Validator
	Engine      *availability.Engine
	Writer      *booking.Writer
	Transitions *booking.Transitions
	Limiter     *ratelimit.Limiter
	SiteURL     string
}

type bookingHandlers struct {
	*Deps
}

// BookingApi registers the public booking endpoints.
func BookingApi(r *gin.RouterGroup, d *Deps) {
	h := bookingHandlers{Deps: d}
	r.GET("/availability", h.availability)
	r.POST("/request", h.request)
	r.GET("/approve", h.approve)
}

func (h bookingHandlers) availability(c *gin.Context) {
	unit, duration, days, err := h.Validator.ValidateQuery(c.Query("size"), c.Query("duration"), c.Query("days"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := h.Engine.Query(c.Request.Context(), unit.Tier, duration, days)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h bookingHandlers) request(c *gin.Context) {
	// Bots get the same answer as people so they learn nothing.
	var trap booking.Honeypot
	if err := c.ShouldBindBodyWith(&trap, binding.JSON); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}
	if trap.Filled() {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	var req booking.Request
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	ctx := c.Request.Context()
	limit, err := h.Limiter.Allow(ctx, c.ClientIP())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	setRateLimitHeaders(c, limit)
	if !limit.Allowed {
		AbortWithError(c, ErrRateLimited)
		return
	}

	b, err := h.Validator.Validate(&req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := h.Writer.Create(ctx, b)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !res.Available {
		c.JSON(http.StatusOK, gin.H{"ok": true, "available": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"available":       true,
		"eventId":         res.EventID,
		"start":           res.Window.Start,
		"end":             res.Window.End,
		"customerAckSent": res.CustomerAck.Sent,
	})
}

func setRateLimitHeaders(c *gin.Context, r ratelimit.Result) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(r.Reset.UnixMilli(), 10))
	if wait := r.RetryAfter; wait > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
}
