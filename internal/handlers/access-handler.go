package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"proposal-access-service/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counter for access attempts by outcome
	accessAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_attempts_total",
			Help: "Total number of token access attempts",
		},
		[]string{"outcome"}, // outcome: allowed/denied/expired
	)

	// Histogram for authorization duration
	authorizeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "access_authorize_duration_seconds",
			Help:    "Time spent authorizing token presentations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// Counter for session extensions
	sessionExtensions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_session_extensions_total",
			Help: "Total number of session extension attempts",
		},
		[]string{"status"}, // status: success/denied
	)
)

type AccessHandler struct {
	accessService  *service.AccessService
	sessionService *service.SessionService
}

func NewAccessHandler(accessService *service.AccessService, sessionService *service.SessionService) *AccessHandler {
	return &AccessHandler{
		accessService:  accessService,
		sessionService: sessionService,
	}
}

func (h *AccessHandler) RegisterRoutes(app *fiber.App) {
	publicGroup := app.Group("/public")

	publicGroup.Get("/access/:token", h.Access)
	publicGroup.Post("/sessions/:sessionId/extend", h.ExtendSession)
	publicGroup.Get("/sessions/:sessionId/remaining", h.SessionRemaining)
}

// Access validates a presented token. Denial detail is deliberately thin:
// recipients only ever learn "expired" (actionable, ask for a new link) or
// a generic "denied" - nothing that would let a caller probe why.
func (h *AccessHandler) Access(c fiber.Ctx) error {
	tokenString := c.Params("token")
	if tokenString == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	mode := c.Query("mode", service.ModeGrant)
	if mode != service.ModeGrant && mode != service.ModeSession {
		mode = service.ModeGrant
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	decision, err := h.accessService.Authorize(ctx, tokenString, mode)
	if err != nil {
		log.Printf("Access denied: %v", err)

		if errors.Is(err, service.ErrGrantExpired) {
			accessAttempts.WithLabelValues("expired").Inc()
			authorizeDuration.WithLabelValues("expired").Observe(time.Since(start).Seconds())
			return c.Status(fiber.StatusGone).JSON(fiber.Map{
				"error": "This link has expired. Please request a new one.",
			})
		}

		accessAttempts.WithLabelValues("denied").Inc()
		authorizeDuration.WithLabelValues("denied").Observe(time.Since(start).Seconds())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	accessAttempts.WithLabelValues("allowed").Inc()
	authorizeDuration.WithLabelValues("allowed").Observe(time.Since(start).Seconds())

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": decision,
	})
}

func (h *AccessHandler) ExtendSession(c fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Session expired",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := h.sessionService.Extend(ctx, sessionID)
	if err != nil {
		log.Printf("Failed to extend session %s: %v", sessionID, err)
		sessionExtensions.WithLabelValues("denied").Inc()

		if errors.Is(err, service.ErrExtensionLimitReached) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Extension limit reached",
			})
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Session expired",
		})
	}

	sessionExtensions.WithLabelValues("success").Inc()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"expiresAt":     session.ExpiresAt,
			"timeRemaining": int64(session.TimeRemaining(time.Now()).Seconds()),
		},
	})
}

// SessionRemaining is the countdown projection the viewer polls. It never
// changes state; the registry's ExpiresAt stays the single source of truth.
func (h *AccessHandler) SessionRemaining(c fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := h.sessionService.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}

		log.Printf("Failed to load session %s: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve session",
		})
	}

	remaining := session.TimeRemaining(time.Now())

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"timeRemaining": int64(remaining.Seconds()),
			"expiresAt":     session.ExpiresAt,
			"expired":       remaining <= 0,
		},
	})
}
