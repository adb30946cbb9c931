package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"proposal-access-service/internal/middleware"
	"proposal-access-service/internal/models"
	"proposal-access-service/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter for issued grants
	grantsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_grants_issued_total",
			Help: "Total number of access grants issued",
		},
		[]string{"status"}, // status: success/failure
	)

	// Counter for revocations
	grantsRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "access_grants_revoked_total",
			Help: "Total number of access grants revoked",
		},
	)
)

type GrantHandler struct {
	grantService *service.GrantService
}

func NewGrantHandler(grantService *service.GrantService) *GrantHandler {
	return &GrantHandler{
		grantService: grantService,
	}
}

func (h *GrantHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	protectedGroup := app.Group("/protected/grants")

	protectedGroup.Post("/", h.CreateGrant, middleware.PermissionRequired(middleware.WriteGrantPermission))
	protectedGroup.Get("/", h.ListGrants, middleware.PermissionRequired(middleware.ReadGrantPermission))
	protectedGroup.Get("/:id", h.GetGrant, middleware.PermissionRequired(middleware.ReadGrantPermission))
	protectedGroup.Post("/:id/revoke", h.RevokeGrant, middleware.PermissionRequired(middleware.RevokeGrantPermission))
}

func (h *GrantHandler) CreateGrant(c fiber.Ctx) error {
	var req models.CreateGrantRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := h.grantService.IssueGrant(ctx, &req)
	if err != nil {
		log.Printf("Failed to issue grant for resource %s: %v", req.ResourceID, err)
		grantsIssued.WithLabelValues("failure").Inc()

		if errors.Is(err, service.ErrInvalidDuration) || errors.Is(err, service.ErrInvalidPermission) ||
			strings.Contains(err.Error(), "validation failed") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue grant",
		})
	}

	grantsIssued.WithLabelValues("success").Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Grant issued successfully",
		"data": fiber.Map{
			"token":     resp.Token,
			"grantId":   resp.GrantID,
			"expiresAt": resp.ExpiresAt,
		},
	})
}

func (h *GrantHandler) GetGrant(c fiber.Ctx) error {
	grantID := c.Params("id")
	if grantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Grant ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	grant, err := h.grantService.GetGrant(ctx, grantID)
	if err != nil {
		log.Printf("Failed to get grant %s: %v", grantID, err)

		if errors.Is(err, service.ErrUnknownGrant) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Grant not found",
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve grant",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"grant": grant,
		},
	})
}

func (h *GrantHandler) ListGrants(c fiber.Ctx) error {
	resourceID := c.Query("resourceId")
	if resourceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resourceId query parameter is required",
		})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grants, err := h.grantService.ListGrantsByResource(ctx, resourceID, page, limit)
	if err != nil {
		log.Printf("Failed to list grants for resource %s: %v", resourceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve grants",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"grants": grants,
			"pagination": fiber.Map{
				"page":  page,
				"limit": limit,
				"count": len(grants),
			},
		},
	})
}

func (h *GrantHandler) RevokeGrant(c fiber.Ctx) error {
	grantID := c.Params("id")
	if grantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Grant ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := h.grantService.RevokeGrant(ctx, grantID)
	if err != nil {
		log.Printf("Failed to revoke grant %s: %v", grantID, err)

		if errors.Is(err, service.ErrUnknownGrant) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Grant not found",
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke grant",
		})
	}

	grantsRevoked.Inc()

	return c.SendStatus(fiber.StatusNoContent)
}
