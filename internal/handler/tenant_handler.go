package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"roadmap-service/internal/guard"
	"roadmap-service/internal/model"
	"roadmap-service/internal/repository"
	"roadmap-service/pkg/logger"
	"roadmap-service/prometheus"
)

// TenantHandler serves the caller's own organization. There is no
// cross-tenant addressing here: the tenant always comes from the identity.
type TenantHandler struct {
	tenants repository.TenantRepository
}

// NewTenantHandler creates the tenant handler.
func NewTenantHandler(tenants repository.TenantRepository) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Get returns the caller's organization.
func (h *TenantHandler) Get(c echo.Context) error {
	prometheus.RecordEntityOperation("tenant", "get")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenant, errResp := h.load(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	return c.JSON(http.StatusOK, tenantJSON(tenant))
}

// Update changes the organization's plan tier. Admin only.
func (h *TenantHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("tenant", "update")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if err := guard.RequireAdmin(identity); err != nil {
		prometheus.RecordAuthError("role_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin role required"})
	}

	tenant, errResp := h.load(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	var req struct {
		PlanTier string `json:"plan_tier"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.PlanTier == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: plan_tier"})
	}
	tenant.PlanTier = req.PlanTier

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.tenants.Save(c.Request().Context(), tenant); err != nil {
		log.Error("Failed to update tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update tenant"})
	}

	log.Info("Tenant updated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("plan_tier", tenant.PlanTier))

	return c.JSON(http.StatusOK, tenantJSON(tenant))
}

// Delete removes the organization and everything it owns. Admin only.
func (h *TenantHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("tenant", "delete")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if err := guard.RequireAdmin(identity); err != nil {
		prometheus.RecordAuthError("role_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin role required"})
	}

	tenant, errResp := h.load(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.tenants.Delete(c.Request().Context(), tenant); err != nil {
		log.Error("Failed to delete tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete tenant"})
	}

	log.Info("Tenant deleted",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("domain_name", tenant.DomainName))

	return c.NoContent(http.StatusNoContent)
}

func (h *TenantHandler) load(c echo.Context, identity guard.Identity) (*model.Tenant, func(echo.Context) error) {
	tenant, err := h.tenants.GetByID(c.Request().Context(), identity.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, respondError(http.StatusNotFound, "Tenant not found")
		}
		logger.FromContext(c).Error("Failed to load tenant", zap.Error(err))
		return nil, respondError(http.StatusInternalServerError, "Failed to retrieve tenant")
	}
	return tenant, nil
}

func tenantJSON(tenant *model.Tenant) echo.Map {
	return echo.Map{
		"id":          tenant.ID,
		"domain_name": tenant.DomainName,
		"plan_tier":   tenant.PlanTier,
		"created_at":  tenant.CreatedAt,
		"updated_at":  tenant.UpdatedAt,
	}
}
