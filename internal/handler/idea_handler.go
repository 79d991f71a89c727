package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"roadmap-service/internal/guard"
	"roadmap-service/internal/model"
	"roadmap-service/internal/repository"
	"roadmap-service/pkg/logger"
	"roadmap-service/prometheus"
)

// IdeaHandler serves CRUD for ideas plus their customer links.
type IdeaHandler struct {
	ideas       repository.IdeaRepository
	initiatives repository.InitiativeRepository
	customers   repository.CustomerRepository
}

// NewIdeaHandler creates the idea handler.
func NewIdeaHandler(ideas repository.IdeaRepository, initiatives repository.InitiativeRepository, customers repository.CustomerRepository) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, initiatives: initiatives, customers: customers}
}

// List returns the caller's tenant's ideas.
func (h *IdeaHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("idea", "list")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	ideas, err := h.ideas.ListByTenant(c.Request().Context(), identity.TenantID)
	if err != nil {
		log.Error("Failed to list ideas", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve ideas"})
	}

	return c.JSON(http.StatusOK, echo.Map{"ideas": ideas})
}

// Get returns a single idea.
func (h *IdeaHandler) Get(c echo.Context) error {
	prometheus.RecordEntityOperation("idea", "get")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	idea, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	return c.JSON(http.StatusOK, idea)
}

// Create adds an idea to the caller's tenant.
func (h *IdeaHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("idea", "create")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	data := map[string]interface{}{}
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	for _, field := range []string{"title", "priority", "effort", "source", "status"} {
		value, _ := data[field].(string)
		if value == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: " + field})
		}
	}

	description, _ := data["description"].(string)
	idea := &model.Idea{
		TenantID:    identity.TenantID,
		Title:       data["title"].(string),
		Description: description,
		Priority:    data["priority"].(string),
		Effort:      data["effort"].(string),
		Source:      data["source"].(string),
		Status:      data["status"].(string),
	}

	if raw, ok := data["initiative_id"]; ok && raw != nil {
		initiativeID, errResp := h.resolveInitiativeRef(c, identity, raw)
		if errResp != nil {
			return errResp(c)
		}
		idea.InitiativeID = initiativeID
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.ideas.Create(c.Request().Context(), idea); err != nil {
		log.Error("Failed to create idea", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create idea"})
	}

	log.Info("Idea created",
		zap.String("idea_id", idea.ID.String()),
		zap.String("tenant_id", idea.TenantID.String()))

	return c.JSON(http.StatusCreated, idea)
}

// Update applies a partial update. initiative_id set to null detaches the
// idea from its initiative.
func (h *IdeaHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("idea", "update")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	idea, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	data := map[string]interface{}{}
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	assign := map[string]*string{
		"title":    &idea.Title,
		"priority": &idea.Priority,
		"effort":   &idea.Effort,
		"source":   &idea.Source,
		"status":   &idea.Status,
	}
	for field, dst := range assign {
		if raw, ok := data[field]; ok {
			value, ok := raw.(string)
			if !ok || value == "" {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: " + field})
			}
			*dst = value
		}
	}
	if raw, ok := data["description"]; ok {
		description, _ := raw.(string)
		idea.Description = description
	}
	if raw, ok := data["initiative_id"]; ok {
		if raw == nil {
			idea.InitiativeID = nil
		} else {
			initiativeID, errResp := h.resolveInitiativeRef(c, identity, raw)
			if errResp != nil {
				return errResp(c)
			}
			idea.InitiativeID = initiativeID
		}
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.ideas.Save(c.Request().Context(), idea); err != nil {
		log.Error("Failed to update idea", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update idea"})
	}

	return c.JSON(http.StatusOK, idea)
}

// Delete removes an idea and the comments attached to it.
func (h *IdeaHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("idea", "delete")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	idea, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.ideas.Delete(c.Request().Context(), idea); err != nil {
		log.Error("Failed to delete idea", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete idea"})
	}

	log.Info("Idea deleted", zap.String("idea_id", idea.ID.String()))

	return c.NoContent(http.StatusNoContent)
}

// LinkCustomer attaches a customer to an idea.
func (h *IdeaHandler) LinkCustomer(c echo.Context) error {
	return h.changeCustomerLink(c, "link_customer", h.ideas.AddCustomer)
}

// UnlinkCustomer detaches a customer from an idea.
func (h *IdeaHandler) UnlinkCustomer(c echo.Context) error {
	return h.changeCustomerLink(c, "unlink_customer", h.ideas.RemoveCustomer)
}

func (h *IdeaHandler) changeCustomerLink(c echo.Context, operation string, apply func(ctx context.Context, idea *model.Idea, customer *model.Customer) error) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("idea", operation)

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	idea, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	customer, errResp := loadGuardedCustomer(c, identity, h.customers, c.Param("customer_id"))
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := apply(c.Request().Context(), idea, customer); err != nil {
		log.Error("Failed to change idea customer link", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update idea"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

func (h *IdeaHandler) loadGuarded(c echo.Context, identity guard.Identity) (*model.Idea, func(echo.Context) error) {
	id, err := parseID(c)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid id format")
	}

	idea, err := h.ideas.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, respondError(http.StatusNotFound, "Idea not found")
		}
		logger.FromContext(c).Error("Failed to load idea", zap.Error(err))
		return nil, respondError(http.StatusInternalServerError, "Failed to retrieve idea")
	}

	if err := guard.RequireSameTenant(identity, idea.TenantID); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return nil, respondError(http.StatusForbidden, "Access forbidden")
	}

	return idea, nil
}

// resolveInitiativeRef validates an initiative_id from the payload: it must
// parse, exist and sit in the caller's tenant.
func (h *IdeaHandler) resolveInitiativeRef(c echo.Context, identity guard.Identity, raw interface{}) (*uuid.UUID, func(echo.Context) error) {
	idStr, ok := raw.(string)
	if !ok {
		return nil, respondError(http.StatusBadRequest, "Invalid initiative_id format")
	}
	initiativeID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid initiative_id format")
	}

	initiative, err := h.initiatives.GetByID(c.Request().Context(), initiativeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, respondError(http.StatusNotFound, "Initiative not found")
		}
		logger.FromContext(c).Error("Failed to load initiative", zap.Error(err))
		return nil, respondError(http.StatusInternalServerError, "Failed to retrieve initiative")
	}
	if err := guard.RequireSameTenant(identity, initiative.TenantID); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return nil, respondError(http.StatusForbidden, "Access forbidden")
	}

	return &initiativeID, nil
}

// loadGuardedCustomer loads a customer referenced by a link endpoint and
// enforces the tenant invariant on it.
func loadGuardedCustomer(c echo.Context, identity guard.Identity, customers repository.CustomerRepository, rawID string) (*model.Customer, func(echo.Context) error) {
	customerID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid customer_id format")
	}

	customer, err := customers.GetByID(c.Request().Context(), customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, respondError(http.StatusNotFound, "Customer not found")
		}
		logger.FromContext(c).Error("Failed to load customer", zap.Error(err))
		return nil, respondError(http.StatusInternalServerError, "Failed to retrieve customer")
	}
	if err := guard.RequireSameTenant(identity, customer.TenantID); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return nil, respondError(http.StatusForbidden, "Access forbidden")
	}

	return customer, nil
}
