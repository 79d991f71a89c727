package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
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

// InitiativeHandler serves CRUD for initiatives.
type InitiativeHandler struct {
	initiatives repository.InitiativeRepository
	goals       repository.GoalRepository
}

// NewInitiativeHandler creates the initiative handler.
func NewInitiativeHandler(initiatives repository.InitiativeRepository, goals repository.GoalRepository) *InitiativeHandler {
	return &InitiativeHandler{initiatives: initiatives, goals: goals}
}

// List returns the tenant's initiatives, optionally filtered by goal_id and
// status, ordered by priority descending then creation time.
func (h *InitiativeHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("initiative", "list")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var filter repository.InitiativeFilter
	if raw := c.QueryParam("goal_id"); raw != "" {
		goalID, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid goal_id format"})
		}
		filter.GoalID = &goalID
	}
	if status := c.QueryParam("status"); status != "" {
		if !model.ValidInitiativeStatus(status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": invalidStatusMessage()})
		}
		filter.Status = status
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	initiatives, err := h.initiatives.ListByTenant(c.Request().Context(), identity.TenantID, filter)
	if err != nil {
		log.Error("Failed to list initiatives", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve initiatives"})
	}

	return c.JSON(http.StatusOK, echo.Map{"initiatives": initiatives})
}

// Get returns a single initiative.
func (h *InitiativeHandler) Get(c echo.Context) error {
	prometheus.RecordEntityOperation("initiative", "get")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	initiative, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	return c.JSON(http.StatusOK, initiative)
}

// Create adds an initiative to the caller's tenant.
func (h *InitiativeHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("initiative", "create")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	data := map[string]interface{}{}
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	for _, field := range []string{"title", "status", "priority"} {
		if _, ok := data[field]; !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: " + field})
		}
	}

	title, _ := data["title"].(string)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: title"})
	}
	status, _ := data["status"].(string)
	if !model.ValidInitiativeStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": invalidStatusMessage()})
	}
	priority, ok := parsePriority(data["priority"])
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Priority must be an integer between 1 and 5"})
	}
	if !model.ValidPriority(priority) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Priority must be between 1 and 5"})
	}
	description, _ := data["description"].(string)

	initiative := &model.Initiative{
		TenantID:    identity.TenantID,
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
	}

	if raw, ok := data["goal_id"]; ok && raw != nil {
		goalID, errResp := h.resolveGoalRef(c, identity, raw)
		if errResp != nil {
			return errResp(c)
		}
		initiative.GoalID = goalID
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.initiatives.Create(c.Request().Context(), initiative); err != nil {
		log.Error("Failed to create initiative", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create initiative"})
	}

	log.Info("Initiative created",
		zap.String("initiative_id", initiative.ID.String()),
		zap.String("tenant_id", initiative.TenantID.String()))

	return c.JSON(http.StatusCreated, initiative)
}

/// Update applies a partial update: only keys present in the payload change.
// goal_id set to null detaches the initiative from its goal.
func (h *InitiativeHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("initiative", "update")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	initiative, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	data := map[string]interface{}{}
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if raw, ok := data["title"]; ok {
		title, ok := raw.(string)
		if !ok || title == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: title"})
		}
		initiative.Title = title
	}
	if raw, ok := data["description"]; ok {
		description, _ := raw.(string)
		initiative.Description = description
	}
	if raw, ok := data["status"]; ok {
		status, _ := raw.(string)
		if !model.ValidInitiativeStatus(status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": invalidStatusMessage()})
		}
		initiative.Status = status
	}
	if raw, ok := data["priority"]; ok {
		priority, ok := parsePriority(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Priority must be an integer between 1 and 5"})
		}
		if !model.ValidPriority(priority) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Priority must be between 1 and 5"})
		}
		initiative.Priority = priority
	}
	if raw, ok := data["goal_id"]; ok {
		if raw == nil {
			initiative.GoalID = nil
		} else {
			goalID, errResp := h.resolveGoalRef(c, identity, raw)
			if errResp != nil {
				return errResp(c)
			}
			initiative.GoalID = goalID
		}
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.initiatives.Save(c.Request().Context(), initiative); err != nil {
		log.Error("Failed to update initiative", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update initiative"})
	}

	return c.JSON(http.StatusOK, initiative)
}

// Delete removes an initiative and the comments attached to it.
func (h *InitiativeHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("initiative", "delete")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	initiative, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.initiatives.Delete(c.Request().Context(), initiative); err != nil {
		log.Error("Failed to delete initiative", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete initiative"})
	}

	log.Info("Initiative deleted", zap.String("initiative_id", initiative.ID.String()))

	return c.NoContent(http.StatusNoContent)
}

func (h *InitiativeHandler) loadGuarded(c echo.Context, identity guard.Identity) (*model.Initiative, func(echo.Context) error) {
	id, err := parseID(c)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid id format")
	}

	initiative, err := h.initiatives.GetByID(c.Request().Context(), id)
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

	return initiative, nil
}

// resolveGoalRef validates a goal_id from the payload: it must parse, exist
// and sit in the caller's tenant.
func (h *InitiativeHandler) resolveGoalRef(c echo.Context, identity guard.Identity, raw interface{}) (*uuid.UUID, func(echo.Context) error) {
	goalStr, ok := raw.(string)
	if !ok {
		return nil, respondError(http.StatusBadRequest, "Invalid goal_id format")
	}
	goalID, err := uuid.Parse(goalStr)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid goal_id format")
	}

	goal, err := h.goals.GetByID(c.Request().Context(), goalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, respondError(http.StatusNotFound, "Goal not found")
		}
		logger.FromContext(c).Error("Failed to load goal", zap.Error(err))
		return nil, respondError(http.StatusInternalServerError, "Failed to retrieve goal")
	}
	if err := guard.RequireSameTenant(identity, goal.TenantID); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return nil, respondError(http.StatusForbidden, "Access forbidden")
	}

	return &goalID, nil
}

// parsePriority accepts the integral JSON numbers that survive decoding into
// interface{} as float64.
func parsePriority(raw interface{}) (int, bool) {
	f, ok := raw.(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func invalidStatusMessage() string {
	return fmt.Sprintf("Invalid status. Must be one of: %s", strings.Join(model.InitiativeStatuses, ", "))
}
