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

// GoalHandler serves CRUD for goals.
type GoalHandler struct {
	goals repository.GoalRepository
}

// NewGoalHandler creates the goal handler.
func NewGoalHandler(goals repository.GoalRepository) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// List returns the caller's tenant's goals with their initiative counts.
func (h *GoalHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("goal", "list")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	ctx := c.Request().Context()
	defer prometheus.TrackDBOperation("query")(time.Now())

	goals, err := h.goals.ListByTenant(ctx, identity.TenantID)
	if err != nil {
		log.Error("Failed to list goals", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve goals"})
	}

	responses := make([]echo.Map, 0, len(goals))
	for i := range goals {
		count, err := h.goals.InitiativeCount(ctx, goals[i].ID)
		if err != nil {
			log.Error("Failed to count initiatives", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve goals"})
		}
		resp := goalJSON(&goals[i])
		resp["initiative_count"] = count
		responses = append(responses, resp)
	}

	return c.JSON(http.StatusOK, echo.Map{"goals": responses})
}

// Get returns a single goal.
func (h *GoalHandler) Get(c echo.Context) error {
	prometheus.RecordEntityOperation("goal", "get")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	goal, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	return c.JSON(http.StatusOK, goalJSON(goal))
}

// Create adds a goal to the caller's tenant.
func (h *GoalHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("goal", "create")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		TargetDate  string `json:"target_date"`
		Status      string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: title"})
	}

	var targetDate *time.Time
	if req.TargetDate != "" {
		parsed, err := model.ParseDate(req.TargetDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
		}
		targetDate = &parsed
	}

	status := req.Status
	if status == "" {
		status = model.GoalDefaultStatus
	}

	// Tenant comes from the authenticated identity, never the body.
	goal := &model.Goal{
		TenantID:    identity.TenantID,
		Title:       req.Title,
		Description: req.Description,
		TargetDate:  targetDate,
		Status:      status,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.goals.Create(c.Request().Context(), goal); err != nil {
		log.Error("Failed to create goal", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create goal"})
	}

	log.Info("Goal created",
		zap.String("goal_id", goal.ID.String()),
		zap.String("tenant_id", goal.TenantID.String()))

	return c.JSON(http.StatusCreated, goalJSON(goal))
}

// Update applies a partial update: only keys present in the payload change.
func (h *GoalHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("goal", "update")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	goal, errResp := h.loadGuarded(c, identity)
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
		goal.Title = title
	}
	if raw, ok := data["description"]; ok {
		description, _ := raw.(string)
		goal.Description = description
	}
	if raw, ok := data["target_date"]; ok {
		if raw == nil {
			goal.TargetDate = nil
		} else {
			dateStr, ok := raw.(string)
			if !ok {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
			}
			parsed, err := model.ParseDate(dateStr)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
			}
			goal.TargetDate = &parsed
		}
	}
	if raw, ok := data["status"]; ok {
		status, _ := raw.(string)
		goal.Status = status
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.goals.Save(c.Request().Context(), goal); err != nil {
		log.Error("Failed to update goal", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update goal"})
	}

	return c.JSON(http.StatusOK, goalJSON(goal))
}

// Delete removes a goal. Its initiatives survive with goal_id cleared.
func (h *GoalHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("goal", "delete")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	goal, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.goals.Delete(c.Request().Context(), goal); err != nil {
		log.Error("Failed to delete goal", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete goal"})
	}

	log.Info("Goal deleted", zap.String("goal_id", goal.ID.String()))

	return c.NoContent(http.StatusNoContent)
}

// loadGuarded loads the goal from the path id and enforces the tenant
// invariant. Returns a response function on failure.
func (h *GoalHandler) loadGuarded(c echo.Context, identity guard.Identity) (*model.Goal, func(echo.Context) error) {
	id, err := parseID(c)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid id format")
	}

	goal, err := h.goals.GetByID(c.Request().Context(), id)
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

	return goal, nil
}

func goalJSON(goal *model.Goal) echo.Map {
	var targetDate interface{}
	if goal.TargetDate != nil {
		targetDate = goal.TargetDate.Format(model.DateLayout)
	}
	return echo.Map{
		"id":          goal.ID,
		"title":       goal.Title,
		"description": goal.Description,
		"target_date": targetDate,
		"status":      goal.Status,
		"created_at":  goal.CreatedAt,
		"updated_at":  goal.UpdatedAt,
	}
}
