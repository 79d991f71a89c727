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

// FeedbackHandler serves CRUD for feedback plus its customer and initiative
// links.
type FeedbackHandler struct {
	feedback    repository.FeedbackRepository
	customers   repository.CustomerRepository
	initiatives repository.InitiativeRepository
}

// NewFeedbackHandler creates the feedback handler.
func NewFeedbackHandler(feedback repository.FeedbackRepository, customers repository.CustomerRepository, initiatives repository.InitiativeRepository) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, customers: customers, initiatives: initiatives}
}

// List returns the caller's tenant's feedback entries.
func (h *FeedbackHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("feedback", "list")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	entries, err := h.feedback.ListByTenant(c.Request().Context(), identity.TenantID)
	if err != nil {
		log.Error("Failed to list feedback", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve feedback"})
	}

	return c.JSON(http.StatusOK, echo.Map{"feedback": entries})
}

// Get returns a single feedback entry.
func (h *FeedbackHandler) Get(c echo.Context) error {
	prometheus.RecordEntityOperation("feedback", "get")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	feedback, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	return c.JSON(http.StatusOK, feedback)
}

// Create adds a feedback entry to the caller's tenant.
func (h *FeedbackHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("feedback", "create")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Sentiment   string `json:"sentiment"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: title"})
	}
	if req.Sentiment == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: sentiment"})
	}

	feedback := &model.Feedback{
		TenantID:    identity.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Sentiment:   req.Sentiment,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.feedback.Create(c.Request().Context(), feedback); err != nil {
		log.Error("Failed to create feedback", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create feedback"})
	}

	log.Info("Feedback created",
		zap.String("feedback_id", feedback.ID.String()),
		zap.String("tenant_id", feedback.TenantID.String()))

	return c.JSON(http.StatusCreated, feedback)
}

// Update applies a partial update.
func (h *FeedbackHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("feedback", "update")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	feedback, errResp := h.loadGuarded(c, identity)
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
		feedback.Title = title
	}
	if raw, ok := data["description"]; ok {
		description, _ := raw.(string)
		feedback.Description = description
	}
	if raw, ok := data["sentiment"]; ok {
		sentiment, ok := raw.(string)
		if !ok || sentiment == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: sentiment"})
		}
		feedback.Sentiment = sentiment
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.feedback.Save(c.Request().Context(), feedback); err != nil {
		log.Error("Failed to update feedback", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update feedback"})
	}

	return c.JSON(http.StatusOK, feedback)
}

// Delete removes a feedback entry and the comments attached to it.
func (h *FeedbackHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("feedback", "delete")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	feedback, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.feedback.Delete(c.Request().Context(), feedback); err != nil {
		log.Error("Failed to delete feedback", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete feedback"})
	}

	log.Info("Feedback deleted", zap.String("feedback_id", feedback.ID.String()))

	return c.NoContent(http.StatusNoContent)
}

// LinkCustomer attaches a customer to a feedback entry.
func (h *FeedbackHandler) LinkCustomer(c echo.Context) error {
	return h.changeCustomerLink(c, "link_customer", h.feedback.AddCustomer)
}

// UnlinkCustomer detaches a customer from a feedback entry.
func (h *FeedbackHandler) UnlinkCustomer(c echo.Context) error {
	return h.changeCustomerLink(c, "unlink_customer", h.feedback.RemoveCustomer)
}

// LinkInitiative attaches an initiative to a feedback entry.
func (h *FeedbackHandler) LinkInitiative(c echo.Context) error {
	return h.changeInitiativeLink(c, "link_initiative", h.feedback.AddInitiative)
}

// UnlinkInitiative detaches an initiative from a feedback entry.
func (h *FeedbackHandler) UnlinkInitiative(c echo.Context) error {
	return h.changeInitiativeLink(c, "unlink_initiative", h.feedback.RemoveInitiative)
}

func (h *FeedbackHandler) changeCustomerLink(c echo.Context, operation string, apply func(ctx context.Context, feedback *model.Feedback, customer *model.Customer) error) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("feedback", operation)

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	feedback, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	customer, errResp := loadGuardedCustomer(c, identity, h.customers, c.Param("customer_id"))
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := apply(c.Request().Context(), feedback, customer); err != nil {
		log.Error("Failed to change feedback customer link", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update feedback"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

func (h *FeedbackHandler) changeInitiativeLink(c echo.Context, operation string, apply func(ctx context.Context, feedback *model.Feedback, initiative *model.Initiative) error) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("feedback", operation)

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	feedback, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	initiativeID, err := uuid.Parse(c.Param("initiative_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid initiative_id format"})
	}

	initiative, err := h.initiatives.GetByID(c.Request().Context(), initiativeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Initiative not found"})
		}
		log.Error("Failed to load initiative", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve initiative"})
	}
	if err := guard.RequireSameTenant(identity, initiative.TenantID); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Access forbidden"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := apply(c.Request().Context(), feedback, initiative); err != nil {
		log.Error("Failed to change feedback initiative link", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update feedback"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

func (h *FeedbackHandler) loadGuarded(c echo.Context, identity guard.Identity) (*model.Feedback, func(echo.Context) error) {
	id, err := parseID(c)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid id format")
	}

	feedback, err := h.feedback.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, respondError(http.StatusNotFound, "Feedback not found")
		}
		logger.FromContext(c).Error("Failed to load feedback", zap.Error(err))
		return nil, respondError(http.StatusInternalServerError, "Failed to retrieve feedback")
	}

	if err := guard.RequireSameTenant(identity, feedback.TenantID); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return nil, respondError(http.StatusForbidden, "Access forbidden")
	}

	return feedback, nil
}
