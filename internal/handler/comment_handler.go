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

// CommentHandler serves comments. Comments attach to ideas, feedback or
// initiatives through an entity_type/entity_id pair, so every operation
// first resolves the target row and checks it sits in the caller's tenant.
type CommentHandler struct {
	comments repository.CommentRepository
}

// NewCommentHandler creates the comment handler.
func NewCommentHandler(comments repository.CommentRepository) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// List returns the comments attached to one entity, selected by the
// entity_type and entity_id query parameters.
func (h *CommentHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("comment", "list")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	entityType := c.QueryParam("entity_type")
	entityIDRaw := c.QueryParam("entity_id")
	if entityType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: entity_type"})
	}
	if entityIDRaw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: entity_id"})
	}

	entityID, errResp := h.resolveEntity(c, identity, entityType, entityIDRaw)
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	comments, err := h.comments.ListByEntity(c.Request().Context(), entityType, entityID)
	if err != nil {
		log.Error("Failed to list comments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve comments"})
	}

	return c.JSON(http.StatusOK, echo.Map{"comments": comments})
}

// Get returns a single comment together with its resolved target type.
func (h *CommentHandler) Get(c echo.Context) error {
	prometheus.RecordEntityOperation("comment", "get")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	comment, target, errResp := h.loadWithTarget(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"comment":     comment,
		"entity_type": target.Type,
	})
}

// Create attaches a comment to an entity. The author is always the caller.
func (h *CommentHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("comment", "create")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Content    string `json:"content"`
		EntityType string `json:"entity_type"`
		EntityID   string `json:"entity_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: content"})
	}
	if req.EntityType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: entity_type"})
	}
	if req.EntityID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: entity_id"})
	}

	entityID, errResp := h.resolveEntity(c, identity, req.EntityType, req.EntityID)
	if errResp != nil {
		return errResp(c)
	}

	comment := &model.Comment{
		UserID:     identity.UserID,
		Content:    req.Content,
		EntityType: req.EntityType,
		EntityID:   entityID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.comments.Create(c.Request().Context(), comment); err != nil {
		log.Error("Failed to create comment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create comment"})
	}

	log.Info("Comment created",
		zap.String("comment_id", comment.ID.String()),
		zap.String("entity_type", comment.EntityType),
		zap.String("entity_id", comment.EntityID.String()))

	return c.JSON(http.StatusCreated, comment)
}

// Update edits a comment's content. Only the author or an admin may edit.
func (h *CommentHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("comment", "update")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	comment, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: content"})
	}
	comment.Content = req.Content

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.comments.Save(c.Request().Context(), comment); err != nil {
		log.Error("Failed to update comment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update comment"})
	}

	return c.JSON(http.StatusOK, comment)
}

// Delete removes a comment. Only the author or an admin may delete.
func (h *CommentHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("comment", "delete")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	comment, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.comments.Delete(c.Request().Context(), comment); err != nil {
		log.Error("Failed to delete comment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete comment"})
	}

	log.Info("Comment deleted", zap.String("comment_id", comment.ID.String()))

	return c.NoContent(http.StatusNoContent)
}

// resolveEntity validates the discriminator pair, loads the target and
// checks it sits in the caller's tenant.
func (h *CommentHandler) resolveEntity(c echo.Context, identity guard.Identity, entityType, entityIDRaw string) (uuid.UUID, func(echo.Context) error) {
	if !model.ValidEntityType(entityType) {
		message := fmt.Sprintf("Invalid entity_type. Must be one of: %s", strings.Join(model.EntityTypes, ", "))
		return uuid.Nil, respondError(http.StatusBadRequest, message)
	}
	entityID, err := uuid.Parse(entityIDRaw)
	if err != nil {
		return uuid.Nil, respondError(http.StatusBadRequest, "Invalid entity_id format")
	}

	target, err := h.comments.ResolveTarget(c.Request().Context(), entityType, entityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, respondError(http.StatusNotFound, "Entity not found")
		}
		logger.FromContext(c).Error("Failed to resolve comment target", zap.Error(err))
		return uuid.Nil, respondError(http.StatusInternalServerError, "Failed to retrieve entity")
	}

	if err := guard.RequireSameTenant(identity, target.TenantID()); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return uuid.Nil, respondError(http.StatusForbidden, "Access forbidden")
	}

	return entityID, nil
}

// loadWithTarget loads the comment from the path id, resolves its target
// and checks the target belongs to the caller's tenant.
func (h *CommentHandler) loadWithTarget(c echo.Context, identity guard.Identity) (*model.Comment, *model.CommentTarget, func(echo.Context) error) {
	id, err := parseID(c)
	if err != nil {
		return nil, nil, respondError(http.StatusBadRequest, "Invalid id format")
	}

	comment, err := h.comments.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, respondError(http.StatusNotFound, "Comment not found")
		}
		logger.FromContext(c).Error("Failed to load comment", zap.Error(err))
		return nil, nil, respondError(http.StatusInternalServerError, "Failed to retrieve comment")
	}

	target, err := h.comments.ResolveTarget(c.Request().Context(), comment.EntityType, comment.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Orphaned comments should not exist; treat them as gone.
			return nil, nil, respondError(http.StatusNotFound, "Comment not found")
		}
		logger.FromContext(c).Error("Failed to resolve comment target", zap.Error(err))
		return nil, nil, respondError(http.StatusInternalServerError, "Failed to retrieve comment")
	}

	if err := guard.RequireSameTenant(identity, target.TenantID()); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return nil, nil, respondError(http.StatusForbidden, "Access forbidden")
	}

	return comment, target, nil
}

// loadGuarded additionally enforces the author-or-admin rule used by edits
// and deletes.
func (h *CommentHandler) loadGuarded(c echo.Context, identity guard.Identity) (*model.Comment, func(echo.Context) error) {
	comment, _, errResp := h.loadWithTarget(c, identity)
	if errResp != nil {
		return nil, errResp
	}

	if comment.UserID != identity.UserID && !identity.IsAdmin() {
		prometheus.RecordAuthError("not_author")
		return nil, respondError(http.StatusForbidden, "Not authorized")
	}

	return comment, nil
}
