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

// UserHandler serves user management inside a tenant.
type UserHandler struct {
	users   repository.UserRepository
	tenants repository.TenantRepository
}

// NewUserHandler creates the user handler.
func NewUserHandler(users repository.UserRepository, tenants repository.TenantRepository) *UserHandler {
	return &UserHandler{users: users, tenants: tenants}
}

// List returns the caller's tenant's users.
func (h *UserHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "list")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	users, err := h.users.ListByTenant(c.Request().Context(), identity.TenantID)
	if err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve users"})
	}

	responses := make([]echo.Map, 0, len(users))
	for i := range users {
		responses = append(responses, userJSON(&users[i]))
	}

	return c.JSON(http.StatusOK, echo.Map{"users": responses})
}

// Get returns a single user in the caller's tenant.
func (h *UserHandler) Get(c echo.Context) error {
	prometheus.RecordEntityOperation("user", "get")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	user, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	return c.JSON(http.StatusOK, userJSON(user))
}

// Create adds a user to the caller's tenant. Admin only.
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "create")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if err := guard.RequireAdmin(identity); err != nil {
		prometheus.RecordAuthError("role_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin role required"})
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	switch {
	case req.Email == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: email"})
	case req.Password == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: password"})
	case req.Role == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: role"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	user, status, msg := provisionUser(c.Request().Context(), h.users, h.tenants, identity.TenantID, req.Email, req.Password, req.Role)
	if msg != "" {
		return c.JSON(status, echo.Map{"error": msg})
	}

	log.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", user.TenantID.String()),
		zap.String("role", user.Role))

	return c.JSON(http.StatusCreated, userJSON(user))
}

// Update edits a user. Users may edit themselves; admins may edit anyone in
// the tenant. Role changes are admin only.
func (h *UserHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "update")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	user, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}
	if user.ID != identity.UserID && !identity.IsAdmin() {
		prometheus.RecordAuthError("role_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Not authorized"})
	}

	data := map[string]interface{}{}
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := c.Request().Context()

	if raw, ok := data["email"]; ok {
		email, _ := raw.(string)
		if !model.ValidEmail(email) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid email format"})
		}
		if email != user.Email {
			if _, err := h.users.GetByTenantAndEmail(ctx, user.TenantID, email); err == nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email already in use within this tenant"})
			} else if !errors.Is(err, repository.ErrNotFound) {
				log.Error("Failed to check email uniqueness", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
			}
			user.Email = email
		}
	}
	if raw, ok := data["password"]; ok {
		password, _ := raw.(string)
		if len(password) < model.MinPasswordLength {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password must be at least 8 characters"})
		}
		if err := user.SetPassword(password); err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
		}
	}
	if raw, ok := data["role"]; ok {
		if !identity.IsAdmin() {
			prometheus.RecordAuthError("role_required")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin role required to change user roles"})
		}
		role, _ := raw.(string)
		if !model.ValidRole(role) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid role. Must be one of: user, admin"})
		}
		user.Role = role
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.users.Save(ctx, user); err != nil {
		log.Error("Failed to update user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
	}

	return c.JSON(http.StatusOK, userJSON(user))
}

// Delete removes a user from the tenant. Admin only, and admins cannot
// delete their own account.
func (h *UserHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "delete")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if err := guard.RequireAdmin(identity); err != nil {
		prometheus.RecordAuthError("role_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin role required"})
	}

	user, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}
	if user.ID == identity.UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Cannot delete yourself"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.users.Delete(c.Request().Context(), user); err != nil {
		log.Error("Failed to delete user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete user"})
	}

	log.Info("User deleted",
		zap.String("user_id", user.ID.String()),
		zap.String("deleted_by", identity.UserID.String()))

	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) loadGuarded(c echo.Context, identity guard.Identity) (*model.User, func(echo.Context) error) {
	id, err := parseID(c)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid id format")
	}

	user, err := h.users.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, respondError(http.StatusNotFound, "User not found")
		}
		logger.FromContext(c).Error("Failed to load user", zap.Error(err))
		return nil, respondError(http.StatusInternalServerError, "Failed to retrieve user")
	}

	if err := guard.RequireSameTenant(identity, user.TenantID); err != nil {
		prometheus.RecordAuthError("tenant_mismatch")
		return nil, respondError(http.StatusForbidden, "Not authorized")
	}

	return user, nil
}

// provisionUser validates and persists a user inside the given tenant. A
// non-empty message reports the validation failure and its status code.
func provisionUser(ctx context.Context, users repository.UserRepository, tenants repository.TenantRepository, tenantID uuid.UUID, email, password, role string) (*model.User, int, string) {
	if msg := validateCredentials(email, password); msg != "" {
		return nil, http.StatusBadRequest, msg
	}
	if !model.ValidRole(role) {
		return nil, http.StatusBadRequest, "Invalid role. Must be one of: user, admin"
	}

	if _, err := tenants.GetByID(ctx, tenantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, http.StatusNotFound, "Tenant not found"
		}
		return nil, http.StatusInternalServerError, "registration failed"
	}

	// Email uniqueness is per tenant.
	if _, err := users.GetByTenantAndEmail(ctx, tenantID, email); err == nil {
		return nil, http.StatusBadRequest, "Email already in use within this tenant"
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, http.StatusInternalServerError, "registration failed"
	}

	user := &model.User{TenantID: tenantID, Email: email, Role: role}
	if err := user.SetPassword(password); err != nil {
		return nil, http.StatusInternalServerError, "registration failed"
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, http.StatusInternalServerError, "registration failed"
	}
	return user, http.StatusCreated, ""
}
