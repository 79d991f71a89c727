package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"roadmap-service/internal/guard"
	"roadmap-service/internal/middleware"
	"roadmap-service/internal/model"
	"roadmap-service/internal/repository"
	"roadmap-service/pkg/jwtutil"
	"roadmap-service/pkg/logger"
	"roadmap-service/prometheus"
)

// AuthHandler serves login, token refresh and registration.
type AuthHandler struct {
	users         repository.UserRepository
	tenants       repository.TenantRepository
	jwt           *jwtutil.JWTUtil
	secureCookies bool
}

// NewAuthHandler creates the auth handler. secureCookies should be true in
// production so the access-token cookie is HTTPS-only.
func NewAuthHandler(users repository.UserRepository, tenants repository.TenantRepository, jwt *jwtutil.JWTUtil, secureCookies bool) *AuthHandler {
	return &AuthHandler{users: users, tenants: tenants, jwt: jwt, secureCookies: secureCookies}
}

// Login authenticates a user by email and password. When a domain is
// supplied the lookup is scoped to that tenant; otherwise the first user
// matching the email is taken. Every credential failure returns the same
// generic message.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Domain   string `json:"domain"`
	}
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email and password required"})
	}

	ctx := c.Request().Context()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenant *model.Tenant
	var user *model.User
	var err error

	if req.Domain != "" {
		tenant, err = h.tenants.GetByDomain(ctx, req.Domain)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				prometheus.RecordAuthError("tenant_not_found")
				return c.JSON(http.StatusNotFound, echo.Map{"error": "No organization found for this domain"})
			}
			log.Error("Failed to resolve tenant by domain", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
		}
		user, err = h.users.GetByTenantAndEmail(ctx, tenant.ID, req.Email)
	} else {
		user, err = h.users.GetByEmail(ctx, req.Email)
	}

	// Same response whether the email was unknown or the password wrong.
	if err != nil || !user.CheckPassword(req.Password) {
		log.Warn("Login failed", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	}

	if tenant == nil {
		tenant, err = h.tenants.GetByID(ctx, user.TenantID)
		if err != nil {
			log.Error("Failed to load tenant for user", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
		}
	}

	accessToken, refreshToken, err := h.issueTokens(user)
	if err != nil {
		log.Error("Failed to generate tokens", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	h.setAccessCookie(c, accessToken)
	prometheus.IncreaseActiveTokens()

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("tenant_id", user.TenantID.String()),
		zap.String("role", user.Role))

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          userJSON(user),
		"tenant": echo.Map{
			"id":          tenant.ID,
			"domain_name": tenant.DomainName,
		},
	})
}

// Refresh exchanges a valid refresh token for a new access token. The
// tenant claim carries over unchanged; the user row is re-loaded so a
// deleted account cannot refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RefreshCounter.Inc()

	tokenString := bearerToken(c)
	if tokenString == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.Bind(&req); err == nil {
			tokenString = req.RefreshToken
		}
	}
	if tokenString == "" {
		prometheus.RecordAuthError("missing_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing refresh token"})
	}

	claims, err := h.jwt.ValidateRefreshToken(tokenString)
	if err != nil {
		log.Warn("Invalid refresh token", zap.Error(err))
		prometheus.RecordAuthError("invalid_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	user, err := h.users.GetByID(c.Request().Context(), claims.UserID)
	if err != nil {
		log.Warn("Refresh for missing user", zap.String("user_id", claims.UserID.String()))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	accessToken, err := h.jwt.GenerateAccessToken(user.ID, claims.TenantID, user.Email, user.Role)
	if err != nil {
		log.Error("Failed to generate access token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	h.setAccessCookie(c, accessToken)

	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}

// RegisterTenant registers a new organization with its founding admin, or
// adds a regular user to an existing organization when the domain is
// already taken.
func (h *AuthHandler) RegisterTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		DomainName string `json:"domain_name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		PlanTier   string `json:"plan_tier"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	switch {
	case req.DomainName == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: domain_name"})
	case req.Email == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: email"})
	case req.Password == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: password"})
	}
	if !model.ValidDomainName(req.DomainName) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid domain name format"})
	}
	if msg := validateCredentials(req.Email, req.Password); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	tenant, err := h.tenants.GetByDomain(ctx, req.DomainName)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error("Failed to look up tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	if tenant != nil {
		// Domain exists: join the organization as a regular user.
		user, status, msg := h.createUser(ctx, tenant.ID, req.Email, req.Password, model.RoleUser)
		if msg != "" {
			return c.JSON(status, echo.Map{"error": msg})
		}
		return h.respondRegistered(c, tenant, user, false)
	}

	planTier := req.PlanTier
	if planTier == "" {
		planTier = "basic"
	}

	tenant = &model.Tenant{DomainName: req.DomainName, PlanTier: planTier}
	admin := &model.User{Email: req.Email, Role: model.RoleAdmin}
	if err := admin.SetPassword(req.Password); err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Tenant and founding admin are persisted atomically.
	if err := h.tenants.CreateWithAdmin(ctx, tenant, admin); err != nil {
		log.Error("Failed to create tenant", zap.Error(err))
		prometheus.RecordAuthError("tenant_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("Tenant registered",
		zap.String("domain_name", tenant.DomainName),
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("admin_id", admin.ID.String()))

	return h.respondRegistered(c, tenant, admin, true)
}

// RegisterUser adds a user to the caller's tenant. Admin only; the tenant
// always comes from the caller's identity, never from the request body.
func (h *AuthHandler) RegisterUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

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

	user, status, msg := h.createUser(c.Request().Context(), identity.TenantID, req.Email, req.Password, req.Role)
	if msg != "" {
		return c.JSON(status, echo.Map{"error": msg})
	}

	accessToken, refreshToken, err := h.issueTokens(user)
	if err != nil {
		log.Error("Failed to generate tokens", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User registered",
		zap.String("email", user.Email),
		zap.String("tenant_id", user.TenantID.String()),
		zap.String("role", user.Role))

	return c.JSON(http.StatusCreated, echo.Map{
		"user":          userJSON(user),
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Logout clears the access-token cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	prometheus.DecreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// createUser validates and persists a user inside the given tenant.
// Returns a status code and error message when validation fails.
func (h *AuthHandler) createUser(ctx context.Context, tenantID uuid.UUID, email, password, role string) (*model.User, int, string) {
	return provisionUser(ctx, h.users, h.tenants, tenantID, email, password, role)
}

func (h *AuthHandler) respondRegistered(c echo.Context, tenant *model.Tenant, user *model.User, includeTenant bool) error {
	accessToken, refreshToken, err := h.issueTokens(user)
	if err != nil {
		logger.FromContext(c).Error("Failed to generate tokens", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	h.setAccessCookie(c, accessToken)

	response := echo.Map{
		"user":          userJSON(user),
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	}
	if includeTenant {
		response["tenant"] = echo.Map{
			"id":          tenant.ID,
			"domain_name": tenant.DomainName,
			"plan_tier":   tenant.PlanTier,
		}
	}
	return c.JSON(http.StatusCreated, response)
}

func (h *AuthHandler) issueTokens(user *model.User) (string, string, error) {
	accessToken, err := h.jwt.GenerateAccessToken(user.ID, user.TenantID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := h.jwt.GenerateRefreshToken(user.ID, user.TenantID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (h *AuthHandler) setAccessCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// validateCredentials checks email format and password length; empty string
// means valid.
func validateCredentials(email, password string) string {
	if !model.ValidEmail(email) {
		return "Invalid email format"
	}
	if len(password) < model.MinPasswordLength {
		return "Password must be at least 8 characters"
	}
	return ""
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func userJSON(user *model.User) echo.Map {
	return echo.Map{
		"id":        user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"tenant_id": user.TenantID,
	}
}
