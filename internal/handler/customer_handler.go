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

// CustomerHandler serves CRUD for customers.
type CustomerHandler struct {
	customers repository.CustomerRepository
}

// NewCustomerHandler creates the customer handler.
func NewCustomerHandler(customers repository.CustomerRepository) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// List returns the caller's tenant's customers.
func (h *CustomerHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("customer", "list")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	customers, err := h.customers.ListByTenant(c.Request().Context(), identity.TenantID)
	if err != nil {
		log.Error("Failed to list customers", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve customers"})
	}

	return c.JSON(http.StatusOK, echo.Map{"customers": customers})
}

// Get returns a single customer.
func (h *CustomerHandler) Get(c echo.Context) error {
	prometheus.RecordEntityOperation("customer", "get")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	customer, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	return c.JSON(http.StatusOK, customer)
}

// Create adds a customer to the caller's tenant.
func (h *CustomerHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("customer", "create")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name    string  `json:"name"`
		Revenue float64 `json:"revenue"`
		Status  string  `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: name"})
	}
	if req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: status"})
	}

	customer := &model.Customer{
		TenantID: identity.TenantID,
		Name:     req.Name,
		Revenue:  req.Revenue,
		Status:   req.Status,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.customers.Create(c.Request().Context(), customer); err != nil {
		log.Error("Failed to create customer", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create customer"})
	}

	log.Info("Customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("tenant_id", customer.TenantID.String()))

	return c.JSON(http.StatusCreated, customer)
}

// Update applies a partial update.
func (h *CustomerHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("customer", "update")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	customer, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	data := map[string]interface{}{}
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if raw, ok := data["name"]; ok {
		name, ok := raw.(string)
		if !ok || name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: name"})
		}
		customer.Name = name
	}
	if raw, ok := data["revenue"]; ok {
		revenue, ok := raw.(float64)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid revenue value"})
		}
		customer.Revenue = revenue
	}
	if raw, ok := data["status"]; ok {
		status, ok := raw.(string)
		if !ok || status == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required field: status"})
		}
		customer.Status = status
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.customers.Save(c.Request().Context(), customer); err != nil {
		log.Error("Failed to update customer", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update customer"})
	}

	return c.JSON(http.StatusOK, customer)
}

// Delete removes a customer. Link rows to ideas and feedback go with it.
func (h *CustomerHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("customer", "delete")

	identity, ok := guard.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	customer, errResp := h.loadGuarded(c, identity)
	if errResp != nil {
		return errResp(c)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.customers.Delete(c.Request().Context(), customer); err != nil {
		log.Error("Failed to delete customer", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete customer"})
	}

	log.Info("Customer deleted", zap.String("customer_id", customer.ID.String()))

	return c.NoContent(http.StatusNoContent)
}

func (h *CustomerHandler) loadGuarded(c echo.Context, identity guard.Identity) (*model.Customer, func(echo.Context) error) {
	id, err := parseID(c)
	if err != nil {
		return nil, respondError(http.StatusBadRequest, "Invalid id format")
	}

	customer, err := h.customers.GetByID(c.Request().Context(), id)
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
