package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap-service/internal/model"
)

func TestInitiativeCreatePriorityBounds(t *testing.T) {
	tenantID := uuid.New()

	cases := []struct {
		priority interface{}
		wantCode int
		wantErr  string
	}{
		{0, http.StatusBadRequest, "Priority must be between 1 and 5"},
		{6, http.StatusBadRequest, "Priority must be between 1 and 5"},
		{2.5, http.StatusBadRequest, "Priority must be an integer between 1 and 5"},
		{"3", http.StatusBadRequest, "Priority must be an integer between 1 and 5"},
		{1, http.StatusCreated, ""},
		{5, http.StatusCreated, ""},
	}

	for _, tc := range cases {
		h := NewInitiativeHandler(newFakeInitiatives(), newFakeGoals())
		c, rec := newTestContext(t, http.MethodPost, "/api/initiatives", map[string]interface{}{
			"title":    "Ship it",
			"status":   "active",
			"priority": tc.priority,
		})
		withIdentity(c, userIdentity(tenantID))

		require.NoError(t, h.Create(c))
		assert.Equal(t, tc.wantCode, rec.Code, "priority %v", tc.priority)
		if tc.wantErr != "" {
			assert.Equal(t, tc.wantErr, decodeBody(t, rec)["error"], "priority %v", tc.priority)
		}
	}
}

func TestInitiativeCreateRejectsBadStatus(t *testing.T) {
	h := NewInitiativeHandler(newFakeInitiatives(), newFakeGoals())

	c, rec := newTestContext(t, http.MethodPost, "/api/initiatives", map[string]interface{}{
		"title":    "Ship it",
		"status":   "done",
		"priority": 3,
	})
	withIdentity(c, userIdentity(uuid.New()))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid status. Must be one of: active, planned, completed", decodeBody(t, rec)["error"])
}

func TestInitiativeCreateMissingFields(t *testing.T) {
	h := NewInitiativeHandler(newFakeInitiatives(), newFakeGoals())

	c, rec := newTestContext(t, http.MethodPost, "/api/initiatives", map[string]interface{}{
		"title": "Ship it",
	})
	withIdentity(c, userIdentity(uuid.New()))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required field: status", decodeBody(t, rec)["error"])
}

func TestInitiativeCreateForeignGoalForbidden(t *testing.T) {
	goals := newFakeGoals()
	h := NewInitiativeHandler(newFakeInitiatives(), goals)

	foreignGoal := &model.Goal{ID: uuid.New(), TenantID: uuid.New(), Title: "Theirs"}
	goals.rows[foreignGoal.ID] = foreignGoal

	c, rec := newTestContext(t, http.MethodPost, "/api/initiatives", map[string]interface{}{
		"title":    "Ship it",
		"status":   "active",
		"priority": 3,
		"goal_id":  foreignGoal.ID.String(),
	})
	withIdentity(c, userIdentity(uuid.New()))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access forbidden", decodeBody(t, rec)["error"])
}

func TestInitiativeCreateMissingGoal(t *testing.T) {
	h := NewInitiativeHandler(newFakeInitiatives(), newFakeGoals())

	c, rec := newTestContext(t, http.MethodPost, "/api/initiatives", map[string]interface{}{
		"title":    "Ship it",
		"status":   "active",
		"priority": 3,
		"goal_id":  uuid.New().String(),
	})
	withIdentity(c, userIdentity(uuid.New()))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Goal not found", decodeBody(t, rec)["error"])
}

func TestInitiativeListFiltersAndOrders(t *testing.T) {
	initiatives := newFakeInitiatives()
	h := NewInitiativeHandler(initiatives, newFakeGoals())
	tenantID := uuid.New()

	now := time.Now()
	low := &model.Initiative{ID: uuid.New(), TenantID: tenantID, Title: "low", Status: "active", Priority: 1, CreatedAt: now}
	high := &model.Initiative{ID: uuid.New(), TenantID: tenantID, Title: "high", Status: "active", Priority: 5, CreatedAt: now.Add(time.Minute)}
	planned := &model.Initiative{ID: uuid.New(), TenantID: tenantID, Title: "planned", Status: "planned", Priority: 3, CreatedAt: now}
	foreign := &model.Initiative{ID: uuid.New(), TenantID: uuid.New(), Title: "foreign", Status: "active", Priority: 4, CreatedAt: now}
	for _, initiative := range []*model.Initiative{low, high, planned, foreign} {
		initiatives.rows[initiative.ID] = initiative
	}

	c, rec := newTestContext(t, http.MethodGet, "/api/initiatives?status=active", nil)
	withIdentity(c, userIdentity(tenantID))

	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	listed := body["initiatives"].([]interface{})
	require.Len(t, listed, 2)
	assert.Equal(t, "high", listed[0].(map[string]interface{})["title"])
	assert.Equal(t, "low", listed[1].(map[string]interface{})["title"])
}

func TestInitiativeListRejectsBadGoalID(t *testing.T) {
	h := NewInitiativeHandler(newFakeInitiatives(), newFakeGoals())

	c, rec := newTestContext(t, http.MethodGet, "/api/initiatives?goal_id=not-a-uuid", nil)
	withIdentity(c, userIdentity(uuid.New()))

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid goal_id format", decodeBody(t, rec)["error"])
}

func TestInitiativeUpdateDetachesGoal(t *testing.T) {
	initiatives := newFakeInitiatives()
	h := NewInitiativeHandler(initiatives, newFakeGoals())
	tenantID := uuid.New()

	goalID := uuid.New()
	initiative := &model.Initiative{ID: uuid.New(), TenantID: tenantID, GoalID: &goalID, Title: "Attached", Status: "active", Priority: 2}
	initiatives.rows[initiative.ID] = initiative

	c, rec := newTestContext(t, http.MethodPut, "/api/initiatives/"+initiative.ID.String(), map[string]interface{}{
		"goal_id": nil,
	})
	c.SetParamNames("id")
	c.SetParamValues(initiative.ID.String())
	withIdentity(c, userIdentity(tenantID))

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, initiatives.rows[initiative.ID].GoalID)
}

func TestInitiativeDeleteCrossTenantForbidden(t *testing.T) {
	initiatives := newFakeInitiatives()
	h := NewInitiativeHandler(initiatives, newFakeGoals())

	initiative := &model.Initiative{ID: uuid.New(), TenantID: uuid.New(), Title: "Theirs", Status: "active", Priority: 1}
	initiatives.rows[initiative.ID] = initiative

	c, rec := newTestContext(t, http.MethodDelete, "/api/initiatives/"+initiative.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(initiative.ID.String())
	withIdentity(c, adminIdentity(uuid.New()))

	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, initiatives.rows, initiative.ID)
}
