package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap-service/internal/model"
)

func newUserFixture(t *testing.T) (*UserHandler, *fakeUsers, *fakeTenants, *model.Tenant, *model.User) {
	t.Helper()
	users := newFakeUsers()
	tenants := newFakeTenants(users)
	tenant, admin := seedTenantWithAdmin(t, users, tenants, "acme.com", "admin@acme.com", "supersecret")
	return NewUserHandler(users, tenants), users, tenants, tenant, admin
}

func seedUser(t *testing.T, users *fakeUsers, tenantID uuid.UUID, email string) *model.User {
	t.Helper()
	user := &model.User{ID: uuid.New(), TenantID: tenantID, Email: email, Role: model.RoleUser}
	require.NoError(t, user.SetPassword("longenough"))
	users.rows[user.ID] = user
	return user
}

func TestUserListScopedToTenant(t *testing.T) {
	h, users, _, tenant, _ := newUserFixture(t)
	seedUser(t, users, tenant.ID, "member@acme.com")
	seedUser(t, users, uuid.New(), "stranger@globex.com")

	c, rec := newTestContext(t, http.MethodGet, "/api/users", nil)
	withIdentity(c, userIdentity(tenant.ID))

	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["users"].([]interface{}), 2)
}

func TestUserGetCrossTenantNotAuthorized(t *testing.T) {
	h, users, _, tenant, _ := newUserFixture(t)
	stranger := seedUser(t, users, uuid.New(), "stranger@globex.com")

	c, rec := newTestContext(t, http.MethodGet, "/api/users/"+stranger.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(stranger.ID.String())
	withIdentity(c, adminIdentity(tenant.ID))

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized", decodeBody(t, rec)["error"])
}

func TestUserCreateRequiresAdmin(t *testing.T) {
	h, _, _, tenant, _ := newUserFixture(t)

	c, rec := newTestContext(t, http.MethodPost, "/api/users", map[string]interface{}{
		"email":    "newhire@acme.com",
		"password": "longenough",
		"role":     "user",
	})
	withIdentity(c, userIdentity(tenant.ID))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin role required", decodeBody(t, rec)["error"])
}

func TestUserCreateByAdmin(t *testing.T) {
	h, users, _, tenant, admin := newUserFixture(t)

	c, rec := newTestContext(t, http.MethodPost, "/api/users", map[string]interface{}{
		"email":    "newhire@acme.com",
		"password": "longenough",
		"role":     "user",
	})
	withIdentity(c, guardIdentityFor(admin))

	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	created, err := users.GetByTenantAndEmail(c.Request().Context(), tenant.ID, "newhire@acme.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, created.Role)
	assert.True(t, created.CheckPassword("longenough"))
}

func TestUserUpdateSelf(t *testing.T) {
	h, users, _, tenant, _ := newUserFixture(t)
	member := seedUser(t, users, tenant.ID, "member@acme.com")

	c, rec := newTestContext(t, http.MethodPut, "/api/users/"+member.ID.String(), map[string]interface{}{
		"email": "renamed@acme.com",
	})
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())
	withIdentity(c, guardIdentityFor(member))

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed@acme.com", users.rows[member.ID].Email)
}

func TestUserUpdateOtherUserRequiresAdmin(t *testing.T) {
	h, users, _, tenant, _ := newUserFixture(t)
	member := seedUser(t, users, tenant.ID, "member@acme.com")
	other := seedUser(t, users, tenant.ID, "other@acme.com")

	c, rec := newTestContext(t, http.MethodPut, "/api/users/"+other.ID.String(), map[string]interface{}{
		"email": "hacked@acme.com",
	})
	c.SetParamNames("id")
	c.SetParamValues(other.ID.String())
	withIdentity(c, guardIdentityFor(member))

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "other@acme.com", users.rows[other.ID].Email)
}

func TestUserRoleChangeRequiresAdmin(t *testing.T) {
	h, users, _, tenant, _ := newUserFixture(t)
	member := seedUser(t, users, tenant.ID, "member@acme.com")

	// Self-update may not escalate the role
	c, rec := newTestContext(t, http.MethodPut, "/api/users/"+member.ID.String(), map[string]interface{}{
		"role": "admin",
	})
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())
	withIdentity(c, guardIdentityFor(member))

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin role required to change user roles", decodeBody(t, rec)["error"])
	assert.Equal(t, model.RoleUser, users.rows[member.ID].Role)
}

func TestUserRoleChangeByAdmin(t *testing.T) {
	h, users, _, tenant, admin := newUserFixture(t)
	member := seedUser(t, users, tenant.ID, "member@acme.com")

	c, rec := newTestContext(t, http.MethodPut, "/api/users/"+member.ID.String(), map[string]interface{}{
		"role": "admin",
	})
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())
	withIdentity(c, guardIdentityFor(admin))

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleAdmin, users.rows[member.ID].Role)
}

func TestUserUpdateDuplicateEmail(t *testing.T) {
	h, users, _, tenant, admin := newUserFixture(t)
	member := seedUser(t, users, tenant.ID, "member@acme.com")

	c, rec := newTestContext(t, http.MethodPut, "/api/users/"+member.ID.String(), map[string]interface{}{
		"email": "admin@acme.com",
	})
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())
	withIdentity(c, guardIdentityFor(admin))

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already in use within this tenant", decodeBody(t, rec)["error"])
}

func TestUserDeleteRequiresAdmin(t *testing.T) {
	h, users, _, tenant, _ := newUserFixture(t)
	member := seedUser(t, users, tenant.ID, "member@acme.com")
	other := seedUser(t, users, tenant.ID, "other@acme.com")

	c, rec := newTestContext(t, http.MethodDelete, "/api/users/"+other.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(other.ID.String())
	withIdentity(c, guardIdentityFor(member))

	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, users.rows, other.ID)
}

func TestUserCannotDeleteSelf(t *testing.T) {
	h, users, _, _, admin := newUserFixture(t)

	c, rec := newTestContext(t, http.MethodDelete, "/api/users/"+admin.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(admin.ID.String())
	withIdentity(c, guardIdentityFor(admin))

	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete yourself", decodeBody(t, rec)["error"])
	require.Contains(t, users.rows, admin.ID)
}

func TestUserDeleteByAdmin(t *testing.T) {
	h, users, _, tenant, admin := newUserFixture(t)
	member := seedUser(t, users, tenant.ID, "member@acme.com")

	c, rec := newTestContext(t, http.MethodDelete, "/api/users/"+member.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())
	withIdentity(c, guardIdentityFor(admin))

	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, users.rows, member.ID)
}
