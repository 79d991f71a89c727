package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap-service/internal/model"
)

type commentFixture struct {
	handler     *CommentHandler
	comments    *fakeComments
	ideas       *fakeIdeas
	feedback    *fakeFeedback
	initiatives *fakeInitiatives
}

func newCommentFixture() *commentFixture {
	ideas := newFakeIdeas()
	feedback := newFakeFeedback()
	initiatives := newFakeInitiatives()
	comments := newFakeComments(ideas, feedback, initiatives)
	return &commentFixture{
		handler:     NewCommentHandler(comments),
		comments:    comments,
		ideas:       ideas,
		feedback:    feedback,
		initiatives: initiatives,
	}
}

func (f *commentFixture) seedIdea(tenantID uuid.UUID) *model.Idea {
	idea := &model.Idea{
		ID: uuid.New(), TenantID: tenantID,
		Title: "An idea", Priority: "high", Effort: "M", Source: "sales", Status: "new",
	}
	f.ideas.rows[idea.ID] = idea
	return idea
}

func TestCommentCreateOnIdea(t *testing.T) {
	f := newCommentFixture()
	tenantID := uuid.New()
	idea := f.seedIdea(tenantID)
	identity := userIdentity(tenantID)

	c, rec := newTestContext(t, http.MethodPost, "/api/comments", map[string]interface{}{
		"content":     "Looks promising",
		"entity_type": "idea",
		"entity_id":   idea.ID.String(),
	})
	withIdentity(c, identity)

	require.NoError(t, f.handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, f.comments.rows, 1)
	for _, comment := range f.comments.rows {
		assert.Equal(t, identity.UserID, comment.UserID)
		assert.Equal(t, model.EntityTypeIdea, comment.EntityType)
		assert.Equal(t, idea.ID, comment.EntityID)
	}
}

func TestCommentCreateCrossTenantTargetForbidden(t *testing.T) {
	f := newCommentFixture()
	idea := f.seedIdea(uuid.New())

	c, rec := newTestContext(t, http.MethodPost, "/api/comments", map[string]interface{}{
		"content":     "Sneaky",
		"entity_type": "idea",
		"entity_id":   idea.ID.String(),
	})
	withIdentity(c, userIdentity(uuid.New()))

	require.NoError(t, f.handler.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.comments.rows)
}

func TestCommentCreateInvalidEntityType(t *testing.T) {
	f := newCommentFixture()

	c, rec := newTestContext(t, http.MethodPost, "/api/comments", map[string]interface{}{
		"content":     "On what?",
		"entity_type": "goal",
		"entity_id":   uuid.New().String(),
	})
	withIdentity(c, userIdentity(uuid.New()))

	require.NoError(t, f.handler.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid entity_type. Must be one of: idea, feedback, initiative", decodeBody(t, rec)["error"])
}

func TestCommentCreateMissingTarget(t *testing.T) {
	f := newCommentFixture()

	c, rec := newTestContext(t, http.MethodPost, "/api/comments", map[string]interface{}{
		"content":     "Ghost target",
		"entity_type": "feedback",
		"entity_id":   uuid.New().String(),
	})
	withIdentity(c, userIdentity(uuid.New()))

	require.NoError(t, f.handler.Create(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Entity not found", decodeBody(t, rec)["error"])
}

func TestCommentListByEntity(t *testing.T) {
	f := newCommentFixture()
	tenantID := uuid.New()
	idea := f.seedIdea(tenantID)
	other := f.seedIdea(tenantID)

	for i := 0; i < 2; i++ {
		f.comments.rows[uuid.New()] = &model.Comment{
			ID: uuid.New(), UserID: uuid.New(), Content: "on idea",
			EntityType: model.EntityTypeIdea, EntityID: idea.ID,
		}
	}
	f.comments.rows[uuid.New()] = &model.Comment{
		ID: uuid.New(), UserID: uuid.New(), Content: "elsewhere",
		EntityType: model.EntityTypeIdea, EntityID: other.ID,
	}

	c, rec := newTestContext(t, http.MethodGet, "/api/comments?entity_type=idea&entity_id="+idea.ID.String(), nil)
	withIdentity(c, userIdentity(tenantID))

	require.NoError(t, f.handler.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["comments"].([]interface{}), 2)
}

func TestCommentGetIncludesTargetType(t *testing.T) {
	f := newCommentFixture()
	tenantID := uuid.New()
	idea := f.seedIdea(tenantID)

	comment := &model.Comment{
		ID: uuid.New(), UserID: uuid.New(), Content: "readable by anyone in the tenant",
		EntityType: model.EntityTypeIdea, EntityID: idea.ID,
	}
	f.comments.rows[comment.ID] = comment

	// Any tenant member may read, not just the author
	c, rec := newTestContext(t, http.MethodGet, "/api/comments/"+comment.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(comment.ID.String())
	withIdentity(c, userIdentity(tenantID))

	require.NoError(t, f.handler.Get(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "idea", body["entity_type"])
	assert.Equal(t, "readable by anyone in the tenant", body["comment"].(map[string]interface{})["content"])
}

func TestCommentUpdateAuthorOnly(t *testing.T) {
	f := newCommentFixture()
	tenantID := uuid.New()
	idea := f.seedIdea(tenantID)

	author := userIdentity(tenantID)
	comment := &model.Comment{
		ID: uuid.New(), UserID: author.UserID, Content: "original",
		EntityType: model.EntityTypeIdea, EntityID: idea.ID,
	}
	f.comments.rows[comment.ID] = comment

	// Another regular user in the same tenant may not edit
	c, rec := newTestContext(t, http.MethodPut, "/api/comments/"+comment.ID.String(), map[string]interface{}{
		"content": "hijacked",
	})
	c.SetParamNames("id")
	c.SetParamValues(comment.ID.String())
	withIdentity(c, userIdentity(tenantID))

	require.NoError(t, f.handler.Update(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "original", f.comments.rows[comment.ID].Content)

	// The author may
	c, rec = newTestContext(t, http.MethodPut, "/api/comments/"+comment.ID.String(), map[string]interface{}{
		"content": "edited",
	})
	c.SetParamNames("id")
	c.SetParamValues(comment.ID.String())
	withIdentity(c, author)

	require.NoError(t, f.handler.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", f.comments.rows[comment.ID].Content)
}

func TestCommentDeleteAdminOverride(t *testing.T) {
	f := newCommentFixture()
	tenantID := uuid.New()
	idea := f.seedIdea(tenantID)

	comment := &model.Comment{
		ID: uuid.New(), UserID: uuid.New(), Content: "by someone else",
		EntityType: model.EntityTypeIdea, EntityID: idea.ID,
	}
	f.comments.rows[comment.ID] = comment

	c, rec := newTestContext(t, http.MethodDelete, "/api/comments/"+comment.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(comment.ID.String())
	withIdentity(c, adminIdentity(tenantID))

	require.NoError(t, f.handler.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.comments.rows)
}

func TestCommentUpdateCrossTenantForbidden(t *testing.T) {
	f := newCommentFixture()
	idea := f.seedIdea(uuid.New())

	comment := &model.Comment{
		ID: uuid.New(), UserID: uuid.New(), Content: "theirs",
		EntityType: model.EntityTypeIdea, EntityID: idea.ID,
	}
	f.comments.rows[comment.ID] = comment

	c, rec := newTestContext(t, http.MethodDelete, "/api/comments/"+comment.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(comment.ID.String())
	withIdentity(c, adminIdentity(uuid.New()))

	require.NoError(t, f.handler.Delete(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, f.comments.rows, comment.ID)
}
