package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"roadmap-service/internal/guard"
	"roadmap-service/internal/model"
	"roadmap-service/internal/repository"
)

// In-memory stores backing handler tests. They honor the repository
// contracts: ErrNotFound on missing rows, ids assigned on create.

type fakeTenants struct {
	rows  map[uuid.UUID]*model.Tenant
	users *fakeUsers
}

func newFakeTenants(users *fakeUsers) *fakeTenants {
	return &fakeTenants{rows: map[uuid.UUID]*model.Tenant{}, users: users}
}

func (f *fakeTenants) GetByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	if tenant, ok := f.rows[id]; ok {
		return tenant, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTenants) GetByDomain(_ context.Context, domain string) (*model.Tenant, error) {
	for _, tenant := range f.rows {
		if tenant.DomainName == domain {
			return tenant, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTenants) CreateWithAdmin(_ context.Context, tenant *model.Tenant, admin *model.User) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	admin.TenantID = tenant.ID
	f.rows[tenant.ID] = tenant
	if f.users != nil {
		f.users.rows[admin.ID] = admin
	}
	return nil
}

func (f *fakeTenants) Save(_ context.Context, tenant *model.Tenant) error {
	f.rows[tenant.ID] = tenant
	return nil
}

func (f *fakeTenants) Delete(_ context.Context, tenant *model.Tenant) error {
	delete(f.rows, tenant.ID)
	return nil
}

type fakeUsers struct {
	rows map[uuid.UUID]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: map[uuid.UUID]*model.User{}}
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if user, ok := f.rows[id]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range f.rows {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByTenantAndEmail(_ context.Context, tenantID uuid.UUID, email string) (*model.User, error) {
	for _, user := range f.rows {
		if user.TenantID == tenantID && user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]model.User, error) {
	var users []model.User
	for _, user := range f.rows {
		if user.TenantID == tenantID {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.rows[user.ID] = user
	return nil
}

func (f *fakeUsers) Save(_ context.Context, user *model.User) error {
	f.rows[user.ID] = user
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, user *model.User) error {
	delete(f.rows, user.ID)
	return nil
}

type fakeGoals struct {
	rows        map[uuid.UUID]*model.Goal
	initiatives *fakeInitiatives
}

func newFakeGoals() *fakeGoals {
	return &fakeGoals{rows: map[uuid.UUID]*model.Goal{}}
}

func (f *fakeGoals) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]model.Goal, error) {
	var goals []model.Goal
	for _, goal := range f.rows {
		if goal.TenantID == tenantID {
			goals = append(goals, *goal)
		}
	}
	return goals, nil
}

func (f *fakeGoals) InitiativeCount(_ context.Context, goalID uuid.UUID) (int64, error) {
	if f.initiatives == nil {
		return 0, nil
	}
	var count int64
	for _, initiative := range f.initiatives.rows {
		if initiative.GoalID != nil && *initiative.GoalID == goalID {
			count++
		}
	}
	return count, nil
}

func (f *fakeGoals) GetByID(_ context.Context, id uuid.UUID) (*model.Goal, error) {
	if goal, ok := f.rows[id]; ok {
		return goal, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeGoals) Create(_ context.Context, goal *model.Goal) error {
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	f.rows[goal.ID] = goal
	return nil
}

func (f *fakeGoals) Save(_ context.Context, goal *model.Goal) error {
	f.rows[goal.ID] = goal
	return nil
}

func (f *fakeGoals) Delete(_ context.Context, goal *model.Goal) error {
	delete(f.rows, goal.ID)
	if f.initiatives != nil {
		for _, initiative := range f.initiatives.rows {
			if initiative.GoalID != nil && *initiative.GoalID == goal.ID {
				initiative.GoalID = nil
			}
		}
	}
	return nil
}

type fakeInitiatives struct {
	rows map[uuid.UUID]*model.Initiative
}

func newFakeInitiatives() *fakeInitiatives {
	return &fakeInitiatives{rows: map[uuid.UUID]*model.Initiative{}}
}

func (f *fakeInitiatives) ListByTenant(_ context.Context, tenantID uuid.UUID, filter repository.InitiativeFilter) ([]model.Initiative, error) {
	var initiatives []model.Initiative
	for _, initiative := range f.rows {
		if initiative.TenantID != tenantID {
			continue
		}
		if filter.GoalID != nil && (initiative.GoalID == nil || *initiative.GoalID != *filter.GoalID) {
			continue
		}
		if filter.Status != "" && initiative.Status != filter.Status {
			continue
		}
		initiatives = append(initiatives, *initiative)
	}
	sort.Slice(initiatives, func(i, j int) bool {
		if initiatives[i].Priority != initiatives[j].Priority {
			return initiatives[i].Priority > initiatives[j].Priority
		}
		return initiatives[i].CreatedAt.Before(initiatives[j].CreatedAt)
	})
	return initiatives, nil
}

func (f *fakeInitiatives) GetByID(_ context.Context, id uuid.UUID) (*model.Initiative, error) {
	if initiative, ok := f.rows[id]; ok {
		return initiative, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeInitiatives) Create(_ context.Context, initiative *model.Initiative) error {
	if initiative.ID == uuid.Nil {
		initiative.ID = uuid.New()
	}
	if initiative.CreatedAt.IsZero() {
		initiative.CreatedAt = time.Now()
	}
	f.rows[initiative.ID] = initiative
	return nil
}

func (f *fakeInitiatives) Save(_ context.Context, initiative *model.Initiative) error {
	f.rows[initiative.ID] = initiative
	return nil
}

func (f *fakeInitiatives) Delete(_ context.Context, initiative *model.Initiative) error {
	delete(f.rows, initiative.ID)
	return nil
}

type fakeIdeas struct {
	rows      map[uuid.UUID]*model.Idea
	customers map[uuid.UUID][]uuid.UUID
}

func newFakeIdeas() *fakeIdeas {
	return &fakeIdeas{rows: map[uuid.UUID]*model.Idea{}, customers: map[uuid.UUID][]uuid.UUID{}}
}

func (f *fakeIdeas) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]model.Idea, error) {
	var ideas []model.Idea
	for _, idea := range f.rows {
		if idea.TenantID == tenantID {
			ideas = append(ideas, *idea)
		}
	}
	return ideas, nil
}

func (f *fakeIdeas) GetByID(_ context.Context, id uuid.UUID) (*model.Idea, error) {
	if idea, ok := f.rows[id]; ok {
		return idea, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIdeas) Create(_ context.Context, idea *model.Idea) error {
	if idea.ID == uuid.Nil {
		idea.ID = uuid.New()
	}
	f.rows[idea.ID] = idea
	return nil
}

func (f *fakeIdeas) Save(_ context.Context, idea *model.Idea) error {
	f.rows[idea.ID] = idea
	return nil
}

func (f *fakeIdeas) Delete(_ context.Context, idea *model.Idea) error {
	delete(f.rows, idea.ID)
	delete(f.customers, idea.ID)
	return nil
}

func (f *fakeIdeas) AddCustomer(_ context.Context, idea *model.Idea, customer *model.Customer) error {
	f.customers[idea.ID] = append(f.customers[idea.ID], customer.ID)
	return nil
}

func (f *fakeIdeas) RemoveCustomer(_ context.Context, idea *model.Idea, customer *model.Customer) error {
	linked := f.customers[idea.ID]
	for i, id := range linked {
		if id == customer.ID {
			f.customers[idea.ID] = append(linked[:i], linked[i+1:]...)
			break
		}
	}
	return nil
}

type fakeFeedback struct {
	rows        map[uuid.UUID]*model.Feedback
	customers   map[uuid.UUID][]uuid.UUID
	initiatives map[uuid.UUID][]uuid.UUID
}

func newFakeFeedback() *fakeFeedback {
	return &fakeFeedback{
		rows:        map[uuid.UUID]*model.Feedback{},
		customers:   map[uuid.UUID][]uuid.UUID{},
		initiatives: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeFeedback) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]model.Feedback, error) {
	var entries []model.Feedback
	for _, entry := range f.rows {
		if entry.TenantID == tenantID {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (f *fakeFeedback) GetByID(_ context.Context, id uuid.UUID) (*model.Feedback, error) {
	if entry, ok := f.rows[id]; ok {
		return entry, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFeedback) Create(_ context.Context, feedback *model.Feedback) error {
	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	f.rows[feedback.ID] = feedback
	return nil
}

func (f *fakeFeedback) Save(_ context.Context, feedback *model.Feedback) error {
	f.rows[feedback.ID] = feedback
	return nil
}

func (f *fakeFeedback) Delete(_ context.Context, feedback *model.Feedback) error {
	delete(f.rows, feedback.ID)
	delete(f.customers, feedback.ID)
	delete(f.initiatives, feedback.ID)
	return nil
}

func (f *fakeFeedback) AddCustomer(_ context.Context, feedback *model.Feedback, customer *model.Customer) error {
	f.customers[feedback.ID] = append(f.customers[feedback.ID], customer.ID)
	return nil
}

func (f *fakeFeedback) RemoveCustomer(_ context.Context, feedback *model.Feedback, customer *model.Customer) error {
	linked := f.customers[feedback.ID]
	for i, id := range linked {
		if id == customer.ID {
			f.customers[feedback.ID] = append(linked[:i], linked[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeFeedback) AddInitiative(_ context.Context, feedback *model.Feedback, initiative *model.Initiative) error {
	f.initiatives[feedback.ID] = append(f.initiatives[feedback.ID], initiative.ID)
	return nil
}

func (f *fakeFeedback) RemoveInitiative(_ context.Context, feedback *model.Feedback, initiative *model.Initiative) error {
	linked := f.initiatives[feedback.ID]
	for i, id := range linked {
		if id == initiative.ID {
			f.initiatives[feedback.ID] = append(linked[:i], linked[i+1:]...)
			break
		}
	}
	return nil
}

type fakeCustomers struct {
	rows map[uuid.UUID]*model.Customer
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{rows: map[uuid.UUID]*model.Customer{}}
}

func (f *fakeCustomers) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]model.Customer, error) {
	var customers []model.Customer
	for _, customer := range f.rows {
		if customer.TenantID == tenantID {
			customers = append(customers, *customer)
		}
	}
	return customers, nil
}

func (f *fakeCustomers) GetByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	if customer, ok := f.rows[id]; ok {
		return customer, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCustomers) Create(_ context.Context, customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	f.rows[customer.ID] = customer
	return nil
}

func (f *fakeCustomers) Save(_ context.Context, customer *model.Customer) error {
	f.rows[customer.ID] = customer
	return nil
}

func (f *fakeCustomers) Delete(_ context.Context, customer *model.Customer) error {
	delete(f.rows, customer.ID)
	return nil
}

type fakeComments struct {
	rows        map[uuid.UUID]*model.Comment
	ideas       *fakeIdeas
	feedback    *fakeFeedback
	initiatives *fakeInitiatives
}

func newFakeComments(ideas *fakeIdeas, feedback *fakeFeedback, initiatives *fakeInitiatives) *fakeComments {
	return &fakeComments{
		rows:        map[uuid.UUID]*model.Comment{},
		ideas:       ideas,
		feedback:    feedback,
		initiatives: initiatives,
	}
}

func (f *fakeComments) ListByEntity(_ context.Context, entityType string, entityID uuid.UUID) ([]model.Comment, error) {
	var comments []model.Comment
	for _, comment := range f.rows {
		if comment.EntityType == entityType && comment.EntityID == entityID {
			comments = append(comments, *comment)
		}
	}
	return comments, nil
}

func (f *fakeComments) GetByID(_ context.Context, id uuid.UUID) (*model.Comment, error) {
	if comment, ok := f.rows[id]; ok {
		return comment, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeComments) Create(_ context.Context, comment *model.Comment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	f.rows[comment.ID] = comment
	return nil
}

func (f *fakeComments) Save(_ context.Context, comment *model.Comment) error {
	f.rows[comment.ID] = comment
	return nil
}

func (f *fakeComments) Delete(_ context.Context, comment *model.Comment) error {
	delete(f.rows, comment.ID)
	return nil
}

func (f *fakeComments) ResolveTarget(ctx context.Context, entityType string, entityID uuid.UUID) (*model.CommentTarget, error) {
	switch entityType {
	case model.EntityTypeIdea:
		idea, err := f.ideas.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return &model.CommentTarget{Type: entityType, Idea: idea}, nil
	case model.EntityTypeFeedback:
		feedback, err := f.feedback.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return &model.CommentTarget{Type: entityType, Feedback: feedback}, nil
	case model.EntityTypeInitiative:
		initiative, err := f.initiatives.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return &model.CommentTarget{Type: entityType, Initiative: initiative}, nil
	}
	return nil, repository.ErrNotFound
}

// Interface conformance for the fakes.
var (
	_ repository.TenantRepository     = (*fakeTenants)(nil)
	_ repository.UserRepository       = (*fakeUsers)(nil)
	_ repository.GoalRepository       = (*fakeGoals)(nil)
	_ repository.InitiativeRepository = (*fakeInitiatives)(nil)
	_ repository.IdeaRepository       = (*fakeIdeas)(nil)
	_ repository.FeedbackRepository   = (*fakeFeedback)(nil)
	_ repository.CustomerRepository   = (*fakeCustomers)(nil)
	_ repository.CommentRepository    = (*fakeComments)(nil)
)

// newTestContext builds an echo context carrying an optional JSON body.
func newTestContext(t *testing.T, method, path string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

// withIdentity stores an authenticated identity on the context, the way the
// auth middleware would.
func withIdentity(c echo.Context, identity guard.Identity) {
	c.Set(guard.ContextKey, identity)
}

// decodeBody unmarshals the recorded JSON response.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func adminIdentity(tenantID uuid.UUID) guard.Identity {
	return guard.Identity{UserID: uuid.New(), TenantID: tenantID, Email: "admin@acme.com", Role: model.RoleAdmin}
}

func userIdentity(tenantID uuid.UUID) guard.Identity {
	return guard.Identity{UserID: uuid.New(), TenantID: tenantID, Email: "user@acme.com", Role: model.RoleUser}
}

func guardIdentityFor(user *model.User) guard.Identity {
	return guard.Identity{UserID: user.ID, TenantID: user.TenantID, Email: user.Email, Role: user.Role}
}
