// Package repository defines the persistence contracts and their gorm
// implementations. Handlers depend on the interfaces only, which keeps them
// testable with in-memory fakes and keeps every query behind an explicit
// *gorm.DB handle scoped at construction time.
//
// Tenant scoping happens in one of two ways, mirroring how rows are
// addressed: list queries filter by tenant id up front, while by-id lookups
// load unscoped and rely on the caller checking the guard before using the
// row. The second form is what turns a cross-tenant id guess into a 403.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"roadmap-service/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// TenantRepository manages organizations.
type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)

	// GetByDomain resolves a tenant by its registered domain name.
	GetByDomain(ctx context.Context, domain string) (*model.Tenant, error)

	// CreateWithAdmin persists a new tenant and its founding admin user in
	// one transaction. A tenant without its first admin must never be
	// observable.
	CreateWithAdmin(ctx context.Context, tenant *model.Tenant, admin *model.User) error

	Save(ctx context.Context, tenant *model.Tenant) error

	// Delete removes the tenant. Owned rows go with it through the cascade
	// constraints declared on the models.
	Delete(ctx context.Context, tenant *model.Tenant) error
}

// UserRepository manages accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetByEmail looks a user up by email across tenants, first match.
	// Only used by login when no domain was supplied.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByTenantAndEmail is the tenant-scoped lookup; also serves as the
	// duplicate-email check on registration.
	GetByTenantAndEmail(ctx context.Context, tenantID uuid.UUID, email string) (*model.User, error)

	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.User, error)
	Create(ctx context.Context, user *model.User) error
	Save(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, user *model.User) error
}

// GoalRepository manages goals.
type GoalRepository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Goal, error)

	// InitiativeCount returns how many initiatives reference the goal.
	InitiativeCount(ctx context.Context, goalID uuid.UUID) (int64, error)

	GetByID(ctx context.Context, id uuid.UUID) (*model.Goal, error)
	Create(ctx context.Context, goal *model.Goal) error
	Save(ctx context.Context, goal *model.Goal) error

	// Delete removes the goal; its initiatives survive with goal_id nulled.
	Delete(ctx context.Context, goal *model.Goal) error
}

// InitiativeFilter narrows an initiative listing. Zero values mean no
// filtering on that field.
type InitiativeFilter struct {
	GoalID *uuid.UUID
	Status string
}

// InitiativeRepository manages initiatives.
type InitiativeRepository interface {
	// ListByTenant returns the tenant's initiatives ordered by priority
	// descending, then creation time ascending.
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter InitiativeFilter) ([]model.Initiative, error)

	GetByID(ctx context.Context, id uuid.UUID) (*model.Initiative, error)
	Create(ctx context.Context, initiative *model.Initiative) error
	Save(ctx context.Context, initiative *model.Initiative) error

	// Delete removes the initiative together with its comments.
	Delete(ctx context.Context, initiative *model.Initiative) error
}

// IdeaRepository manages ideas and their customer links.
type IdeaRepository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Idea, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Idea, error)
	Create(ctx context.Context, idea *model.Idea) error
	Save(ctx context.Context, idea *model.Idea) error

	// Delete removes the idea together with its comments.
	Delete(ctx context.Context, idea *model.Idea) error

	AddCustomer(ctx context.Context, idea *model.Idea, customer *model.Customer) error
	RemoveCustomer(ctx context.Context, idea *model.Idea, customer *model.Customer) error
}

// FeedbackRepository manages feedback and its customer/initiative links.
type FeedbackRepository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Feedback, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Feedback, error)
	Create(ctx context.Context, feedback *model.Feedback) error
	Save(ctx context.Context, feedback *model.Feedback) error

	// Delete removes the feedback together with its comments.
	Delete(ctx context.Context, feedback *model.Feedback) error

	AddCustomer(ctx context.Context, feedback *model.Feedback, customer *model.Customer) error
	RemoveCustomer(ctx context.Context, feedback *model.Feedback, customer *model.Customer) error
	AddInitiative(ctx context.Context, feedback *model.Feedback, initiative *model.Initiative) error
	RemoveInitiative(ctx context.Context, feedback *model.Feedback, initiative *model.Initiative) error
}

// CustomerRepository manages customers.
type CustomerRepository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	Create(ctx context.Context, customer *model.Customer) error
	Save(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, customer *model.Customer) error
}

// CommentRepository manages comments and resolves their polymorphic targets.
type CommentRepository interface {
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.Comment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	Create(ctx context.Context, comment *model.Comment) error
	Save(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, comment *model.Comment) error

	// ResolveTarget dispatches on the discriminator and loads the row the
	// comment points at. ErrNotFound if the target row is gone.
	ResolveTarget(ctx context.Context, entityType string, entityID uuid.UUID) (*model.CommentTarget, error)
}
