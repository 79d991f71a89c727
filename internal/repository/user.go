package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadmap-service/internal/model"
)

// UserStore is the gorm-backed UserRepository.
type UserStore struct {
	db *gorm.DB
}

var _ UserRepository = (*UserStore)(nil)

// NewUserStore creates a user store bound to the given database handle.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Order("created_at").First(&user).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &user, nil
}

func (s *UserStore) GetByTenantAndEmail(ctx context.Context, tenantID uuid.UUID, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		First(&user).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &user, nil
}

func (s *UserStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.User, error) {
	users := []model.User{}
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *UserStore) Save(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// Delete removes the user; their comments go with them via the cascade
// constraint.
func (s *UserStore) Delete(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Delete(user).Error
}
