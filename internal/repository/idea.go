package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadmap-service/internal/model"
)

// IdeaStore is the gorm-backed IdeaRepository.
type IdeaStore struct {
	db *gorm.DB
}

var _ IdeaRepository = (*IdeaStore)(nil)

// NewIdeaStore creates an idea store bound to the given database handle.
func NewIdeaStore(db *gorm.DB) *IdeaStore {
	return &IdeaStore{db: db}
}

func (s *IdeaStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Idea, error) {
	ideas := []model.Idea{}
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Find(&ideas).Error; err != nil {
		return nil, err
	}
	return ideas, nil
}

func (s *IdeaStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Idea, error) {
	var idea model.Idea
	if err := s.db.WithContext(ctx).First(&idea, "id = ?", id).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &idea, nil
}

func (s *IdeaStore) Create(ctx context.Context, idea *model.Idea) error {
	return s.db.WithContext(ctx).Create(idea).Error
}

func (s *IdeaStore) Save(ctx context.Context, idea *model.Idea) error {
	return s.db.WithContext(ctx).Save(idea).Error
}

// Delete removes the idea and its comments in one transaction. The
// ideas_customers join rows are cleaned up by their cascade constraint.
func (s *IdeaStore) Delete(ctx context.Context, idea *model.Idea) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entity_type = ? AND entity_id = ?", model.EntityTypeIdea, idea.ID).
			Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(idea).Error
	})
}

func (s *IdeaStore) AddCustomer(ctx context.Context, idea *model.Idea, customer *model.Customer) error {
	return s.db.WithContext(ctx).Model(idea).Association("Customers").Append(customer)
}

func (s *IdeaStore) RemoveCustomer(ctx context.Context, idea *model.Idea, customer *model.Customer) error {
	return s.db.WithContext(ctx).Model(idea).Association("Customers").Delete(customer)
}
