package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadmap-service/internal/model"
)

// InitiativeStore is the gorm-backed InitiativeRepository.
type InitiativeStore struct {
	db *gorm.DB
}

var _ InitiativeRepository = (*InitiativeStore)(nil)

// NewInitiativeStore creates an initiative store bound to the given database handle.
func NewInitiativeStore(db *gorm.DB) *InitiativeStore {
	return &InitiativeStore{db: db}
}

func (s *InitiativeStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter InitiativeFilter) ([]model.Initiative, error) {
	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)

	if filter.GoalID != nil {
		query = query.Where("goal_id = ?", *filter.GoalID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	// Highest priority first, ties broken by insertion order.
	initiatives := []model.Initiative{}
	if err := query.Order("priority DESC, created_at ASC").Find(&initiatives).Error; err != nil {
		return nil, err
	}
	return initiatives, nil
}

func (s *InitiativeStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Initiative, error) {
	var initiative model.Initiative
	if err := s.db.WithContext(ctx).First(&initiative, "id = ?", id).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &initiative, nil
}

func (s *InitiativeStore) Create(ctx context.Context, initiative *model.Initiative) error {
	return s.db.WithContext(ctx).Create(initiative).Error
}

func (s *InitiativeStore) Save(ctx context.Context, initiative *model.Initiative) error {
	return s.db.WithContext(ctx).Save(initiative).Error
}

// Delete removes the initiative and its comments in one transaction.
// Comments carry no foreign key to their target, so the cleanup is explicit.
func (s *InitiativeStore) Delete(ctx context.Context, initiative *model.Initiative) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entity_type = ? AND entity_id = ?", model.EntityTypeInitiative, initiative.ID).
			Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(initiative).Error
	})
}
