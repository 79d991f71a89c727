package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadmap-service/internal/model"
)

// GoalStore is the gorm-backed GoalRepository.
type GoalStore struct {
	db *gorm.DB
}

var _ GoalRepository = (*GoalStore)(nil)

// NewGoalStore creates a goal store bound to the given database handle.
func NewGoalStore(db *gorm.DB) *GoalStore {
	return &GoalStore{db: db}
}

func (s *GoalStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Goal, error) {
	goals := []model.Goal{}
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (s *GoalStore) InitiativeCount(ctx context.Context, goalID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&model.Initiative{}).
		Where("goal_id = ?", goalID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GoalStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Goal, error) {
	var goal model.Goal
	if err := s.db.WithContext(ctx).First(&goal, "id = ?", id).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &goal, nil
}

func (s *GoalStore) Create(ctx context.Context, goal *model.Goal) error {
	return s.db.WithContext(ctx).Create(goal).Error
}

func (s *GoalStore) Save(ctx context.Context, goal *model.Goal) error {
	return s.db.WithContext(ctx).Save(goal).Error
}

// Delete removes the goal. Its initiatives are kept: the SET NULL
// constraint clears their goal_id.
func (s *GoalStore) Delete(ctx context.Context, goal *model.Goal) error {
	return s.db.WithContext(ctx).Delete(goal).Error
}
