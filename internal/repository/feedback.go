package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadmap-service/internal/model"
)

// FeedbackStore is the gorm-backed FeedbackRepository.
type FeedbackStore struct {
	db *gorm.DB
}

var _ FeedbackRepository = (*FeedbackStore)(nil)

// NewFeedbackStore creates a feedback store bound to the given database handle.
func NewFeedbackStore(db *gorm.DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

func (s *FeedbackStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Feedback, error) {
	feedback := []model.Feedback{}
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Find(&feedback).Error; err != nil {
		return nil, err
	}
	return feedback, nil
}

func (s *FeedbackStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Feedback, error) {
	var feedback model.Feedback
	if err := s.db.WithContext(ctx).First(&feedback, "id = ?", id).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &feedback, nil
}

func (s *FeedbackStore) Create(ctx context.Context, feedback *model.Feedback) error {
	return s.db.WithContext(ctx).Create(feedback).Error
}

func (s *FeedbackStore) Save(ctx context.Context, feedback *model.Feedback) error {
	return s.db.WithContext(ctx).Save(feedback).Error
}

// Delete removes the feedback and its comments in one transaction. Join
// rows to customers and initiatives are cleaned up by their cascade
// constraints.
func (s *FeedbackStore) Delete(ctx context.Context, feedback *model.Feedback) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entity_type = ? AND entity_id = ?", model.EntityTypeFeedback, feedback.ID).
			Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(feedback).Error
	})
}

func (s *FeedbackStore) AddCustomer(ctx context.Context, feedback *model.Feedback, customer *model.Customer) error {
	return s.db.WithContext(ctx).Model(feedback).Association("Customers").Append(customer)
}

func (s *FeedbackStore) RemoveCustomer(ctx context.Context, feedback *model.Feedback, customer *model.Customer) error {
	return s.db.WithContext(ctx).Model(feedback).Association("Customers").Delete(customer)
}

func (s *FeedbackStore) AddInitiative(ctx context.Context, feedback *model.Feedback, initiative *model.Initiative) error {
	return s.db.WithContext(ctx).Model(feedback).Association("Initiatives").Append(initiative)
}

func (s *FeedbackStore) RemoveInitiative(ctx context.Context, feedback *model.Feedback, initiative *model.Initiative) error {
	return s.db.WithContext(ctx).Model(feedback).Association("Initiatives").Delete(initiative)
}
