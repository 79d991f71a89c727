package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadmap-service/internal/model"
)

// CommentStore is the gorm-backed CommentRepository.
type CommentStore struct {
	db *gorm.DB
}

var _ CommentRepository = (*CommentStore)(nil)

// NewCommentStore creates a comment store bound to the given database handle.
func NewCommentStore(db *gorm.DB) *CommentStore {
	return &CommentStore{db: db}
}

func (s *CommentStore) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.Comment, error) {
	comments := []model.Comment{}
	if err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &comment, nil
}

func (s *CommentStore) Create(ctx context.Context, comment *model.Comment) error {
	return s.db.WithContext(ctx).Create(comment).Error
}

func (s *CommentStore) Save(ctx context.Context, comment *model.Comment) error {
	return s.db.WithContext(ctx).Save(comment).Error
}

func (s *CommentStore) Delete(ctx context.Context, comment *model.Comment) error {
	return s.db.WithContext(ctx).Delete(comment).Error
}

// ResolveTarget loads the row a comment points at, dispatching on the
// discriminator. entity_id carries no foreign key, so this lookup is the
// only thing giving it meaning.
func (s *CommentStore) ResolveTarget(ctx context.Context, entityType string, entityID uuid.UUID) (*model.CommentTarget, error) {
	target := &model.CommentTarget{Type: entityType}

	switch entityType {
	case model.EntityTypeIdea:
		var idea model.Idea
		if err := s.db.WithContext(ctx).First(&idea, "id = ?", entityID).Error; err != nil {
			return nil, asRepoErr(err)
		}
		target.Idea = &idea
	case model.EntityTypeFeedback:
		var feedback model.Feedback
		if err := s.db.WithContext(ctx).First(&feedback, "id = ?", entityID).Error; err != nil {
			return nil, asRepoErr(err)
		}
		target.Feedback = &feedback
	case model.EntityTypeInitiative:
		var initiative model.Initiative
		if err := s.db.WithContext(ctx).First(&initiative, "id = ?", entityID).Error; err != nil {
			return nil, asRepoErr(err)
		}
		target.Initiative = &initiative
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	return target, nil
}
