package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment target discriminator values.
const (
	EntityTypeIdea       = "idea"
	EntityTypeFeedback   = "feedback"
	EntityTypeInitiative = "initiative"
)

// EntityTypes lists the entity kinds a comment may attach to.
var EntityTypes = []string{EntityTypeIdea, EntityTypeFeedback, EntityTypeInitiative}

// Comment attaches to one of several entity types. entity_id is not a real
// foreign key: it is interpreted according to entity_type, and resolution
// happens through the comment repository's target lookup.
type Comment struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(20);not null;index:idx_comments_entity"`
	EntityID   uuid.UUID `json:"entity_id" gorm:"type:uuid;not null;index:idx_comments_entity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key before the row is inserted
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CommentTarget is the resolved target of a comment: exactly one of the
// variant pointers is set, selected by Type.
type CommentTarget struct {
	Type       string
	Idea       *Idea
	Feedback   *Feedback
	Initiative *Initiative
}

// TenantID returns the tenant owning the resolved target. Comments may only
// attach to entities inside the author's tenant, so this is what the guard
// compares against.
func (t *CommentTarget) TenantID() uuid.UUID {
	switch t.Type {
	case EntityTypeIdea:
		if t.Idea != nil {
			return t.Idea.TenantID
		}
	case EntityTypeFeedback:
		if t.Feedback != nil {
			return t.Feedback.TenantID
		}
	case EntityTypeInitiative:
		if t.Initiative != nil {
			return t.Initiative.TenantID
		}
	}
	return uuid.Nil
}
