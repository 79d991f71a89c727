package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Initiative statuses and priority bounds.
const (
	InitiativeStatusActive    = "active"
	InitiativeStatusPlanned   = "planned"
	InitiativeStatusCompleted = "completed"

	MinPriority = 1
	MaxPriority = 5
)

// InitiativeStatuses lists the accepted status values in display order.
var InitiativeStatuses = []string{
	InitiativeStatusActive,
	InitiativeStatusPlanned,
	InitiativeStatusCompleted,
}

// Initiative represents a concrete effort, optionally attached to a goal.
type Initiative struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID  `json:"tenant_id" gorm:"type:uuid;index;not null"`
	GoalID      *uuid.UUID `json:"goal_id" gorm:"type:uuid;index"`
	Title       string     `json:"title" gorm:"type:varchar(100);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Status      string     `json:"status" gorm:"type:varchar(20);not null"`
	Priority    int        `json:"priority" gorm:"not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Ideas    []Idea     `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Feedback []Feedback `json:"-" gorm:"many2many:feedback_initiatives;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns the primary key before the row is inserted
func (i *Initiative) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
