package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GoalDefaultStatus is applied when a goal is created without a status.
const GoalDefaultStatus = "In Progress"

// Goal represents a long-running objective. Initiatives may hang off a
// goal; deleting the goal orphans them (goal_id set to null) rather than
// deleting them.
type Goal struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID  `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Title       string     `json:"title" gorm:"type:varchar(100);not null"`
	Description string     `json:"description" gorm:"type:text"`
	TargetDate  *time.Time `json:"target_date,omitempty" gorm:"type:date"`
	Status      string     `json:"status" gorm:"type:varchar(20);not null;default:'In Progress'"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Initiatives []Initiative `json:"-" gorm:"constraint:OnDelete:SET NULL"`
}

// BeforeCreate assigns the primary key before the row is inserted
func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
