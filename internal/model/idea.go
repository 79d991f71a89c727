package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Idea represents a product idea, optionally attached to an initiative and
// linked to the customers that asked for it.
type Idea struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID  `json:"tenant_id" gorm:"type:uuid;index;not null"`
	InitiativeID *uuid.UUID `json:"initiative_id" gorm:"type:uuid;index"`
	Title        string     `json:"title" gorm:"type:varchar(100);not null"`
	Description  string     `json:"description" gorm:"type:text"`
	Priority     string     `json:"priority" gorm:"type:varchar(20);not null"`
	Effort       string     `json:"effort" gorm:"type:varchar(5);not null"`
	Source       string     `json:"source" gorm:"type:varchar(50);not null"`
	Status       string     `json:"status" gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Customers []Customer `json:"-" gorm:"many2many:ideas_customers;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns the primary key before the row is inserted
func (i *Idea) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
