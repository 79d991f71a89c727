package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback represents a piece of customer feedback. It links many-to-many
// to the customers who raised it and the initiatives it supports.
type Feedback struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Title       string    `json:"title" gorm:"type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Sentiment   string    `json:"sentiment" gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Customers   []Customer   `json:"-" gorm:"many2many:feedback_customers;constraint:OnDelete:CASCADE"`
	Initiatives []Initiative `json:"-" gorm:"many2many:feedback_initiatives;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns the primary key before the row is inserted
func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
