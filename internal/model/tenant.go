package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents an isolated organization. It is the root of data
// isolation: every business row carries its tenant_id, and deleting a
// tenant cascades to everything it owns.
type Tenant struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DomainName string    `json:"domain_name" gorm:"type:varchar(100);uniqueIndex;not null"`
	PlanTier   string    `json:"plan_tier" gorm:"type:varchar(20);not null;default:'basic'"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Owned rows, removed with the tenant.
	Users       []User       `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Goals       []Goal       `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Initiatives []Initiative `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Customers   []Customer   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Ideas       []Idea       `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Feedback    []Feedback   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns the primary key before the row is inserted
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
