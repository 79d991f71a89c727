package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadmap-service/internal/model"
)

// CustomerStore is the gorm-backed CustomerRepository.
type CustomerStore struct {
	db *gorm.DB
}

var _ CustomerRepository = (*CustomerStore)(nil)

// NewCustomerStore creates a customer store bound to the given database handle.
func NewCustomerStore(db *gorm.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func (s *CustomerStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Customer, error) {
	customers := []model.Customer{}
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *CustomerStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := s.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &customer, nil
}

func (s *CustomerStore) Create(ctx context.Context, customer *model.Customer) error {
	return s.db.WithContext(ctx).Create(customer).Error
}

func (s *CustomerStore) Save(ctx context.Context, customer *model.Customer) error {
	return s.db.WithContext(ctx).Save(customer).Error
}

func (s *CustomerStore) Delete(ctx context.Context, customer *model.Customer) error {
	return s.db.WithContext(ctx).Delete(customer).Error
}
