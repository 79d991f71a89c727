package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadmap-service/internal/model"
)

// TenantStore is the gorm-backed TenantRepository.
type TenantStore struct {
	db *gorm.DB
}

var _ TenantRepository = (*TenantStore)(nil)

// NewTenantStore creates a tenant store bound to the given database handle.
func NewTenantStore(db *gorm.DB) *TenantStore {
	return &TenantStore{db: db}
}

func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &tenant, nil
}

func (s *TenantStore) GetByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).Where("domain_name = ?", domain).First(&tenant).Error; err != nil {
		return nil, asRepoErr(err)
	}
	return &tenant, nil
}

// CreateWithAdmin persists the tenant and its founding admin in one
// transaction so a failure between the two writes leaves neither row.
func (s *TenantStore) CreateWithAdmin(ctx context.Context, tenant *model.Tenant, admin *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		admin.TenantID = tenant.ID
		return tx.Create(admin).Error
	})
}

func (s *TenantStore) Save(ctx context.Context, tenant *model.Tenant) error {
	return s.db.WithContext(ctx).Save(tenant).Error
}

// Delete removes the tenant. The OnDelete:CASCADE constraints declared on
// the models take every owned row with it, comments included through the
// user cascade.
func (s *TenantStore) Delete(ctx context.Context, tenant *model.Tenant) error {
	return s.db.WithContext(ctx).Delete(tenant).Error
}
