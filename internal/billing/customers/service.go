package customers

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort defines the data access the service needs.
type RepositoryPort interface {
	Insert(ctx context.Context, c Customer) error
	Update(ctx context.Context, c Customer) error
	Get(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]Customer, error)
	Exists(ctx context.Context, tenantID, id uuid.UUID) error
}

type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req CreateCustomerRequest) (*Customer, error) {
	now := time.Now().UTC()
	c := Customer{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      req.Name,
		Email:     req.Email,
		VATNumber: req.VATNumber,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateCustomerRequest) (*Customer, error) {
	c, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.VATNumber != nil {
		c.VATNumber = *req.VATNumber
	}
	if req.Address != nil {
		c.Address = *req.Address
	}
	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Customer, error) {
	return s.repo.List(ctx, tenantID)
}

// Exists reports whether the customer exists for the tenant.
func (s *Service) Exists(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Exists(ctx, tenantID, id)
}
