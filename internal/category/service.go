// Package category manages transaction categories.
package category

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// Store is the persistence surface the category service needs. Get returns
// (nil, nil) when no category with that id belongs to ownerID.
type Store interface {
	Create(ctx context.Context, category *domain.Category) (*domain.Category, error)
	Get(ctx context.Context, ownerID, categoryID uuid.UUID) (*domain.Category, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Category, error)
	Update(ctx context.Context, ownerID uuid.UUID, category *domain.Category) (*domain.Category, error)
	Delete(ctx context.Context, ownerID, categoryID uuid.UUID) error
	Referenced(ctx context.Context, categoryID uuid.UUID) (bool, error)
}

// Service implements category CRUD.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a category service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Input carries the mutable category attributes.
type Input struct {
	Name     string
	IconName string
}

// Create adds a new category.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in Input) (*domain.Category, error) {
	now := time.Now().UTC()
	category := &domain.Category{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      in.Name,
		IconName:  in.IconName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.Create(ctx, category)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return created, nil
}

// Get returns one category.
func (s *Service) Get(ctx context.Context, ownerID, categoryID uuid.UUID) (*domain.Category, error) {
	category, err := s.store.Get(ctx, ownerID, categoryID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if category == nil {
		return nil, domain.NotFoundf("category not found")
	}
	return category, nil
}

// List returns all of the owner's categories.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Category, error) {
	categories, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return categories, nil
}

// Update changes a category's name and icon.
func (s *Service) Update(ctx context.Context, ownerID, categoryID uuid.UUID, in Input) (*domain.Category, error) {
	category, err := s.store.Get(ctx, ownerID, categoryID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if category == nil {
		return nil, domain.NotFoundf("category not found")
	}

	category.Name = in.Name
	category.IconName = in.IconName
	category.UpdatedAt = time.Now().UTC()

	updated, err := s.store.Update(ctx, ownerID, category)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return updated, nil
}

// Delete removes a category no transaction references.
func (s *Service) Delete(ctx context.Context, ownerID, categoryID uuid.UUID) error {
	category, err := s.store.Get(ctx, ownerID, categoryID)
	if err != nil {
		return domain.Internal(err)
	}
	if category == nil {
		return domain.NotFoundf("category not found")
	}

	referenced, err := s.store.Referenced(ctx, categoryID)
	if err != nil {
		return domain.Internal(err)
	}
	if referenced {
		return domain.InvalidOperationf("category is referenced by transactions")
	}

	if err := s.store.Delete(ctx, ownerID, categoryID); err != nil {
		return domain.Internal(err)
	}
	return nil
}
