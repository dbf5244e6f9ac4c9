package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// CategoryStore reads and writes categories rows.
type CategoryStore struct {
	q querier
}

const categoryColumns = "id, owner_id, name, icon_name, created_at, updated_at"

// Get returns one category scoped to its owner, or (nil, nil) when absent.
func (s *CategoryStore) Get(ctx context.Context, ownerID, categoryID uuid.UUID) (*domain.Category, error) {
	category, err := scanCategory(s.q.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = $1 AND owner_id = $2",
		categoryID, ownerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("CategoryStore.Get: %w", err)
	}
	return category, nil
}

// Create inserts a new category.
func (s *CategoryStore) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, icon_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		category.ID, category.OwnerID, category.Name, category.IconName,
		category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("CategoryStore.Create: %w", err)
	}
	return category, nil
}

// List returns all of the owner's categories ordered by name.
func (s *CategoryStore) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Category, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE owner_id = $1 ORDER BY name",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("CategoryStore.List: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("CategoryStore.List: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CategoryStore.List: %w", err)
	}
	return categories, nil
}

// Update writes a category's name and icon.
func (s *CategoryStore) Update(ctx context.Context, ownerID uuid.UUID, category *domain.Category) (*domain.Category, error) {
	_, err := s.q.ExecContext(ctx,
		"UPDATE categories SET name = $1, icon_name = $2, updated_at = $3 WHERE id = $4 AND owner_id = $5",
		category.Name, category.IconName, category.UpdatedAt, category.ID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("CategoryStore.Update: %w", err)
	}
	return category, nil
}

// Delete removes a category row.
func (s *CategoryStore) Delete(ctx context.Context, ownerID, categoryID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		"DELETE FROM categories WHERE id = $1 AND owner_id = $2",
		categoryID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("CategoryStore.Delete: %w", err)
	}
	return nil
}

// Referenced reports whether any transaction references the category.
func (s *CategoryStore) Referenced(ctx context.Context, categoryID uuid.UUID) (bool, error) {
	var referenced bool
	err := s.q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM transactions WHERE category_id = $1)",
		categoryID,
	).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("CategoryStore.Referenced: %w", err)
	}
	return referenced, nil
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var category domain.Category
	err := row.Scan(
		&category.ID,
		&category.OwnerID,
		&category.Name,
		&category.IconName,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &category, nil
}
