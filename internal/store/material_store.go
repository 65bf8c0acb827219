package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tmcgee/sparkinv/internal/domain"
)

type MaterialStore struct {
	db *sql.DB
}

func NewMaterialStore(db *sql.DB) *MaterialStore {
	return &MaterialStore{db: db}
}

func (s *MaterialStore) Create(ctx context.Context, name, unit, category string, defaultPrice decimal.Decimal) (*domain.Material, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO materials (name, unit, category, default_price) VALUES (?, ?, ?, ?)
	`, name, unit, category, defaultPrice.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *MaterialStore) GetByID(ctx context.Context, id int64) (*domain.Material, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, unit, category, default_price, created_at FROM materials WHERE id = ?
	`, id)

	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return m, nil
}

func (s *MaterialStore) List(ctx context.Context) ([]*domain.Material, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, category, default_price, created_at FROM materials ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	return collectMaterials(rows)
}

// Search performs a case-insensitive substring search over material names.
func (s *MaterialStore) Search(ctx context.Context, query string) ([]*domain.Material, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, category, default_price, created_at FROM materials
		WHERE LOWER(name) LIKE ?
		ORDER BY name ASC
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search materials: %w", err)
	}
	return collectMaterials(rows)
}

func (s *MaterialStore) Update(ctx context.Context, id int64, name, unit, category string, defaultPrice decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE materials SET name = ?, unit = ?, category = ?, default_price = ? WHERE id = ?
	`, name, unit, category, defaultPrice.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update material: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("material not found")
	}
	return nil
}

func (s *MaterialStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM materials WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("material not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(row rowScanner) (*domain.Material, error) {
	m := &domain.Material{}
	var price string
	if err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.Category, &price, &m.CreatedAt); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid default_price for material %d: %w", m.ID, err)
	}
	m.DefaultPrice = d
	return m, nil
}

func collectMaterials(rows *sql.Rows) ([]*domain.Material, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var materials []*domain.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating materials: %w", err)
	}
	return materials, nil
}
