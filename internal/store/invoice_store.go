package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmcgee/sparkinv/internal/domain"
)

// InvoiceStore persists whole invoices in single calls. Item collections are
// stored as JSON documents; there is no partial-save contract.
type InvoiceStore struct {
	db *sql.DB
}

func NewInvoiceStore(db *sql.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// Save upserts the invoice. CreatedAt is preserved on update; UpdatedAt is
// always set to now.
func (s *InvoiceStore) Save(ctx context.Context, inv *domain.Invoice) error {
	original, err := json.Marshal(inv.OriginalItems)
	if err != nil {
		return fmt.Errorf("failed to encode original items: %w", err)
	}
	additional, err := json.Marshal(inv.AdditionalItems)
	if err != nil {
		return fmt.Errorf("failed to encode additional items: %w", err)
	}

	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, quote_ref, customer_name, issue_date, original_items, additional_items, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			quote_ref = excluded.quote_ref,
			customer_name = excluded.customer_name,
			issue_date = excluded.issue_date,
			original_items = excluded.original_items,
			additional_items = excluded.additional_items,
			updated_at = excluded.updated_at
	`, inv.ID, inv.QuoteRef, inv.CustomerName, inv.IssueDate, string(original), string(additional), inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

func (s *InvoiceStore) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, quote_ref, customer_name, issue_date, original_items, additional_items, created_at, updated_at
		FROM invoices WHERE id = ?
	`, id)

	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (s *InvoiceStore) List(ctx context.Context) ([]*domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quote_ref, customer_name, issue_date, original_items, additional_items, created_at, updated_at
		FROM invoices ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var invoices []*domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM invoices WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("invoice not found")
	}
	return nil
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	var original, additional string
	err := row.Scan(&inv.ID, &inv.QuoteRef, &inv.CustomerName, &inv.IssueDate,
		&original, &additional, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(original), &inv.OriginalItems); err != nil {
		return nil, fmt.Errorf("invalid original items for invoice %s: %w", inv.ID, err)
	}
	if err := json.Unmarshal([]byte(additional), &inv.AdditionalItems); err != nil {
		return nil, fmt.Errorf("invalid additional items for invoice %s: %w", inv.ID, err)
	}
	return inv, nil
}
