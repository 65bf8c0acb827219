package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmcgee/sparkinv/internal/domain"
)

func testInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:           uuid.NewString(),
		QuoteRef:     "Q-2031",
		CustomerName: "J. Harper",
		IssueDate:    "2025-11-03",
		OriginalItems: []domain.InvoiceItem{{
			ID:          uuid.NewString(),
			Description: "First fix, kitchen rewire",
			Quantity:    decimal.New(1, 0),
			UnitPrice:   decimal.RequireFromString("420.00"),
			Source:      domain.SourceQuote,
		}},
		AdditionalItems: []domain.InvoiceItem{{
			ID:          uuid.NewString(),
			Description: "Twin and Earth Cable 2.5mm 6242Y",
			Quantity:    decimal.New(25, 0),
			UnitPrice:   decimal.RequireFromString("1.12"),
			Unit:        "m",
			Source:      domain.SourceScan,
		}},
	}
}

func TestInvoiceStoreSaveAndGet(t *testing.T) {
	invoices := NewInvoiceStore(openTestDB(t))
	ctx := context.Background()

	inv := testInvoice()
	require.NoError(t, invoices.Save(ctx, inv))
	assert.False(t, inv.CreatedAt.IsZero())

	got, err := invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "J. Harper", got.CustomerName)
	require.Len(t, got.OriginalItems, 1)
	require.Len(t, got.AdditionalItems, 1)
	assert.True(t, got.AdditionalItems[0].UnitPrice.Equal(decimal.RequireFromString("1.12")))
	assert.Equal(t, domain.SourceScan, got.AdditionalItems[0].Source)
}

func TestInvoiceStoreSave_Upsert(t *testing.T) {
	invoices := NewInvoiceStore(openTestDB(t))
	ctx := context.Background()

	inv := testInvoice()
	require.NoError(t, invoices.Save(ctx, inv))
	created := inv.CreatedAt

	inv.CustomerName = "K. Harper"
	inv.AdditionalItems = append(inv.AdditionalItems, domain.InvoiceItem{
		ID:          uuid.NewString(),
		Description: "Wago 221 Lever Connector 3 Way",
		Quantity:    decimal.New(10, 0),
		UnitPrice:   decimal.RequireFromString("0.32"),
		Source:      domain.SourceScan,
	})
	require.NoError(t, invoices.Save(ctx, inv))

	got, err := invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "K. Harper", got.CustomerName)
	assert.Len(t, got.AdditionalItems, 2)
	assert.Equal(t, created.Unix(), got.CreatedAt.Unix())
}

func TestInvoiceStoreGetByID_Missing(t *testing.T) {
	invoices := NewInvoiceStore(openTestDB(t))

	got, err := invoices.GetByID(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvoiceStoreList(t *testing.T) {
	invoices := NewInvoiceStore(openTestDB(t))
	ctx := context.Background()

	a := testInvoice()
	b := testInvoice()
	require.NoError(t, invoices.Save(ctx, a))
	require.NoError(t, invoices.Save(ctx, b))

	list, err := invoices.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestInvoiceStoreDelete(t *testing.T) {
	invoices := NewInvoiceStore(openTestDB(t))
	ctx := context.Background()

	inv := testInvoice()
	require.NoError(t, invoices.Save(ctx, inv))
	require.NoError(t, invoices.Delete(ctx, inv.ID))

	got, err := invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, invoices.Delete(ctx, inv.ID))
}
