package docgen

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmcgee/sparkinv/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:           "inv-1",
		CustomerName: "J. Harper",
		AdditionalItems: []domain.InvoiceItem{{
			ID:        "a",
			Quantity:  decimal.New(2, 0),
			UnitPrice: decimal.New(5, 0),
		}},
	}
}

func TestGenerate_ImmediateURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req, "invoice")
		assert.Contains(t, req, "profile")
		assert.Contains(t, req, "totals")

		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{
			"downloadUrl": "https://docs.example.com/inv-1.pdf",
		}))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", discard())
	url, err := client.Generate(context.Background(), testInvoice(), domain.CompanyProfile{Name: "Amp & Ohm"})
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com/inv-1.pdf", url)
}

func TestGenerate_PollsUntilReady(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"documentId": "doc-9"}))
		case 2, 3:
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "doc-9", req["documentId"])
			assert.Equal(t, "status", req["mode"])
			require.NoError(t, json.NewEncoder(w).Encode(map[string]string{}))
		default:
			require.NoError(t, json.NewEncoder(w).Encode(map[string]string{
				"downloadUrl": "https://docs.example.com/doc-9.pdf",
			}))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", discard())
	client.SetPolling(time.Millisecond, 10)

	url, err := client.Generate(context.Background(), testInvoice(), domain.CompanyProfile{})
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com/doc-9.pdf", url)
	assert.Equal(t, 4, calls)
}

func TestGenerate_TimesOutAfterAttemptBudget(t *testing.T) {
	var statusCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["mode"] == "status" {
			statusCalls++
		}
		if req["mode"] == "status" {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]string{}))
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"documentId": "doc-slow"}))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", discard())
	client.SetPolling(time.Millisecond, 5)

	_, err := client.Generate(context.Background(), testInvoice(), domain.CompanyProfile{})
	assert.ErrorIs(t, err, ErrDocumentTimeout)
	assert.Equal(t, 5, statusCalls)
}

func TestGenerate_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", discard())
	_, err := client.Generate(context.Background(), testInvoice(), domain.CompanyProfile{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDocumentTimeout)
}

func TestGenerate_NotConfigured(t *testing.T) {
	client := NewClient("", "", discard())
	_, err := client.Generate(context.Background(), testInvoice(), domain.CompanyProfile{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerate_ContextCancelledDuringPoll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"documentId": "doc-x"}))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", discard())
	client.SetPolling(time.Hour, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Generate(ctx, testInvoice(), domain.CompanyProfile{})
	assert.ErrorIs(t, err, context.Canceled)
}
