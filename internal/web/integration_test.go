package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmcgee/sparkinv/internal/db"
	"github.com/tmcgee/sparkinv/internal/domain"
	"github.com/tmcgee/sparkinv/internal/extraction"
	"github.com/tmcgee/sparkinv/internal/invoice"
	"github.com/tmcgee/sparkinv/internal/match"
	"github.com/tmcgee/sparkinv/internal/scan"
	"github.com/tmcgee/sparkinv/internal/scanstore"
	"github.com/tmcgee/sparkinv/internal/store"
	"github.com/tmcgee/sparkinv/internal/study"
	"github.com/tmcgee/sparkinv/internal/web"
)

// stubExtractor returns a canned extraction result and records how often it
// was called.
type stubExtractor struct {
	mu     sync.Mutex
	calls  int
	result *extraction.Result
	err    error
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _ string) (*extraction.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubDocs struct {
	url string
	err error
}

func (s *stubDocs) Generate(context.Context, *domain.Invoice, domain.CompanyProfile) (string, error) {
	return s.url, s.err
}

type testEnv struct {
	srv       *httptest.Server
	extractor *stubExtractor
	docs      *stubDocs
	editor    *invoice.Editor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	materials := store.NewMaterialStore(database)
	invoices := store.NewInvoiceStore(database)

	extractor := &stubExtractor{result: &extraction.Result{Success: true}}
	docs := &stubDocs{url: "https://docs.example.com/out.pdf"}
	editor := invoice.NewEditor()

	scans, err := scanstore.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	library, err := study.Load()
	require.NoError(t, err)

	server := web.NewServer(web.Deps{
		Materials: materials,
		Invoices:  invoices,
		Session:   scan.NewSession(),
		Scanner:   scan.NewService(extractor, match.NewMatcher(materials), logger),
		Editor:    editor,
		Docs:      docs,
		Scans:     scans,
		Study:     library,
		Profile:   domain.CompanyProfile{Name: "Amp & Ohm Electrical"},
		Logger:    logger,
	})

	srv := httptest.NewServer(server)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, extractor: extractor, docs: docs, editor: editor}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, data
}

// uploadScan posts a multipart image with an explicit content type.
func (e *testEnv) uploadScan(t *testing.T, mimeType string, imageData []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="invoice.jpg"`)
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(imageData)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(e.srv.URL+"/scans", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp
}

// waitForScan polls the session until it leaves the in-flight states.
func (e *testEnv) waitForScan(t *testing.T) scan.View {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_, body := e.do(t, http.MethodGet, "/scans/current", nil)
		var view scan.View
		require.NoError(t, json.Unmarshal(body, &view))
		if view.State != scan.StateProcessing && view.State != scan.StateMatching {
			return view
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan did not finish in time")
	return scan.View{}
}

func createInvoiceAndOpen(t *testing.T, env *testEnv) string {
	t.Helper()

	resp, body := env.do(t, http.MethodPost, "/invoices", map[string]any{
		"customer_name": "J. Harper",
		"quote_ref":     "Q-1042",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var inv domain.Invoice
	require.NoError(t, json.Unmarshal(body, &inv))

	resp, body = env.do(t, http.MethodPost, "/invoices/"+inv.ID+"/open", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	return inv.ID
}

func TestMaterialCRUD(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/materials", map[string]any{
		"name":          "Wiska Combi Junction Box 308",
		"unit":          "each",
		"category":      "accessory",
		"default_price": "2.85",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created domain.Material
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "Wiska Combi Junction Box 308", created.Name)

	resp, body = env.do(t, http.MethodGet, fmt.Sprintf("/materials/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodGet, "/materials?q=wiska", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found []domain.Material
	require.NoError(t, json.Unmarshal(body, &found))
	require.Len(t, found, 1)

	resp, body = env.do(t, http.MethodPut, fmt.Sprintf("/materials/%d", created.ID), map[string]any{
		"name":          "Wiska Combi Junction Box 308",
		"unit":          "each",
		"category":      "accessory",
		"default_price": "3.10",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated domain.Material
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "3.1", updated.DefaultPrice.String())

	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/materials/%d", created.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, fmt.Sprintf("/materials/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMaterialValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/materials", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/materials/999999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScanLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.result = &extraction.Result{
		Success:       true,
		SupplierName:  "City Electrical Factors",
		InvoiceNumber: "CEF-88041",
		Lines: []domain.ExtractedLine{
			{Description: "Twin and Earth Cable 2.5mm", RawQuantity: "25", RawUnitPrice: "1.12"},
			{Description: "mystery widget xk-9", RawQuantity: "", RawUnitPrice: "4.00"},
		},
	}

	invoiceID := createInvoiceAndOpen(t, env)

	resp := env.uploadScan(t, "image/jpeg", []byte("fake-jpeg-bytes"))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	view := env.waitForScan(t)
	require.Equal(t, scan.StateReady, view.State)
	require.True(t, view.CanReview)
	require.NotNil(t, view.Result)
	require.Len(t, view.Result.Items, 2)

	// The catalogue line auto-matches against the seed data; the unknown one
	// does not.
	matched := view.Result.Items[0]
	assert.NotNil(t, matched.Match)
	assert.Contains(t, matched.Match.Name, "Twin and Earth")
	assert.Nil(t, view.Result.Items[1].Match)

	// Missing quantity defaults to one unit.
	assert.True(t, view.Result.Items[1].Quantity.Equal(decimalOne()))

	// Archived image is retrievable during review.
	resp, body := env.do(t, http.MethodGet, "/scans/current/image", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("fake-jpeg-bytes"), body)

	// Deselect the unknown item and confirm the rest into the invoice.
	resp, _ = env.do(t, http.MethodPost, "/scans/current/items/"+view.Result.Items[1].ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/scans/current/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var ev struct {
		Invoice domain.Invoice `json:"invoice"`
		Totals  invoice.Totals `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(body, &ev))
	require.Len(t, ev.Invoice.AdditionalItems, 1)
	assert.Equal(t, domain.SourceScan, ev.Invoice.AdditionalItems[0].Source)
	assert.Equal(t, "28", ev.Totals.Additional.String())

	// The matched item carries the catalogue unit and category.
	assert.Equal(t, "m", ev.Invoice.AdditionalItems[0].Unit)
	assert.Equal(t, "cable", ev.Invoice.AdditionalItems[0].Category)

	// Confirm persisted the invoice.
	resp, body = env.do(t, http.MethodGet, "/invoices/"+invoiceID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved domain.Invoice
	require.NoError(t, json.Unmarshal(body, &saved))
	assert.Len(t, saved.AdditionalItems, 1)

	// The session is spent and the image is gone.
	_, body = env.do(t, http.MethodGet, "/scans/current", nil)
	var after scan.View
	require.NoError(t, json.Unmarshal(body, &after))
	assert.Equal(t, scan.StateIdle, after.State)

	resp, _ = env.do(t, http.MethodGet, "/scans/current/image", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScanRejectsNonImageBeforeExtraction(t *testing.T) {
	env := newTestEnv(t)

	resp := env.uploadScan(t, "application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, env.extractor.Calls())
}

func TestScanFailureSurfacesError(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.err = fmt.Errorf("model unavailable")

	resp := env.uploadScan(t, "image/jpeg", []byte("fake"))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	view := env.waitForScan(t)
	assert.Equal(t, scan.StateFailed, view.State)
	assert.Contains(t, view.Error, "model unavailable")
}

func TestConfirmWithoutOpenInvoice(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.result = &extraction.Result{
		Success: true,
		Lines:   []domain.ExtractedLine{{Description: "Cable Clips", RawQuantity: "1", RawUnitPrice: "2.00"}},
	}

	resp := env.uploadScan(t, "image/jpeg", []byte("fake"))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	view := env.waitForScan(t)
	require.Equal(t, scan.StateReady, view.State)

	resp, _ = env.do(t, http.MethodPost, "/scans/current/confirm", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The result survives the refusal; reset clears it.
	_, body := env.do(t, http.MethodPost, "/scans/current/reset", nil)
	var after scan.View
	require.NoError(t, json.Unmarshal(body, &after))
	assert.Equal(t, scan.StateIdle, after.State)
}

func TestEditorFlow(t *testing.T) {
	env := newTestEnv(t)
	createInvoiceAndOpen(t, env)

	resp, body := env.do(t, http.MethodPost, "/editor/items", map[string]any{
		"description": "Call-out charge",
		"quantity":    "1",
		"unit_price":  "45.00",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var ev struct {
		Invoice domain.Invoice `json:"invoice"`
		Totals  invoice.Totals `json:"totals"`
		Step    string         `json:"step"`
	}
	require.NoError(t, json.Unmarshal(body, &ev))
	require.Len(t, ev.Invoice.AdditionalItems, 1)
	itemID := ev.Invoice.AdditionalItems[0].ID
	assert.Equal(t, "45", ev.Totals.Grand.String())
	assert.Equal(t, invoice.StepReview, ev.Step)

	resp, body = env.do(t, http.MethodPatch, "/editor/items/"+itemID, map[string]any{
		"quantity": "2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &ev))
	assert.Equal(t, "90", ev.Totals.Grand.String())

	resp, body = env.do(t, http.MethodPost, "/editor/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), invoice.StepItems))

	resp, _ = env.do(t, http.MethodDelete, "/editor/items/"+itemID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/editor/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/editor/close", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/editor", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBusyEditorRefusesSaveAndConfirm(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.result = &extraction.Result{
		Success: true,
		Lines:   []domain.ExtractedLine{{Description: "Cable Clips", RawQuantity: "1", RawUnitPrice: "2.00"}},
	}
	createInvoiceAndOpen(t, env)

	resp := env.uploadScan(t, "image/jpeg", []byte("fake"))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	view := env.waitForScan(t)
	require.Equal(t, scan.StateReady, view.State)

	require.NoError(t, env.editor.BeginOperation())

	resp, _ = env.do(t, http.MethodPost, "/editor/save", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/scans/current/confirm", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// A refused confirm leaves the scan intact for a retry.
	_, body := env.do(t, http.MethodGet, "/scans/current", nil)
	require.NoError(t, json.Unmarshal(body, &view))
	require.Equal(t, scan.StateReady, view.State)
	require.Len(t, view.Result.Items, 1)

	env.editor.EndOperation()

	resp, _ = env.do(t, http.MethodPost, "/editor/save", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/scans/current/confirm", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateDocument(t *testing.T) {
	env := newTestEnv(t)
	createInvoiceAndOpen(t, env)

	resp, body := env.do(t, http.MethodPost, "/editor/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "https://docs.example.com/out.pdf", out["download_url"])
}

func TestGenerateDocumentFailure(t *testing.T) {
	env := newTestEnv(t)
	env.docs.err = fmt.Errorf("render failed")
	createInvoiceAndOpen(t, env)

	resp, _ := env.do(t, http.MethodPost, "/editor/generate", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestStudyEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/study/courses", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var courses []study.CourseSummary
	require.NoError(t, json.Unmarshal(body, &courses))
	require.NotEmpty(t, courses)

	course := courses[0].ID
	module := courses[0].Modules[0].ID

	resp, body = env.do(t, http.MethodGet, "/study/courses/"+course+"/modules/"+module+"/questions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var questions []study.Question
	require.NoError(t, json.Unmarshal(body, &questions))
	require.NotEmpty(t, questions)

	resp, body = env.do(t, http.MethodGet, "/study/courses/"+course+"/exam?count=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exam []study.Question
	require.NoError(t, json.Unmarshal(body, &exam))
	assert.Len(t, exam, 3)

	resp, body = env.do(t, http.MethodPost, "/study/courses/"+course+"/score", map[string]any{
		"answers": []study.Answer{{
			ModuleID:   module,
			QuestionID: questions[0].ID,
			Selected:   questions[0].Correct,
		}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var result study.ScoreResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1, result.Correct)

	resp, _ = env.do(t, http.MethodGet, "/study/courses/nope/exam", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func decimalOne() decimal.Decimal { return decimal.New(1, 0) }
