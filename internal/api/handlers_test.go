package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/rentledger/internal/config"
	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/service"
	"github.com/punchamoorthee/rentledger/internal/store"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	s, err := store.OpenFileStore(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)

	clock := func() time.Time { return testNow }
	clients := service.NewClientService(s)
	clients.Now = clock
	ledger := service.NewLedgerService(s)
	ledger.Now = clock
	documents := service.NewDocumentService(s)
	documents.Now = clock
	imports := service.NewImportService(s, nil, false)
	imports.Now = clock
	receipts := service.NewReceiptService(s, &config.Config{BusinessName: "Gestion Locative", Currency: "FCFA"})

	return NewRouter(NewHandler(clients, ledger, documents, imports, receipts))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type clientEnvelope struct {
	Success bool          `json:"success"`
	Client  domain.Client `json:"client"`
}

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

const newClientBody = `{
	"firstName": "Awa",
	"lastName": "Diop",
	"phone": "771234567",
	"rentals": [{"propertyName": "Sacré-Coeur 3", "monthlyRent": 1000, "startDate": "2024-01-01"}]
}`

func createClient(t *testing.T, h http.Handler) domain.Client {
	t.Helper()
	rec := do(t, h, "POST", "/api/clients", newClientBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decode[clientEnvelope](t, rec)
	require.True(t, env.Success)
	return env.Client
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, "GET", "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/api/clients", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestClients_CreateThenGetIsStable(t *testing.T) {
	h := newTestServer(t)
	created := createClient(t, h)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "2024-03-10T12:00:00.000Z", created.CreatedAt.String())

	for i := 0; i < 2; i++ {
		rec := do(t, h, "GET", "/api/clients/"+created.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[map[string]any](t, rec)
		assert.Equal(t, created.ID, got["id"])
		assert.Equal(t, "2024-03-10T12:00:00.000Z", got["createdAt"])
	}

	rec := do(t, h, "GET", "/api/clients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Client](t, rec), 1)
}

func TestClients_ErrorStatuses(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "GET", "/api/clients/client_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Client not found", decode[errorBody](t, rec).Error)

	rec = do(t, h, "POST", "/api/clients", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/clients", `{"firstName": "A", "lastName": "Diop"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, decode[errorBody](t, rec).Details)

	created := createClient(t, h)
	rec = do(t, h, "POST", "/api/clients", `{"id": "`+created.ID+`", "firstName": "Awa", "lastName": "Diop"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, "DELETE", "/api/clients/client_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClients_RentalIDAlreadyOwnedIsConflict(t *testing.T) {
	h := newTestServer(t)
	body := `{"firstName": "Awa", "lastName": "Diop", "rentals": [{"id": "rental_shared", "monthlyRent": 1000, "startDate": "2024-01-01"}]}`
	rec := do(t, h, "POST", "/api/clients", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body = `{"firstName": "Moussa", "lastName": "Sow", "rentals": [{"id": "rental_shared", "monthlyRent": 2000, "startDate": "2024-02-01"}]}`
	rec = do(t, h, "POST", "/api/clients", body)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = do(t, h, "GET", "/api/clients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Client](t, rec), 1)
}

func TestClients_UpdateAndDelete(t *testing.T) {
	h := newTestServer(t)
	created := createClient(t, h)

	rec := do(t, h, "PUT", "/api/clients/"+created.ID, `{"email": "awa@example.com", "id": "hijack"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode[clientEnvelope](t, rec)
	assert.Equal(t, created.ID, env.Client.ID)
	assert.Equal(t, "awa@example.com", env.Client.Email)
	assert.Equal(t, "Awa", env.Client.FirstName)

	rec = do(t, h, "PUT", "/api/clients/client_missing", `{"email": "x@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "DELETE", "/api/clients/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = do(t, h, "GET", "/api/clients/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayments(t *testing.T) {
	h := newTestServer(t)
	created := createClient(t, h)
	rental := created.Rentals[0]
	period := rental.Payments[2]

	body := `{"rentalId": "` + rental.ID + `", "paymentId": "` + period.ID + `", "amount": 800}`
	rec := do(t, h, "POST", "/api/payments", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body = `{"rentalId": "` + rental.ID + `", "paymentId": "` + period.ID + `", "amount": 500}`
	rec = do(t, h, "POST", "/api/payments", body)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, true, got["success"])
	payment := got["payment"].(map[string]any)
	assert.Equal(t, float64(1000), payment["paidAmount"])
	assert.Equal(t, "paid", payment["status"])
	assert.Equal(t, float64(500), got["record"].(map[string]any)["amount"])

	rec = do(t, h, "POST", "/api/payments", `{"rentalId": "`+rental.ID+`", "paymentId": "mp_missing", "amount": 10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Payment period not found", decode[errorBody](t, rec).Error)

	rec = do(t, h, "POST", "/api/payments", `{"rentalId": "rental_missing", "paymentId": "mp_x", "amount": 10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "POST", "/api/payments", `{"rentalId": "`+rental.ID+`", "paymentId": "`+period.ID+`", "amount": -5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeposits(t *testing.T) {
	h := newTestServer(t)
	created := createClient(t, h)

	rec := do(t, h, "POST", "/api/deposits", `{"rentalId": "`+created.Rentals[0].ID+`", "amount": 300000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]any](t, rec)
	deposit := got["deposit"].(map[string]any)
	assert.Equal(t, float64(300000), deposit["paid"])
	assert.Equal(t, float64(0), deposit["total"])
	assert.Len(t, deposit["payments"], 1)

	rec = do(t, h, "POST", "/api/deposits", `{"rentalId": "rental_missing", "amount": 10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRentalsAndSummary(t *testing.T) {
	h := newTestServer(t)
	created := createClient(t, h)

	rec := do(t, h, "POST", "/api/clients/"+created.ID+"/rentals", `{"propertyType": "studio", "monthlyRent": 500, "startDate": "2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, "GET", "/api/clients/"+created.ID+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), sum["rentals"])
	assert.Equal(t, float64(4), sum["periods"])
	assert.Equal(t, float64(3500), sum["totalDue"])

	rec = do(t, h, "POST", "/api/clients/"+created.ID+"/rentals", `{"propertyType": "castle", "monthlyRent": 500, "startDate": "2024-03-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDocuments(t *testing.T) {
	h := newTestServer(t)
	created := createClient(t, h)
	rentalID := created.Rentals[0].ID

	rec := do(t, h, "POST", "/api/documents", `{"rentalId": "`+rentalID+`", "name": "Bail", "type": "contract", "url": "https://files/bail.pdf"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[map[string]any](t, rec)["document"].(map[string]any)

	rec = do(t, h, "GET", "/api/documents?rentalId="+rentalID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Document](t, rec), 1)

	rec = do(t, h, "DELETE", "/api/documents/"+doc["id"].(string), "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, "DELETE", "/api/documents/"+doc["id"].(string), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceipt(t *testing.T) {
	h := newTestServer(t)
	created := createClient(t, h)
	rental := created.Rentals[0]

	rec := do(t, h, "POST", "/api/payments", `{"rentalId": "`+rental.ID+`", "paymentId": "`+rental.Payments[0].ID+`", "amount": 1000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	number := decode[map[string]any](t, rec)["record"].(map[string]any)["receiptNumber"].(string)

	rec = do(t, h, "GET", "/api/rentals/"+rental.ID+"/receipts/"+number, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = do(t, h, "GET", "/api/rentals/"+rental.ID+"/receipts/REC-000000-AAAAAA", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartBody(t *testing.T, filename, content, mapping string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if mapping != "" {
		require.NoError(t, mw.WriteField("mapping", mapping))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImport(t *testing.T) {
	h := newTestServer(t)
	createClient(t, h)

	csv := "Nom complet,Famille,Tel\nMoussa,Ndiaye,761112233\nFatou,Sow,77 12 34 567\n"
	mapping := `{"firstName": "Nom complet", "lastName": "Famille"}`

	body, ctype := multipartBody(t, "clients.csv", csv, mapping)
	req := httptest.NewRequest("POST", "/api/import/preview", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[map[string]any](t, rec)
	assert.Len(t, preview["valid"], 1)
	assert.Len(t, preview["invalid"], 1)
	assert.Equal(t, "Famille", preview["mapping"].(map[string]any)["lastName"])

	body, ctype = multipartBody(t, "clients.csv", csv, mapping)
	req = httptest.NewRequest("POST", "/api/import/commit", body)
	req.Header.Set("Content-Type", ctype)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	commit := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), commit["imported"])

	rec = do(t, h, "GET", "/api/clients", "")
	assert.Len(t, decode[[]domain.Client](t, rec), 2)

	rec = do(t, h, "POST", "/api/import/preview", "not multipart")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// brokenInsertStore lets the first n CreateClient calls through and fails
// the rest.
type brokenInsertStore struct {
	store.Store
	n int
}

func (s *brokenInsertStore) CreateClient(ctx context.Context, c *domain.Client) error {
	if s.n == 0 {
		return errors.New("disk full")
	}
	s.n--
	return s.Store.CreateClient(ctx, c)
}

func TestImportCommit_StoppedEarlyReportsImportedRows(t *testing.T) {
	fs, err := store.OpenFileStore(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	s := &brokenInsertStore{Store: fs, n: 1}
	h := NewRouter(NewHandler(
		service.NewClientService(s),
		service.NewLedgerService(s),
		service.NewDocumentService(s),
		service.NewImportService(s, nil, false),
		service.NewReceiptService(s, &config.Config{}),
	))

	csv := "Prénom,Nom,Téléphone\nMoussa,Ndiaye,761112233\nFatou,Sow,771234567\n"
	body, ctype := multipartBody(t, "clients.csv", csv, "")
	req := httptest.NewRequest("POST", "/api/import/commit", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, float64(1), resp["imported"])
	assert.Len(t, resp["clientIds"], 1)
	assert.Contains(t, resp["error"], "row 3")

	all, err := fs.ListClients(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
