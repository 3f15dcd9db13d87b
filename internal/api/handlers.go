package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/models"
	"github.com/punchamoorthee/rentledger/internal/receipt"
	"github.com/punchamoorthee/rentledger/internal/service"
	"github.com/punchamoorthee/rentledger/internal/store"
)

// upper bound on uploaded sheets
const maxUploadSize = 10 << 20

type Handler struct {
	clients   *service.ClientService
	ledger    *service.LedgerService
	documents *service.DocumentService
	imports   *service.ImportService
	receipts  *service.ReceiptService
}

func NewHandler(
	clients *service.ClientService,
	ledger *service.LedgerService,
	documents *service.DocumentService,
	imports *service.ImportService,
	receipts *service.ReceiptService,
) *Handler {
	return &Handler{clients: clients, ledger: ledger, documents: documents, imports: imports, receipts: receipts}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clients, err := h.clients.List(r.Context(), service.ClientFilter{
		AdminID: q.Get("adminId"),
		Status:  domain.ClientStatus(q.Get("status")),
	})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, clients)
}

func (h *Handler) GetClientHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.Client
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	c, err := h.clients.Create(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/clients/"+c.ID)
	respondWithJSON(w, http.StatusCreated, models.ClientResponse{Success: true, Client: c})
}

func (h *Handler) UpdateClientHandler(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	c, err := h.clients.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.ClientResponse{Success: true, Client: c})
}

func (h *Handler) DeleteClientHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.clients.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *Handler) ClientSummaryHandler(w http.ResponseWriter, r *http.Request) {
	sum, err := h.clients.Summary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sum)
}

func (h *Handler) AddRentalHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.Rental
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	rental, err := h.clients.AddRental(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.RentalResponse{Success: true, Rental: rental})
}

func (h *Handler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context(), r.URL.Query().Get("rentalId"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, docs)
}

func (h *Handler) CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.Document
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	doc, err := h.documents.Create(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.DocumentResponse{Success: true, Document: doc})
}

func (h *Handler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.documents.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *Handler) RecordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	payment, rec, err := h.ledger.RecordPayment(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.PaymentResponse{Success: true, Payment: payment, Record: rec})
}

func (h *Handler) RecordDepositHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	deposit, rec, err := h.ledger.RecordDeposit(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.DepositResponse{Success: true, Deposit: deposit, Record: rec})
}

func (h *Handler) ReceiptHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data, err := h.receipts.Lookup(r.Context(), vars["rentalId"], vars["receiptNumber"])
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := receipt.Render(&buf, data); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", data.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) ImportPreviewHandler(w http.ResponseWriter, r *http.Request) {
	req, cleanup, ok := readImportRequest(w, r)
	if !ok {
		return
	}
	defer cleanup()

	preview, err := h.imports.Preview(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, preview)
}

func (h *Handler) ImportCommitHandler(w http.ResponseWriter, r *http.Request) {
	req, cleanup, ok := readImportRequest(w, r)
	if !ok {
		return
	}
	defer cleanup()

	resp, err := h.imports.Commit(r.Context(), req)
	if err != nil && resp != nil {
		logging.Logger.WithError(err).WithFields(logrus.Fields{
			"file":       req.Filename,
			"imported":   resp.Imported,
			"request_id": requestIDFrom(r.Context()),
		}).Error("Import stopped early")
		respondWithJSON(w, http.StatusInternalServerError, resp)
		return
	}
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// readImportRequest reads the multipart "file", "mapping" (a JSON object of
// field names to header texts) and "adminId" fields. It writes the error
// response itself when the form is unusable.
func readImportRequest(w http.ResponseWriter, r *http.Request) (service.ImportRequest, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Expected a multipart form with a file")
		return service.ImportRequest{}, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing file")
		return service.ImportRequest{}, nil, false
	}

	var mapping map[string]string
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			file.Close()
			respondWithError(w, http.StatusBadRequest, "Malformed mapping")
			return service.ImportRequest{}, nil, false
		}
	}
	req := service.ImportRequest{
		Filename: header.Filename,
		File:     file,
		Mapping:  mapping,
		AdminID:  r.FormValue("adminId"),
	}
	cleanup := func() {
		file.Close()
		r.MultipartForm.RemoveAll()
	}
	return req, cleanup, true
}

// respondWithServiceError maps domain and store errors to status codes.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: "Validation failed", Details: verr.Problems})
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, store.ErrExists):
		respondWithError(w, http.StatusConflict, "Record already exists")
	case errors.Is(err, store.ErrConflict):
		respondWithError(w, http.StatusConflict, "Concurrent update, please retry")
	default:
		logging.Logger.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": requestIDFrom(r.Context()),
		}).Error("Request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, models.ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
