package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter wires every route of the service.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(instrument)

	api.HandleFunc("/clients", h.ListClientsHandler).Methods("GET")
	api.HandleFunc("/clients", h.CreateClientHandler).Methods("POST")
	api.HandleFunc("/clients/{id}", h.GetClientHandler).Methods("GET")
	api.HandleFunc("/clients/{id}", h.UpdateClientHandler).Methods("PUT")
	api.HandleFunc("/clients/{id}", h.DeleteClientHandler).Methods("DELETE")
	api.HandleFunc("/clients/{id}/summary", h.ClientSummaryHandler).Methods("GET")
	api.HandleFunc("/clients/{id}/rentals", h.AddRentalHandler).Methods("POST")

	api.HandleFunc("/documents", h.ListDocumentsHandler).Methods("GET")
	api.HandleFunc("/documents", h.CreateDocumentHandler).Methods("POST")
	api.HandleFunc("/documents/{id}", h.DeleteDocumentHandler).Methods("DELETE")

	api.HandleFunc("/payments", h.RecordPaymentHandler).Methods("POST")
	api.HandleFunc("/deposits", h.RecordDepositHandler).Methods("POST")
	api.HandleFunc("/rentals/{rentalId}/receipts/{receiptNumber}", h.ReceiptHandler).Methods("GET")

	api.HandleFunc("/import/preview", h.ImportPreviewHandler).Methods("POST")
	api.HandleFunc("/import/commit", h.ImportCommitHandler).Methods("POST")

	return r
}

// WithCORS allows the web front end origins.
func WithCORS(next http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(next)
}
